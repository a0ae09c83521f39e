// Package p5phases owns Layer 5 (Phase transitions) of the power data model.
//
// Responsibilities: validating provisional labels against the previous
// confirmed phase with a consecutive-sample debounce and a forbidden-edge
// list, and tracking dwell time per confirmed phase.
// Key types: Validator, ConfirmedLabel, Edge.
//
// Dependency rule: P5 may depend on P1-P4, but never on P6+.
package p5phases
