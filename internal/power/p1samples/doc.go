// Package p1samples owns Layer 1 (Samples) of the power data model.
//
// Responsibilities: the raw Sample type, the closed phase vocabulary, and
// ingestion validation (finite readings, monotonic timestamps).
// Key types: Sample, Phase.
//
// Dependency rule: P1 depends on nothing above the standard library.
package p1samples
