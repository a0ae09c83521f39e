// Package p4rules owns Layer 4 (Rule labels) of the power data model.
//
// Responsibilities: mapping one FeatureVector to a provisional phase via
// ordered magnitude and shape thresholds. Stateless: no memory of prior
// labels, the transition validator owns history.
// Key types: Thresholds, Labeler, ProvisionalLabel.
//
// Dependency rule: P4 may depend on P1-P3, but never on P5+.
package p4rules
