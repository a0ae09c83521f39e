// Package p3features owns Layer 3 (Features) of the power data model.
//
// Responsibilities: rolling descriptive statistics over two trailing
// horizons of smoothed samples, peak detection with prominence, and the
// oscillation regularity score.
// Key types: FeatureVector, Extractor.
//
// Dependency rule: P3 may depend on P1-P2, but never on P4+.
package p3features
