// Package p2smooth owns Layer 2 (Smoothing) of the power data model.
//
// Responsibilities: conditioning the raw sample stream with a causal
// Savitzky-Golay filter whose weights are solved once at construction.
// Key types: Smoother, SmoothedSample.
//
// Dependency rule: P2 may depend on P1, but never on P3+.
package p2smooth
