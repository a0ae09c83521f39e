// Package p6windows assembles confirmed-labeled feature vectors into the
// fixed-length windows consumed by the trained classifiers (L6). Two window
// geometries are maintained side by side: a short window whose rows are
// flattened into a single vector for classic estimators, and a longer
// sequential window kept as a row-per-sample matrix for sequence models.
//
// Dependency rule: P6 may depend on P1-P5.
package p6windows
