// Package p7model loads trained classifier artifacts and evaluates them
// against feature windows (L7). Artifacts are versioned JSON files exported
// by the offline training jobs; two model families are supported, a random
// forest over flattened windows and a small 1-D CNN over sequential
// windows. Loading validates the artifact against the pipeline's feature
// schema and window geometry so an incompatible model is rejected before
// any sample is processed.
//
// Dependency rule: P7 may depend on P1-P6.
package p7model
