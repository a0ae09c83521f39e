// Package pipeline wires the power layers into the per-appliance phase
// classification flow.
//
// This package is the composition root: it imports from the layer packages
// (p1samples through p7model) and internal/config, but none of those
// packages import pipeline/. One Pipeline instance serves one appliance;
// instances share no state, so a process may run many side by side.
package pipeline
