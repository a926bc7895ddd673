// Package pipeline drives a run: for every ledger row it searches for
// candidate videos, filters them, and moves each survivor through
// acquisition, normalization, language identification and recognition
// before assembling the row's transcript.
//
// Per-candidate progress follows the stage table in state.go. A stage error
// never escapes its candidate: the table maps it to a terminal state, the
// candidate's transient files are released, and the work item continues
// with the next candidate. Only ledger and configuration problems abort a
// run.
//
// Candidates may be processed by a bounded worker pool. Ordinals are fixed
// before dispatch and segments are slotted by ordinal, so transcript order
// never depends on completion order.
package pipeline
