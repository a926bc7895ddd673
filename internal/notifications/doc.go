// Package notifications publishes run events to ntfy.
//
// NewService returns a no-op implementation when no topic is configured, so
// the pipeline can publish unconditionally. Delivery failures are returned to
// the caller, which logs them; they never affect a run's outcome.
package notifications
