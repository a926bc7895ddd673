// Package services defines shared utilities consumed by the pipeline stages
// and the external tool integrations.
//
// Key responsibilities:
//   - Context helpers that stamp ledger rows, candidate ordinals, stage names,
//     and run identifiers for logging.
//   - Structured error markers plus the Wrap helper that let the orchestrator
//     classify a candidate failure (skipped vs dropped) without string matching.
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
