// Package services defines shared utilities consumed by the upload engine
// and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job and recording identifiers for logging.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent job status transitions (auth vs data-loss vs transient).
//
// Use these helpers when wiring new engine logic so operational behaviour
// (error handling, observability, retries) stays uniform across the pipeline.
package services
