// Package services defines shared utilities consumed by the pipeline stages
// and external tool integrations.
//
// Key responsibilities:
//   - Context helpers that stamp queue item IDs, stage names, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that classify failures so
//     the orchestrator can decide which are file-fatal and which only drop a
//     single rendition.
//
// Use these helpers when wiring new stage logic so operational behaviour
// (error handling, observability) stays uniform across the pipeline.
package services
