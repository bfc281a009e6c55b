// Package services defines shared utilities consumed by the pipeline stages
// and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, stage names, broker topics, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper so failures carry a
//     classification (validation, configuration, transient, ...) that the
//     pipeline uses to decide between failing a job and redelivering a message.
//
// Use these helpers when wiring new stage logic so operational behaviour stays
// uniform across the pipeline.
package services
