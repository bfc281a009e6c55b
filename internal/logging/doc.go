// Package logging assembles the structured slog loggers shared by the booksum
// CLI and worker daemon.
//
// It owns the console and JSON handlers and the level and output plumbing. Its
// context helpers tag lines with job IDs, stages, topics and correlation IDs
// taken from services context values. A no-op logger is provided for tests.
package logging
