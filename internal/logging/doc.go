// Package logging assembles structured slog loggers and formatting helpers used
// across romshelf.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so request handlers can tag log
// lines with ROM IDs, user IDs, and correlation IDs. The package also provides
// a no-op logger for tests and wiring code that cannot fail.
package logging
