// Package services defines shared utilities consumed by the catalog, the
// mutation orchestrator, and the HTTP boundary.
//
// Key responsibilities:
//   - Context helpers that stamp user IDs, ROM IDs, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper, so callers classify
//     failures with errors.Is and the API maps them to status codes in one
//     place.
package services
