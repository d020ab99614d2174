// Package daemon coordinates the long-running romshelf process.
//
// It holds a flock-based lock so only one instance serves a library, starts
// the HTTP API listener, and shuts it down gracefully. Service construction
// happens in daemonrun; the daemon only owns startup, shutdown, and status.
package daemon
