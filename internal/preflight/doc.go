// Package preflight provides readiness checks for the filesystem paths,
// catalog database, and API endpoint romshelf depends on.
//
// The daemon runs RunAll at startup and logs failures; the CLI "doctor"
// command prints the same results as a table.
package preflight
