// Package api serves the romshelf HTTP API on gin and defines its wire types.
//
// # Key Types
//
// Rom/DetailedRom/Platform/UserProps: transport representations of catalog
// records. DetailedRom adds the caller's props, assets, and siblings.
//
// ErrorEnvelope: every failure is {"error":{"message":...,"code":...}}.
//
// # Routes
//
// NewRouter wires /api: health, platforms, ROM listing, upload, detail,
// update, batch delete, per-user props, and HEAD/GET content. Content
// delivery is a raw file for single-file ROMs and a streamed ZIP for
// multi-file ROMs.
//
// # Design Notes
//
// DTOs use snake_case JSON tags. Service errors are mapped to statuses in
// errors.go only. Identity comes from a bearer token or ?token=; without a
// configured secret every request runs as the default user.
//
// Archive responses carry no Content-Length and are flushed per chunk. A
// failure after streaming starts panics with http.ErrAbortHandler, which the
// recovery middleware re-raises so net/http resets the connection.
package api
