// Package auth turns bearer tokens into user ids.
//
// Tokens are HS256 JWTs whose subject is the numeric user id. When no secret
// is configured every request runs as the configured default user, which
// suits single-user installs on a trusted network.
package auth
