// Package content decides how a ROM's bytes reach a client.
//
// A single-file ROM, or one member of a multi-file ROM, is delivered as the
// file itself. Several members are delivered as an archive stream that also
// carries a generated playlist. Every member is checked on disk before any
// byte is sent so missing files surface as not-found errors instead of a
// truncated download.
package content
