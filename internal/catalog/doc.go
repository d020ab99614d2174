// Package catalog persists platforms, ROMs, per-user ROM properties, and user
// assets in SQLite, and answers the list/detail/sibling queries the API
// serves.
//
// Every mutating operation runs in exactly one transaction. Callers that need
// several operations to commit together use Store.WithTx and call the same
// operations on the Tx it hands them. Siblings are never stored: two ROMs are
// siblings when they share a platform and a non-empty tag-free file name.
// Main-sibling selection is per user and is reset for the rest of the group
// in the same transaction that sets it.
//
// file_name_no_tags, file_name_no_ext, file_extension, and the case-folded
// search columns are always derived from file_name and name here; callers
// never supply them. Schema changes bump schemaVersion in schema.go.
package catalog
