// Package mutation coordinates changes that span the library filesystem and
// the catalog: renaming a ROM file, editing ROM metadata and cover art, and
// deleting ROMs with or without their files.
//
// The filesystem step always runs first for renames so a name collision on
// disk aborts before the catalog is touched. Deletes remove the catalog
// record first and then clean up on-disk state best effort, reporting each id
// independently.
package mutation
