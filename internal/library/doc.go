// Package library computes canonical on-disk locations for ROM files and
// per-ROM resources, and performs the small set of filesystem mutations the
// rest of romshelf needs: existence checks, non-clobbering renames, and
// removals.
//
// ROM files live under <library>/<platform fs_slug>/roms. The catalog stores
// that directory relative to the library root (for example "n64/roms"); every
// method accepting a dir resolves relative values against the library root and
// passes absolute values through unchanged.
//
// Per-ROM resources (covers, screenshots, saves, states) live under
// <resources>/roms/<platform_id>/<rom_id>/<kind>. They are keyed by catalog
// identity, never by display name, so two ROMs cannot collide.
//
// Path computation is pure. Only the helpers in files.go touch the disk.
package library
