// Package scan walks the library directory and brings the catalog in line
// with what is on disk.
//
// Every top-level directory of the library is a platform; its roms
// subdirectory holds single-file ROMs (regular files) and multi-file ROMs
// (directories whose regular files are the members). Platforms are scanned
// concurrently. ROMs that vanished from disk are purged unless disabled.
package scan
