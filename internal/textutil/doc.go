// Package textutil provides text processing utilities for ROM file names.
//
// The primary use cases are:
//   - Deriving the tag-free and extension-free forms of a file name that the
//     catalog stores and sibling grouping keys on
//   - Sanitizing display names and file names for safe filesystem use
//   - Case folding for search and ordering
package textutil
