// Package archive streams a list of on-disk files to a reader as a single ZIP
// archive without buffering the archive in memory.
//
// A Stream is pull-based: nothing is opened until the first Read, and the
// producer goroutine blocks on an unbuffered pipe whenever the consumer stops
// pulling. Members are written in the order given, each followed by a data
// descriptor, and a synthesized "<name>.m3u" playlist listing every member is
// appended last. The central directory is only written after every member
// copied cleanly, so a failed stream can never be mistaken for a complete
// archive.
package archive
