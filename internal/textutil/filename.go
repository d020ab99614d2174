package textutil

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
)

var (
	// tagPattern matches "(USA)" and "[!]" style tags.
	tagPattern = regexp.MustCompile(`\(([^)]+)\)|\[([^\]]+)\]`)
	// extensionPattern matches a trailing extension, including compound
	// lowercase extensions such as ".tar.gz".
	extensionPattern = regexp.MustCompile(`\.(([a-z]+\.)*\w+)$`)
)

// FileNameNoExtension strips the trailing extension from name.
func FileNameNoExtension(name string) string {
	return strings.TrimSpace(extensionPattern.ReplaceAllString(name, ""))
}

// FileNameNoTags strips the extension and every bracketed or parenthesized
// tag from name. "Zelda (USA) [!].zip" becomes "Zelda".
func FileNameNoTags(name string) string {
	return strings.TrimSpace(tagPattern.ReplaceAllString(FileNameNoExtension(name), ""))
}

// FileExtension returns the extension of name without the leading dot, or ""
// when there is none.
func FileExtension(name string) string {
	match := extensionPattern.FindStringSubmatch(name)
	if match == nil {
		return ""
	}
	return match[1]
}

// Fold returns the Unicode case-folded form of s used for case-insensitive
// search and ordering.
func Fold(s string) string {
	return cases.Fold().String(s)
}
