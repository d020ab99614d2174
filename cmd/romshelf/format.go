package main

import (
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// platformLabel prefers the stored name and falls back to a title-cased slug:
// "game-boy" becomes "Game Boy".
func platformLabel(name, fsSlug string) string {
	name = strings.TrimSpace(name)
	if name != "" && name != fsSlug {
		return name
	}
	words := strings.FieldsFunc(fsSlug, func(r rune) bool { return r == '-' || r == '_' })
	if len(words) == 0 {
		return fsSlug
	}
	return titleCaser.String(strings.Join(words, " "))
}

func formatSize(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	return humanize.IBytes(uint64(bytes))
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if limit <= 3 || len(runes) <= limit {
		return value
	}
	return string(runes[:limit-3]) + "..."
}
