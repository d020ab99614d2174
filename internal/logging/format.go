package logging

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

const logTimestampLayout = "2006-01-02 15:04:05"

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.In(time.Local).Format(logTimestampLayout)
}

// attrString renders a value for the console header without quoting.
func attrString(v slog.Value) string {
	v = v.Resolve()
	if v.Kind() == slog.KindString {
		return v.String()
	}
	return rawValue(v)
}

// formatAttr renders one attribute value for the console body. Byte counts
// (keys ending in "bytes") are shown in IEC units next to the raw number.
func formatAttr(key string, v slog.Value) string {
	v = v.Resolve()
	if strings.HasSuffix(key, "bytes") {
		switch v.Kind() {
		case slog.KindInt64:
			if n := v.Int64(); n >= 1024 {
				return fmt.Sprintf("%s (%d)", humanize.IBytes(uint64(n)), n)
			}
		case slog.KindUint64:
			if n := v.Uint64(); n >= 1024 {
				return fmt.Sprintf("%s (%d)", humanize.IBytes(n), n)
			}
		}
	}
	if v.Kind() == slog.KindDuration {
		return roundDuration(v.Duration()).String()
	}
	return quoteIfNeeded(rawValue(v))
}

func rawValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return formatTimestamp(v.Time())
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return fmt.Sprint(v.Any())
	default:
		return v.String()
	}
}

func roundDuration(d time.Duration) time.Duration {
	switch {
	case d >= time.Second:
		return d.Round(time.Millisecond)
	case d >= time.Millisecond:
		return d.Round(time.Microsecond)
	default:
		return d
	}
}

func quoteIfNeeded(s string) string {
	if s == "" {
		return `""`
	}
	for _, r := range s {
		if r <= ' ' || r == '=' || r == '"' {
			return strconv.Quote(s)
		}
	}
	return s
}
