package event

import (
	"strings"
	"time"
)

// Layouts written by the site ORM, with and without fractional seconds.
var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
}

// ParseTimestamp converts a scanned created_at column into a time.
//
// Values without an explicit zone are read in loc (UTC when nil). ok is false
// for nil, empty, or unparseable input; callers substitute the current time.
func ParseTimestamp(v any, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.UTC
	}
	switch x := v.(type) {
	case time.Time:
		return x, !x.IsZero()
	case *time.Time:
		if x == nil {
			return time.Time{}, false
		}
		return *x, !x.IsZero()
	case []byte:
		return parseTimestampString(string(x), loc)
	case string:
		return parseTimestampString(x, loc)
	default:
		return time.Time{}, false
	}
}

func parseTimestampString(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	// Django may append an offset ("+00:00") to sqlite text timestamps.
	if t, err := time.Parse("2006-01-02 15:04:05.999999999-07:00", s); err == nil {
		return t, true
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
