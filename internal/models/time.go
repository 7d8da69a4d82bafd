package models

import (
	"strings"
	"time"
)

// DateLayout is the calendar-day format used by attendance records and date keys.
const DateLayout = "2006-01-02"

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// ParseTime reads the ISO strings stored on records. Values without an offset
// are read as UTC. The boolean is false for empty or unparseable input.
func ParseTime(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	if t, err := time.Parse(DateLayout, raw); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// ParseEndTime is ParseTime for range upper bounds: a date-only value covers
// the whole day.
func ParseEndTime(raw string) (time.Time, bool) {
	t, ok := ParseTime(raw)
	if !ok {
		return t, false
	}
	if isDateOnly(raw) {
		return t.Add(24*time.Hour - time.Nanosecond), true
	}
	return t, true
}

// DateKey renders the calendar day of t in t's own location.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// FormatTimestamp renders a write timestamp the way records store them.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func isDateOnly(raw string) bool {
	return len(strings.TrimSpace(raw)) == len(DateLayout)
}
