package model

import (
	"fmt"
	"strings"
	"time"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate parses an appointment timestamp and normalizes it to UTC. Values
// without a zone are read as UTC.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", raw)
}

// DayRange returns the UTC day bounds covering start through end. last is the
// final instant of end's day at 100ns precision and next is midnight after
// it, for half-open comparisons. A zero end covers start's day only.
func DayRange(start, end time.Time) (first, last, next time.Time) {
	first = startOfDay(start)
	if end.IsZero() {
		end = start
	}
	next = startOfDay(end).AddDate(0, 0, 1)
	last = next.Add(-100 * time.Nanosecond)
	return first, last, next
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
