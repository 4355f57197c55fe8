package core

import (
	"strings"
	"time"
)

// DateLayout is the calendar date format stored on expenses.
const DateLayout = "2006-01-02"

// ParseDate parses an ISO-8601 calendar date. Full RFC 3339 timestamps are
// accepted too, since older snapshots may carry them.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, ErrInvalidDate
}

// FormatDate renders t as a calendar date in UTC.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}
