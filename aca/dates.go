package aca

import (
	"strings"
	"time"
)

// DateLayout is the only date format the canonical record carries.
const DateLayout = "2006-01-02"

// dateOnly truncates t to a UTC calendar day.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// parseDate parses a YYYY-MM-DD string; ok is false when empty or malformed.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// daysBetween counts whole calendar days from -> to (negative when to is earlier).
func daysBetween(from, to time.Time) int {
	return int(dateOnly(to).Sub(dateOnly(from)).Hours() / 24)
}

// FormatDate renders a calendar day the way assessments carry it.
func FormatDate(t time.Time) string {
	return dateOnly(t).Format(DateLayout)
}
