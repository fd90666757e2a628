// Package calendar handles calendar-day values. A day is a time.Time at
// midnight UTC carrying the wall-clock year, month and day, which is what a
// Postgres DATE column round-trips to.
package calendar

import (
	"fmt"
	"strings"
	"time"
)

const Layout = "2006-01-02"

// Day drops the time of day from t, keeping t's own calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today is the calendar day of now() on the server's local clock.
func Today(now func() time.Time) time.Time {
	return Day(now().Local())
}

// Parse accepts YYYY-MM-DD or an RFC 3339 timestamp and returns its day.
func Parse(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("date is required")
	}
	if t, err := time.Parse(Layout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return Day(t), nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
}

// Format renders a day as YYYY-MM-DD.
func Format(day time.Time) string {
	return day.Format(Layout)
}
