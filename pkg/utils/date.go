package utils

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// FormatTradeDate renders a date as YYYY-MM-DD(DDD), e.g. "2026-02-06(FRI)".
// This format is used everywhere a date is shown or persisted: ledger rows,
// run summaries and chart axis labels.
func FormatTradeDate(date time.Time) string {
	return fmt.Sprintf("%s(%s)",
		date.Format(dateLayout),
		strings.ToUpper(date.Format("Mon")),
	)
}

// ParseDate parses a plain YYYY-MM-DD string in UTC.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}

// TruncateToDay drops the time-of-day component.
func TruncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// IsWeekend reports whether the date falls on Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// SameDay reports whether two timestamps fall on the same calendar date.
func SameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// DayKey returns the canonical map key for a calendar date.
func DayKey(t time.Time) string {
	return t.Format(dateLayout)
}
