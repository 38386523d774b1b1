package utils

import (
	"time"
)

// dateLayout accepts both zero padded and bare month/day numbers.
const dateLayout = "2006-1-2"

// ParseDate parses a yyyy-mm-dd calendar date as midnight UTC.
func ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, value, time.UTC)
}

// StartOfDay returns the calendar date of t, read in t's own location, as
// midnight UTC so it compares directly with ParseDate results.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
