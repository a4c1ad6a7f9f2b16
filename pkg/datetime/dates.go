// Package datetime provides date and time utility functions.
package datetime

import (
	"time"

	"github.com/iwvelando/debt-snowball/pkg/constants"
)

// DateLayout is the ISO calendar date format used in exports.
const DateLayout = constants.DateLayout

// AddMonths moves t by the given number of calendar months. The day is clamped
// to the last day of the target month, so Jan 31 + 1 month is Feb 28/29 rather
// than a date in March.
func AddMonths(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	first := time.Date(year, month, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	target := first.AddDate(0, months, 0)
	lastDay := target.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	return target.AddDate(0, 0, day-1)
}

// ISODate formats t as YYYY-MM-DD.
func ISODate(t time.Time) string {
	return t.Format(DateLayout)
}
