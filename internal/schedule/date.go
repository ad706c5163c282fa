package schedule

import (
	"errors"
	"time"
)

const dateLayout = "2006-01-02"

var ErrInvalidDate = errors.New("invalid date, expected YYYY-MM-DD")

// ParseDate validates and normalizes an ISO calendar date.
func ParseDate(s string) (string, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return "", ErrInvalidDate
	}
	return t.Format(dateLayout), nil
}

// Today returns the current calendar date in ISO form.
func Today() string {
	return time.Now().Format(dateLayout)
}

// AddDays shifts an already-normalized ISO date by n days.
func AddDays(date string, n int) string {
	t, err := time.Parse(dateLayout, date)
	if err != nil {
		return date
	}
	return t.AddDate(0, 0, n).Format(dateLayout)
}

// BeforeToday reports whether a normalized ISO date is strictly in the past.
// ISO dates compare correctly as strings.
func BeforeToday(date string) bool {
	return date < Today()
}
