package core

import (
	"time"
)

const (
	dateLayout  = "2006-01-02"
	monthLayout = "2006-01"
)

// Date is a calendar day. The time portion is always UTC midnight; grouping
// and comparisons use the date field verbatim, no timezone conversion.
type Date struct {
	time.Time
}

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a "YYYY-MM-DD" string.
func ParseDate(s string) (Date, error) {
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// ParseMonthKey parses a "YYYY-MM" string into the first day of that month.
func ParseMonthKey(s string) (Date, error) {
	t, err := time.ParseInLocation(monthLayout, s, time.UTC)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

// MonthKey returns the "YYYY-MM" grouping key for the date.
func (d Date) MonthKey() string {
	return d.Format(monthLayout)
}

// Day returns the day of the month.
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month as 1-12.
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year.
func (d Date) Year() int {
	return d.Time.Year()
}

// daysIn returns the number of days in the given month.
func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// NextOccurrence advances a schedule date by one period of the given
// frequency.
//
// Monthly keeps the day-of-month in the following month (December wraps to
// January of the next year); yearly keeps month and day in the next year.
// When the target month is shorter than the source day, the day is clamped
// to the last valid day of the target month (Jan 31 -> Feb 28/29,
// Feb 29 -> Feb 28 on non-leap years).
func NextOccurrence(f Frequency, d Date) (Date, error) {
	if err := d.Validate(); err != nil {
		return Date{}, err
	}
	switch f {
	case Daily:
		return Date{Time: d.AddDate(0, 0, 1)}, nil
	case Weekly:
		return Date{Time: d.AddDate(0, 0, 7)}, nil
	case Monthly:
		year, month, day := d.Time.Date()
		month++
		if month > time.December {
			month = time.January
			year++
		}
		if last := daysIn(year, month); day > last {
			day = last
		}
		return NewDate(year, int(month), day), nil
	case Yearly:
		year, month, day := d.Time.Date()
		year++
		if last := daysIn(year, month); day > last {
			day = last
		}
		return NewDate(year, int(month), day), nil
	default:
		return Date{}, ErrInvalidFrequency
	}
}
