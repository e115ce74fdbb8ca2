package models

import (
	"fmt"
	"time"
)

// CalendarDayLayout is the canonical rendering of a CalendarDay.
const CalendarDayLayout = "2006-01-02"

// CalendarDay is a civil date with no time-of-day or zone. It is comparable and
// safe to use as a map key.
type CalendarDay struct {
	Year  int
	Month time.Month
	Day   int
}

// NewCalendarDay truncates t to its civil date in t's own location.
func NewCalendarDay(t time.Time) CalendarDay {
	y, m, d := t.Date()
	return CalendarDay{Year: y, Month: m, Day: d}
}

// ParseCalendarDay parses an ISO "YYYY-MM-DD" string.
func ParseCalendarDay(s string) (CalendarDay, error) {
	t, err := time.Parse(CalendarDayLayout, s)
	if err != nil {
		return CalendarDay{}, fmt.Errorf("invalid calendar day %q: %w", s, err)
	}
	return NewCalendarDay(t), nil
}

// Time returns midnight UTC of the day.
func (d CalendarDay) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d CalendarDay) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Time().Format(CalendarDayLayout)
}

func (d CalendarDay) IsZero() bool {
	return d == CalendarDay{}
}

// AddDays returns the day n days after d (n may be negative).
func (d CalendarDay) AddDays(n int) CalendarDay {
	return NewCalendarDay(d.Time().AddDate(0, 0, n))
}

// Compare returns -1, 0 or +1.
func (d CalendarDay) Compare(o CalendarDay) int {
	switch {
	case d.Year != o.Year:
		return cmpInt(d.Year, o.Year)
	case d.Month != o.Month:
		return cmpInt(int(d.Month), int(o.Month))
	default:
		return cmpInt(d.Day, o.Day)
	}
}

func (d CalendarDay) Before(o CalendarDay) bool { return d.Compare(o) < 0 }
func (d CalendarDay) After(o CalendarDay) bool  { return d.Compare(o) > 0 }

func (d CalendarDay) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *CalendarDay) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = CalendarDay{}
		return nil
	}
	parsed, err := ParseCalendarDay(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
