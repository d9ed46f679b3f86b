package entity

import (
	"fmt"
	"strings"
	"time"
)

// Month is a calendar year-month such as 2024-03
type Month struct {
	Year  int
	Month time.Month
}

// ParseMonth parses a "YYYY-MM" string
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return Month{}, fmt.Errorf("invalid month %q: expected YYYY-MM", s)
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

// MonthOf returns the month containing the given date
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// String formats the month as YYYY-MM
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// MarshalJSON encodes the month as "YYYY-MM"
func (m Month) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON decodes a "YYYY-MM" string
func (m *Month) UnmarshalJSON(b []byte) error {
	parsed, err := ParseMonth(strings.Trim(string(b), `"`))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// IsZero returns true for the zero month
func (m Month) IsZero() bool {
	return m.Year == 0 && m.Month == 0
}

// Start returns the first day of the month at midnight UTC
func (m Month) Start() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End returns the first day of the following month (exclusive bound)
func (m Month) End() time.Time {
	return m.Start().AddDate(0, 1, 0)
}

// Contains reports whether the date falls in [Start, End)
func (m Month) Contains(t time.Time) bool {
	d := DateOnly(t)
	return !d.Before(m.Start()) && d.Before(m.End())
}

// Intersects reports whether the closed date range [from, to] overlaps the month
func (m Month) Intersects(from, to time.Time) bool {
	return !DateOnly(to).Before(m.Start()) && DateOnly(from).Before(m.End())
}

// DateOnly truncates a timestamp to its calendar date in UTC
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return t, nil
}

// TimeOfDay is a wall-clock time such as "09:00" or "17:30:00"
type TimeOfDay string

// Parse returns the time of day on the common reference date 2000-01-01 UTC
func (t TimeOfDay) Parse() (time.Time, error) {
	s := strings.TrimSpace(string(t))
	for _, layout := range []string{"15:04", "15:04:05"} {
		if v, err := time.Parse(layout, s); err == nil {
			return time.Date(2000, 1, 1, v.Hour(), v.Minute(), v.Second(), 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time of day %q: expected HH:MM", s)
}

// On returns the time of day placed on the given date
func (t TimeOfDay) On(date time.Time) (time.Time, error) {
	v, err := t.Parse()
	if err != nil {
		return time.Time{}, err
	}
	d := DateOnly(date)
	return d.Add(time.Duration(v.Hour())*time.Hour + time.Duration(v.Minute())*time.Minute + time.Duration(v.Second())*time.Second), nil
}

// Normalize returns the zero-padded HH:MM form, or HH:MM:SS when seconds are set
func (t TimeOfDay) Normalize() (TimeOfDay, error) {
	v, err := t.Parse()
	if err != nil {
		return "", err
	}
	if v.Second() != 0 {
		return TimeOfDay(v.Format("15:04:05")), nil
	}
	return TimeOfDay(v.Format("15:04")), nil
}

// String returns the raw time of day
func (t TimeOfDay) String() string {
	return string(t)
}
