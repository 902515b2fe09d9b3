package core

import (
	"fmt"
	"strings"
	"time"
)

// Layouts used at the report boundary (DD.MM.YYYY and 24h HH:MM).
const (
	DateLayout = "02.01.2006"
	TimeLayout = "15:04"

	// lenient input layouts also accept unpadded days, months and hours
	dateInputLayout = "2.1.2006"
	timeInputLayout = "15:04"
)

// TimePoint is a calendar date plus a wall clock time, without a zone.
type TimePoint struct {
	Year   int
	Month  time.Month
	Day    int
	Hour   int
	Minute int
}

// ParseTimePoint parses a date in DD.MM.YYYY and a time in HH:MM form.
func ParseTimePoint(date, clock string) (TimePoint, error) {
	d, err := time.Parse(dateInputLayout, strings.TrimSpace(date))
	if err != nil {
		return TimePoint{}, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	c, err := time.Parse(timeInputLayout, strings.TrimSpace(clock))
	if err != nil {
		return TimePoint{}, fmt.Errorf("%w: %q", ErrInvalidTime, clock)
	}
	return TimePoint{
		Year:   d.Year(),
		Month:  d.Month(),
		Day:    d.Day(),
		Hour:   c.Hour(),
		Minute: c.Minute(),
	}, nil
}

// ParseDateTime parses "DD.MM.YYYY HH:MM".
func ParseDateTime(s string) (TimePoint, error) {
	date, clock, ok := strings.Cut(strings.TrimSpace(s), " ")
	if !ok {
		return TimePoint{}, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return ParseTimePoint(date, clock)
}

// Instant places the time point in loc. A nil loc means UTC.
func (tp TimePoint) Instant(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(tp.Year, tp.Month, tp.Day, tp.Hour, tp.Minute, 0, 0, loc)
}

// Midnight returns the start of the calendar day in UTC. Calendar walks use
// UTC so that every step is exactly one day regardless of DST.
func (tp TimePoint) Midnight() time.Time {
	return time.Date(tp.Year, tp.Month, tp.Day, 0, 0, 0, 0, time.UTC)
}

// SameDate reports whether both points fall on the same calendar date.
func (tp TimePoint) SameDate(o TimePoint) bool {
	return tp.Year == o.Year && tp.Month == o.Month && tp.Day == o.Day
}

// ClockHours returns the time of day in fractional hours.
func (tp TimePoint) ClockHours() float64 {
	return float64(tp.Hour) + float64(tp.Minute)/60
}

// DateLabel formats the date as DD.MM.YYYY.
func (tp TimePoint) DateLabel() string {
	return tp.Midnight().Format(DateLayout)
}

func (tp TimePoint) String() string {
	return fmt.Sprintf("%s %02d:%02d", tp.DateLabel(), tp.Hour, tp.Minute)
}

// HoursBetween returns the signed duration from a to b in hours.
func HoursBetween(a, b TimePoint, loc *time.Location) float64 {
	return b.Instant(loc).Sub(a.Instant(loc)).Hours()
}
