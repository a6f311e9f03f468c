// Package core holds the domain types of the ledger: calendar dates,
// money amounts, records and the daily balance projection.
package core

import (
	"fmt"
	"strings"
	"time"
)

// dateLayout is the wire format for calendar days. Lexicographic order
// of formatted dates equals chronological order.
const dateLayout = "2006-01-02"

// Date is a calendar day with no time or timezone component.
// The zero value is the zero date and reports IsZero() == true.
type Date struct {
	t time.Time
}

// NewDate builds a Date from year, month and day. Out-of-range values
// are normalized the way time.Date normalizes them.
func NewDate(year, month, day int) Date {
	return Date{t: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a yyyy-mm-dd string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{t: t}, nil
}

// DateOf truncates a time.Time to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

func (d Date) Year() int   { return d.t.Year() }
func (d Date) Month() int  { return int(d.t.Month()) }
func (d Date) Day() int    { return d.t.Day() }
func (d Date) IsZero() bool { return d.t.IsZero() }

func (d Date) String() string { return d.t.Format(dateLayout) }

func (d Date) Equal(o Date) bool  { return d.t.Equal(o.t) }
func (d Date) Before(o Date) bool { return d.t.Before(o.t) }
func (d Date) After(o Date) bool  { return d.t.After(o.t) }

// AddDays returns the date n days later.
func (d Date) AddDays(n int) Date {
	return Date{t: d.t.AddDate(0, 0, n)}
}

// MarshalJSON encodes the date as a yyyy-mm-dd string.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON decodes a yyyy-mm-dd string.
func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Unit is the recurrence frequency of a recurring record.
type Unit string

const (
	Daily   Unit = "daily"
	Weekly  Unit = "weekly"
	Monthly Unit = "monthly"
	Yearly  Unit = "yearly"
)

// Valid reports whether u is a supported recurrence unit.
func (u Unit) Valid() bool {
	switch u {
	case Daily, Weekly, Monthly, Yearly:
		return true
	}
	return false
}

// Advance returns the next occurrence after d for the given unit and
// interval. It is pure: d is never modified.
//
// Monthly and yearly steps keep the original day-of-month; when the
// target month is shorter, the day is clamped to the last valid day of
// that month and never rolls over into the next one. Month overflow is
// carried into the year before the day is resolved, so multi-month
// intervals do not compound clamping errors.
func (d Date) Advance(unit Unit, interval int) Date {
	switch unit {
	case Daily:
		return d.AddDays(interval)
	case Weekly:
		return d.AddDays(7 * interval)
	case Monthly:
		return d.addMonths(interval)
	case Yearly:
		return NewDate(d.Year()+interval, d.Month(), clampDay(d.Year()+interval, d.Month(), d.Day()))
	}
	return d
}

func (d Date) addMonths(n int) Date {
	months := d.Month() - 1 + n
	year := d.Year() + months/12
	month := months%12 + 1
	return NewDate(year, month, clampDay(year, month, d.Day()))
}

// clampDay limits day to the last valid day of (year, month).
func clampDay(year, month, day int) int {
	if last := daysIn(year, month); day > last {
		return last
	}
	return day
}

// daysIn returns the number of days in (year, month).
func daysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// MonthsBetween counts the whole calendar months spanned by [start,
// end], inclusive on both sides. A partial end month counts as a full
// month; day-of-month is ignored.
func MonthsBetween(start, end Date) int {
	return (end.Year()-start.Year())*12 + end.Month() - start.Month() + 1
}
