package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the ISO calendar date format used on the wire.
const DateLayout = "2006-01-02"

var (
	ErrInvalidDay   = errors.New("invalid day")
	ErrInvalidMonth = errors.New("invalid month")
	ErrInvalidDate  = errors.New("invalid date")
)

// MonthNames holds the pt-BR month names, January first.
var MonthNames = [12]string{
	"Janeiro", "Fevereiro", "Março", "Abril", "Maio", "Junho",
	"Julho", "Agosto", "Setembro", "Outubro", "Novembro", "Dezembro",
}

// Date is a calendar day stored as midnight UTC.
type Date struct {
	time.Time
}

// NewDate creates a new Date from year, month, day. Out of range values are
// normalized the way time.Date does.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the calendar day of now in its own location.
func Today(now time.Time) Date {
	y, m, d := now.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses "YYYY-MM-DD". A full timestamp is accepted and truncated
// to its date part.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(DateLayout) && (s[10] == 'T' || s[10] == ' ') {
		s = s[:10]
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// BR formats the date as DD/MM/YYYY.
func (d Date) BR() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("02/01/2006")
}

// AddDays returns the date n days later.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// AddMonthsClamped adds n calendar months, clamping the day to the last day
// of the target month (Jan 31 + 1 month is Feb 28 or 29).
func (d Date) AddMonthsClamped(n int) Date {
	first := NewDate(d.Year(), d.Month()+n, 1)
	day := d.Day()
	if last := DaysIn(first.Year(), first.Month()); day > last {
		day = last
	}
	return NewDate(first.Year(), first.Month(), day)
}

// SameMonth reports whether both dates fall in the same month of the same year.
func (d Date) SameMonth(o Date) bool {
	return d.Year() == o.Year() && d.Month() == o.Month()
}

// DaysIn returns the number of days of the given month.
func DaysIn(year, month int) int {
	return NewDate(year, month+1, 0).Day()
}

// AddMonthsClamped is the string form used by the record model: an
// unparseable date is returned unchanged.
func AddMonthsClamped(iso string, n int) string {
	d, err := ParseDate(iso)
	if err != nil {
		return iso
	}
	return d.AddMonthsClamped(n).String()
}

// FormatDateBR renders an ISO date as DD/MM/YYYY, or returns it unchanged
// when it does not parse.
func FormatDateBR(iso string) string {
	d, err := ParseDate(iso)
	if err != nil {
		return iso
	}
	return d.BR()
}

// MonthName returns the pt-BR name of month (1-12).
func MonthName(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return MonthNames[month-1]
}
