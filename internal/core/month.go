package core

import (
	"fmt"
	"time"
)

// Month is the (year, month) grouping key derived from a record's timestamp.
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf returns the Month in which t occurs, in t's location.
func MonthOf(t time.Time) Month {
	year, month, _ := t.Date()
	return Month{Year: year, Month: month}
}

// String returns the month formatted as YYYY-MM.
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Label returns the human section header, e.g. "Jan, 2026".
func (m Month) Label() string {
	return fmt.Sprintf("%s, %d", m.Month.String()[:3], m.Year)
}

// Before reports whether m is earlier than n.
func (m Month) Before(n Month) bool {
	if m.Year != n.Year {
		return m.Year < n.Year
	}
	return m.Month < n.Month
}

// After reports whether m is later than n.
func (m Month) After(n Month) bool {
	return n.Before(m)
}

// Contains reports whether the time instant falls in the month.
func (m Month) Contains(t time.Time) bool {
	return t.Year() == m.Year && t.Month() == m.Month
}
