package domain

import "time"

const (
	DateLayout  = "2006-01-02"
	hoursPerDay = 24
)

// ParseDate reads a YYYY-MM-DD calendar date as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// DateRange is a half-open stay window [CheckIn, CheckOut) of calendar dates.
type DateRange struct {
	CheckIn  time.Time
	CheckOut time.Time
}

func NewDateRange(checkIn, checkOut time.Time) DateRange {
	return DateRange{
		CheckIn:  TruncateToDate(checkIn),
		CheckOut: TruncateToDate(checkOut),
	}
}

// TruncateToDate keeps the calendar date of t and drops the clock, in UTC.
func TruncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (r DateRange) Valid() bool {
	return r.CheckIn.Before(r.CheckOut)
}

// Overlaps reports whether two half-open ranges share at least one night.
// A check-out on the same day as another check-in is not an overlap.
func (r DateRange) Overlaps(other DateRange) bool {
	return r.CheckIn.Before(other.CheckOut) && other.CheckIn.Before(r.CheckOut)
}

func (r DateRange) Nights() int {
	if !r.Valid() {
		return 0
	}
	return int(r.CheckOut.Sub(r.CheckIn).Hours()) / hoursPerDay
}
