package wizard

import (
	"math"
	"strings"
	"time"
)

const (
	DateLayout = "2006-01-02"
	isoLayout  = "2006-01-02T15:04:05.000Z"
	day        = 24 * time.Hour
)

// DateRange holds calendar dates at UTC midnight. Zero means unset.
type DateRange struct {
	CheckIn  time.Time
	CheckOut time.Time
}

// ParseDate reads a YYYY-MM-DD value. Empty input yields the zero time.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(DateLayout, s)
}

func dateOnly(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

func isoTimestamp(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

func (d DateRange) Complete() bool {
	return !d.CheckIn.IsZero() && !d.CheckOut.IsZero()
}

// Nights is the whole number of nights in the range, rounded up. It is 0
// while either end is unset.
func (d DateRange) Nights() int {
	if !d.Complete() {
		return 0
	}
	diff := d.CheckOut.Sub(d.CheckIn)
	if diff < 0 {
		diff = -diff
	}
	return int(math.Ceil(float64(diff) / float64(day)))
}

// MinCheckOut is the earliest allowed check-out for the current check-in.
func (d DateRange) MinCheckOut(today time.Time) time.Time {
	if d.CheckIn.IsZero() {
		return dateOnly(today).Add(day)
	}
	return d.CheckIn.Add(day)
}

// Validate checks the range against today's date.
func (d DateRange) Validate(today time.Time) error {
	if !d.Complete() {
		return invalid("dates", "Please select both check-in and check-out dates")
	}
	if d.CheckIn.Before(dateOnly(today)) {
		return invalid("checkIn", "Check-in date cannot be in the past")
	}
	if !d.CheckOut.After(d.CheckIn) {
		return invalid("checkOut", "Check-out date must be after check-in date")
	}
	return nil
}
