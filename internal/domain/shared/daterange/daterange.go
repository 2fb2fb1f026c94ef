// Package daterange models occupancy windows as half-open intervals of calendar days.
package daterange

import (
	"fmt"
	"time"

	"wanderlust/internal/domain/shared/failure"
)

const (
	dayLayout = "2006-01-02"
	day       = 24 * time.Hour
)

var ErrInvalidRange = fmt.Errorf("daterange: check-out must be after check-in: %w", failure.ErrValidation)

// DateRange is [CheckIn, CheckOut) truncated to UTC midnights.
type DateRange struct {
	CheckIn  time.Time `json:"check_in"`
	CheckOut time.Time `json:"check_out"`
}

// New truncates both bounds to calendar days and validates ordering.
func New(checkIn, checkOut time.Time) (DateRange, error) {
	dr := DateRange{CheckIn: Day(checkIn), CheckOut: Day(checkOut)}
	if err := dr.Validate(); err != nil {
		return DateRange{}, err
	}
	return dr, nil
}

// Parse builds a range from YYYY-MM-DD strings.
func Parse(checkIn, checkOut string) (DateRange, error) {
	in, err := time.Parse(dayLayout, checkIn)
	if err != nil {
		return DateRange{}, failure.NewValidation("check_in", "must be a YYYY-MM-DD date")
	}
	out, err := time.Parse(dayLayout, checkOut)
	if err != nil {
		return DateRange{}, failure.NewValidation("check_out", "must be a YYYY-MM-DD date")
	}
	return New(in, out)
}

// MustParse is meant for tests and fixtures.
func MustParse(checkIn, checkOut string) DateRange {
	dr, err := Parse(checkIn, checkOut)
	if err != nil {
		panic(err)
	}
	return dr
}

// Day returns the UTC midnight of t's calendar date.
func Day(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (dr DateRange) Validate() error {
	if dr.CheckIn.IsZero() || dr.CheckOut.IsZero() {
		return ErrInvalidRange
	}
	if !dr.CheckOut.After(dr.CheckIn) {
		return ErrInvalidRange
	}
	return nil
}

func (dr DateRange) Nights() int {
	return int(Day(dr.CheckOut).Sub(Day(dr.CheckIn)) / day)
}

// Overlaps uses the half-open rule, so a stay ending on the day another begins does not overlap.
func (dr DateRange) Overlaps(other DateRange) bool {
	return dr.CheckIn.Before(other.CheckOut) && other.CheckIn.Before(dr.CheckOut)
}

func (dr DateRange) Adjacent(other DateRange) bool {
	return dr.CheckOut.Equal(other.CheckIn) || dr.CheckIn.Equal(other.CheckOut)
}

func (dr DateRange) ContainsDate(t time.Time) bool {
	t = Day(t)
	return !t.Before(dr.CheckIn) && t.Before(dr.CheckOut)
}

// StartsBefore reports whether check-in falls on a calendar day earlier than now's.
func (dr DateRange) StartsBefore(now time.Time) bool {
	return Day(dr.CheckIn).Before(Day(now))
}

// EndedBy reports whether the check-out day is today or earlier.
func (dr DateRange) EndedBy(now time.Time) bool {
	return !Day(dr.CheckOut).After(Day(now))
}

func (dr DateRange) String() string {
	return fmt.Sprintf("[%s, %s)", dr.CheckIn.Format(dayLayout), dr.CheckOut.Format(dayLayout))
}
