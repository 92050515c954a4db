package daterange

import (
	"errors"
	"time"
)

var (
	ErrInvalidRange = errors.New("daterange: end must be after start")
)

const day = 24 * time.Hour

// DateRange represents a half-open interval [Start, End).
type DateRange struct {
	Start time.Time
	End   time.Time
}

// New keeps the caller's offsets; comparisons are instant based.
func New(start, end time.Time) (DateRange, error) {
	dr := DateRange{Start: start, End: end}
	if err := dr.Validate(); err != nil {
		return DateRange{}, err
	}
	return dr, nil
}

func (dr DateRange) Validate() error {
	if dr.Start.IsZero() || dr.End.IsZero() {
		return ErrInvalidRange
	}
	if !dr.End.After(dr.Start) {
		return ErrInvalidRange
	}
	return nil
}

// Nights counts whole days between Start and End, partial days are dropped.
func (dr DateRange) Nights() int {
	return int(dr.End.Sub(dr.Start) / day)
}

func (dr DateRange) Overlaps(other DateRange) bool {
	return !(!dr.End.After(other.Start) || !dr.Start.Before(other.End))
}

