// Package derive holds the pure computations the workflow depends on:
// durations, variance against plan, expense ventilation and monthly totals.
package derive

import (
	"math"

	"github.com/garyjia/shared-staff/internal/domain/apperror"
	"github.com/garyjia/shared-staff/internal/domain/entity"
)

// Interval is a start/end pair of wall-clock times on the same day
type Interval struct {
	Start entity.TimeOfDay
	End   entity.TimeOfDay
}

// Hours returns the interval's duration in hours
func (i Interval) Hours() (float64, error) {
	return DurationHours(i.Start, i.End)
}

// DurationHours returns end-start in hours. end must be strictly after start.
func DurationHours(start, end entity.TimeOfDay) (float64, error) {
	s, err := start.Parse()
	if err != nil {
		return 0, apperror.Validation("duration", "%v", err)
	}
	e, err := end.Parse()
	if err != nil {
		return 0, apperror.Validation("duration", "%v", err)
	}
	if !e.After(s) {
		return 0, apperror.Validation("duration", "end time %s must be after start time %s", end, start)
	}
	return e.Sub(s).Hours(), nil
}

// VarianceVsPlan returns actual minus planned hours, rounded to the hundredth.
// A nil plan means no approved plan exists and yields 0.
func VarianceVsPlan(actual Interval, plan *Interval) (float64, error) {
	actualHours, err := actual.Hours()
	if err != nil {
		return 0, err
	}
	if plan == nil {
		return 0, nil
	}
	planHours, err := plan.Hours()
	if err != nil {
		return 0, err
	}
	return roundHours(actualHours - planHours), nil
}

func roundHours(h float64) float64 {
	return math.Round(h*100) / 100
}
