package target

import (
	"fmt"
	"sort"
	"time"

	"github.com/ndewijer/Household-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Household-Ledger-Backend/internal/model"
)

// Linear returns the value of the named series on every day of rng, linearly
// interpolated between control points and held flat after the last one.
func Linear(name string, points []model.ControlPoint, rng model.DateRange) ([]float64, error) {
	pts, err := prepare(name, points, rng)
	if err != nil {
		return nil, err
	}

	out := make([]float64, 0, rng.Len())
	j := 0
	for _, d := range rng.Days() {
		for j+1 < len(pts) && !pts[j+1].Date.After(d) {
			j++
		}
		if j+1 == len(pts) {
			out = append(out, pts[j].Value)
			continue
		}
		lo, hi := pts[j], pts[j+1]
		span := hi.Date.Sub(lo.Date).Hours()
		frac := d.Sub(lo.Date).Hours() / span
		out = append(out, lo.Value+(hi.Value-lo.Value)*frac)
	}
	return out, nil
}

// StepHold returns the value of the most recent control point on or before
// each day of rng.
func StepHold(name string, points []model.ControlPoint, rng model.DateRange) ([]float64, error) {
	pts, err := prepare(name, points, rng)
	if err != nil {
		return nil, err
	}

	out := make([]float64, 0, rng.Len())
	j := 0
	for _, d := range rng.Days() {
		for j+1 < len(pts) && !pts[j+1].Date.After(d) {
			j++
		}
		out = append(out, pts[j].Value)
	}
	return out, nil
}

// prepare sorts the points by date, keeps the last point of each date and
// checks that the series covers the start of rng.
func prepare(name string, points []model.ControlPoint, rng model.DateRange) ([]model.ControlPoint, error) {
	fail := func(reason string) error {
		return &apperrors.RateScheduleError{
			Rate:   name,
			From:   model.DateKey(rng.Start),
			To:     model.DateKey(rng.End),
			Reason: reason,
		}
	}
	if !rng.Valid() {
		return nil, fail("empty date range")
	}
	if len(points) == 0 {
		return nil, fail("no control points")
	}

	sorted := make([]model.ControlPoint, len(points))
	copy(sorted, points)
	for i := range sorted {
		sorted[i].Date = model.Day(sorted[i].Date)
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	pts := sorted[:0]
	for _, p := range sorted {
		if n := len(pts); n > 0 && pts[n-1].Date.Equal(p.Date) {
			pts[n-1] = p
			continue
		}
		pts = append(pts, p)
	}

	if pts[0].Date.After(rng.Start) {
		return nil, fail(fmt.Sprintf("first control point %s is after range start", model.DateKey(pts[0].Date)))
	}
	return pts, nil
}

// daily converts annual rates to daily rates.
func daily(annual []float64) []float64 {
	out := make([]float64, len(annual))
	for i, v := range annual {
		out[i] = v / DaysPerYear
	}
	return out
}

// DaysPerYear converts between annual and daily rates.
const DaysPerYear = 365

func dayIndex(rng model.DateRange, d time.Time) int {
	return int(model.Day(d).Sub(rng.Start).Hours() / 24)
}
