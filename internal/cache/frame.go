package cache

import (
	"math"
	"time"
)

type aggregation int

const (
	aggLast aggregation = iota
	aggSum
)

// frame accumulates per-day sums of named columns and reduces them per
// period. Blank (NaN) inputs are skipped.
type frame struct {
	names []string
	aggs  []aggregation
	index map[string]int
	days  map[time.Time][]float64
}

func newFrame() *frame {
	return &frame{index: make(map[string]int), days: make(map[time.Time][]float64)}
}

func (f *frame) column(name string, agg aggregation) {
	if _, ok := f.index[name]; ok {
		return
	}
	f.index[name] = len(f.names)
	f.names = append(f.names, name)
	f.aggs = append(f.aggs, agg)
}

// touch records that d has data even when every value is blank.
func (f *frame) touch(d time.Time) []float64 {
	vals, ok := f.days[d]
	if !ok {
		vals = make([]float64, len(f.names))
		f.days[d] = vals
	}
	return vals
}

func (f *frame) add(d time.Time, name string, v float64) {
	vals := f.touch(d)
	if math.IsNaN(v) {
		return
	}
	if i, ok := f.index[name]; ok {
		vals[i] += v
	}
}

// reduce aggregates the days in [from, to]: "last" columns take the latest
// day with data, "sum" columns add every day. A period without data is zero.
func (f *frame) reduce(from, to time.Time) []float64 {
	out := make([]float64, len(f.names))
	var lastDay []float64
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		vals, ok := f.days[d]
		if !ok {
			continue
		}
		lastDay = vals
		for i, agg := range f.aggs {
			if agg == aggSum {
				out[i] += vals[i]
			}
		}
	}
	if lastDay != nil {
		for i, agg := range f.aggs {
			if agg == aggLast {
				out[i] = lastDay[i]
			}
		}
	}
	return out
}
