package model

import "time"

// Granularity of a cache table.
type Granularity string

const (
	Daily   Granularity = "daily"
	Monthly Granularity = "monthly"
	Yearly  Granularity = "yearly"
)

// Granularities lists every supported granularity in output order.
var Granularities = []Granularity{Daily, Monthly, Yearly}

// PeriodStart returns the first day of the period containing d.
func (g Granularity) PeriodStart(d time.Time) time.Time {
	d = Day(d)
	switch g {
	case Monthly:
		return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	case Yearly:
		return time.Date(d.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return d
}

// Next returns the start of the period following the one starting at d.
func (g Granularity) Next(d time.Time) time.Time {
	switch g {
	case Monthly:
		return d.AddDate(0, 1, 0)
	case Yearly:
		return d.AddDate(1, 0, 0)
	}
	return d.AddDate(0, 0, 1)
}

// CacheRow is one row of a cache table: text key cells followed by numbers.
type CacheRow struct {
	Date   time.Time
	Keys   []string
	Values []float64
}

// CacheTable is a fully regenerated rollup table. KeyColumns name the text
// cells of every row after the date; ValueColumns name the numeric cells.
type CacheTable struct {
	Name         string
	Granularity  Granularity
	KeyColumns   []string
	ValueColumns []string
	Rows         []CacheRow
}

// Len returns the number of rows.
func (t CacheTable) Len() int {
	return len(t.Rows)
}

// Column returns the values of the named numeric column, or nil.
func (t CacheTable) Column(name string) []float64 {
	idx := -1
	for i, c := range t.ValueColumns {
		if c == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	out := make([]float64, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.Values[idx]
	}
	return out
}
