package model

import (
	"math"
	"time"
)

// Snapshot is one raw feed row: the observed value of an asset on a date.
type Snapshot struct {
	Date            time.Time
	AssetID         string
	Account         string
	Value           float64
	AcquisitionCost float64
}

// LedgerRow is one (date, asset) row of the daily asset ledger.
// Realized, Unrealized and TotalReturn are NaN when blank.
type LedgerRow struct {
	Date            time.Time
	AssetID         string
	Type            string
	Category        string
	Subtype         string
	Account         string
	Value           float64
	AcquisitionCost float64
	Realized        float64
	Unrealized      float64
	TotalReturn     float64
}

// Blank returns a NaN placeholder for an unset return field.
func Blank() float64 {
	return math.NaN()
}

// IsBlank reports whether v is the blank placeholder.
func IsBlank(v float64) bool {
	return math.IsNaN(v)
}

// OrZero maps blank to zero.
func OrZero(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}

// Key returns the (date, asset) primary key of the row.
func (r LedgerRow) Key() LedgerKey {
	return LedgerKey{Date: DateKey(r.Date), AssetID: r.AssetID}
}

// LedgerKey is the primary key of a ledger row.
type LedgerKey struct {
	Date    string
	AssetID string
}

// Ledger is the ordered daily asset ledger.
type Ledger struct {
	Rows []LedgerRow
}

// Len returns the number of rows.
func (l Ledger) Len() int {
	return len(l.Rows)
}

// LatestDate returns the greatest date in the ledger, or the zero time.
func (l Ledger) LatestDate() time.Time {
	var latest time.Time
	for _, r := range l.Rows {
		if r.Date.After(latest) {
			latest = r.Date
		}
	}
	return latest
}

// EarliestDate returns the smallest date in the ledger, or the zero time.
func (l Ledger) EarliestDate() time.Time {
	var earliest time.Time
	for i, r := range l.Rows {
		if i == 0 || r.Date.Before(earliest) {
			earliest = r.Date
		}
	}
	return earliest
}

// Clone returns a deep copy so stages never mutate their input.
func (l Ledger) Clone() Ledger {
	rows := make([]LedgerRow, len(l.Rows))
	copy(rows, l.Rows)
	return Ledger{Rows: rows}
}
