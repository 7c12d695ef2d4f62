package cache

import (
	"time"

	"github.com/ndewijer/Household-Ledger-Backend/internal/model"
)

// History depth of each granularity.
const (
	dailyYears    = 1
	periodicYears = 12
)

// Window returns the date range a cache table of granularity g covers, given
// the latest known date and the first ledger date.
//
// Daily tables cover one year back from the first of the latest month up to
// latest. Monthly and yearly tables cover twelve years back up to the end of
// the month before latest, so only closed months are aggregated.
func Window(g model.Granularity, latest, ledgerStart time.Time) model.DateRange {
	latest = model.Day(latest)
	ledgerStart = model.Day(ledgerStart)
	monthStart := model.Monthly.PeriodStart(latest)

	var from, to time.Time
	switch g {
	case model.Monthly:
		from = monthStart.AddDate(-periodicYears, 0, 0)
		to = monthStart.AddDate(0, 0, -1)
	case model.Yearly:
		from = model.Yearly.PeriodStart(monthStart.AddDate(-periodicYears, 0, 0))
		to = monthStart.AddDate(0, 0, -1)
	default:
		from = monthStart.AddDate(-dailyYears, 0, 0)
		to = latest
	}
	if from.Before(ledgerStart) {
		from = ledgerStart
	}
	return model.DateRange{Start: from, End: to}
}
