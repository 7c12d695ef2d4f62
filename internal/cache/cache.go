package cache

import (
	"fmt"

	"github.com/ndewijer/Household-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Household-Ledger-Backend/internal/model"
)

// Stage is the stage name reported when materialization fails.
const Stage = "cache"

// Materialize builds the asset and category rollup tables of granularity g
// over window. Every table is fully regenerated; inputs are not modified.
//
// Parameters:
//   - ledger: the reconciled asset ledger
//   - cashFlows: the cash-flow ledger with actual and target amounts
//   - targets: the simulated target ledger
//   - g: daily, monthly or yearly
//   - window: inclusive date range to roll up, usually from Window
//
// Returns the asset table, the category table, or a *apperrors.SourceDataError
// when any source has no rows inside window.
func Materialize(ledger model.Ledger, cashFlows model.CashFlowLedger, targets model.TargetLedger, g model.Granularity, window model.DateRange) (model.CacheTable, model.CacheTable, error) {
	if !window.Valid() {
		return model.CacheTable{}, model.CacheTable{}, fmt.Errorf("%w: %s", apperrors.ErrInvalidDateRange, window)
	}

	ledgerRows := make([]model.LedgerRow, 0, len(ledger.Rows))
	for _, r := range ledger.Rows {
		if window.Contains(r.Date) {
			ledgerRows = append(ledgerRows, r)
		}
	}
	cashRows := make([]model.CashFlowRow, 0, len(cashFlows.Rows))
	for _, r := range cashFlows.Rows {
		if window.Contains(r.Date) {
			cashRows = append(cashRows, r)
		}
	}
	targetRows := make([]model.TargetRow, 0, len(targets.Rows))
	for _, r := range targets.Rows {
		if window.Contains(r.Date) {
			targetRows = append(targetRows, r)
		}
	}

	sources := []struct {
		table string
		rows  int
	}{
		{"asset_ledger", len(ledgerRows)},
		{"cashflow_ledger", len(cashRows)},
		{"target_ledger", len(targetRows)},
	}
	for _, src := range sources {
		if src.rows == 0 {
			return model.CacheTable{}, model.CacheTable{}, &apperrors.SourceDataError{
				Table: src.table,
				From:  model.DateKey(window.Start),
				To:    model.DateKey(window.End),
			}
		}
	}

	return assetTable(ledgerRows, g), categoryTable(ledgerRows, cashRows, targetRows, g, window), nil
}

// MaterializeAll builds both tables for every granularity, windowed by
// Window over span (ledger start to latest known date). Tables come back as
// asset then category for daily, monthly and yearly in turn. A granularity
// without a closed period yields header-only tables.
func MaterializeAll(ledger model.Ledger, cashFlows model.CashFlowLedger, targets model.TargetLedger, span model.DateRange) ([]model.CacheTable, error) {
	tables := make([]model.CacheTable, 0, 2*len(model.Granularities))
	for _, g := range model.Granularities {
		window := Window(g, span.End, span.Start)
		if !window.Valid() {
			// No closed period yet, e.g. a ledger younger than one month.
			tables = append(tables, assetTable(nil, g), categoryTable(nil, nil, nil, g, window))
			continue
		}
		asset, category, err := Materialize(ledger, cashFlows, targets, g, window)
		if err != nil {
			return nil, fmt.Errorf("failed to materialize %s caches: %w", g, err)
		}
		tables = append(tables, asset, category)
	}
	return tables, nil
}
