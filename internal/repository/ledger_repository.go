package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ndewijer/Household-Ledger-Backend/internal/model"
)

// LedgerRepository provides data access methods for the asset_ledger,
// cashflow_ledger and target_ledger tables. Each ledger is replaced as a
// whole on every run; callers scope the replacement to one transaction with
// WithTx.
type LedgerRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewLedgerRepository creates a new LedgerRepository with the provided database connection.
func NewLedgerRepository(db *sql.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// WithTx returns a new LedgerRepository scoped to the provided transaction.
func (r *LedgerRepository) WithTx(tx *sql.Tx) *LedgerRepository {
	return &LedgerRepository{
		db: r.db,
		tx: tx,
	}
}

func (r *LedgerRepository) getQuerier() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

// LoadAssetLedger returns the stored asset ledger ordered by date and asset.
// Blank return fields are loaded as NaN.
func (r *LedgerRepository) LoadAssetLedger(ctx context.Context) (model.Ledger, error) {
	rows, err := r.getQuerier().QueryContext(ctx, `
		SELECT date, asset_id, type, category, subtype, account,
		       value, acquisition_cost, realized, unrealized, total_return
		FROM asset_ledger
		ORDER BY date ASC, asset_id ASC, subtype ASC
	`)
	if err != nil {
		return model.Ledger{}, fmt.Errorf("failed to query asset_ledger: %w", err)
	}
	defer rows.Close()

	var ledger model.Ledger
	for rows.Next() {
		var row model.LedgerRow
		var dateStr string
		var realized, unrealized, totalReturn sql.NullFloat64

		err := rows.Scan(
			&dateStr,
			&row.AssetID,
			&row.Type,
			&row.Category,
			&row.Subtype,
			&row.Account,
			&row.Value,
			&row.AcquisitionCost,
			&realized,
			&unrealized,
			&totalReturn,
		)
		if err != nil {
			return model.Ledger{}, fmt.Errorf("failed to scan asset_ledger row: %w", err)
		}

		row.Date, err = ParseTime(dateStr)
		if err != nil {
			return model.Ledger{}, fmt.Errorf("failed to parse date: %w", err)
		}
		row.Realized = blankable(realized)
		row.Unrealized = blankable(unrealized)
		row.TotalReturn = blankable(totalReturn)
		ledger.Rows = append(ledger.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return model.Ledger{}, fmt.Errorf("error iterating asset_ledger rows: %w", err)
	}
	return ledger, nil
}

// ReplaceAssetLedger deletes the stored asset ledger and writes ledger.
func (r *LedgerRepository) ReplaceAssetLedger(ctx context.Context, ledger model.Ledger) error {
	if _, err := r.getQuerier().ExecContext(ctx, "DELETE FROM asset_ledger"); err != nil {
		return fmt.Errorf("failed to clear asset_ledger: %w", err)
	}

	stmt, err := r.getQuerier().PrepareContext(ctx, `
		INSERT INTO asset_ledger (
			date, asset_id, type, category, subtype, account,
			value, acquisition_cost, realized, unrealized, total_return
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare asset_ledger insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range ledger.Rows {
		_, err := stmt.ExecContext(ctx,
			model.DateKey(row.Date),
			row.AssetID,
			row.Type,
			row.Category,
			row.Subtype,
			row.Account,
			row.Value,
			row.AcquisitionCost,
			nullable(row.Realized),
			nullable(row.Unrealized),
			nullable(row.TotalReturn),
		)
		if err != nil {
			return fmt.Errorf("failed to insert asset_ledger row %s/%s: %w", model.DateKey(row.Date), row.AssetID, err)
		}
	}
	return nil
}

// LoadCashFlowLedger returns the stored cash-flow ledger ordered by date and item.
func (r *LedgerRepository) LoadCashFlowLedger(ctx context.Context) (model.CashFlowLedger, error) {
	rows, err := r.getQuerier().QueryContext(ctx, `
		SELECT date, item, actual, target, flow_type, flow_category
		FROM cashflow_ledger
		ORDER BY date ASC, item ASC
	`)
	if err != nil {
		return model.CashFlowLedger{}, fmt.Errorf("failed to query cashflow_ledger: %w", err)
	}
	defer rows.Close()

	var ledger model.CashFlowLedger
	for rows.Next() {
		var row model.CashFlowRow
		var dateStr string
		if err := rows.Scan(&dateStr, &row.Item, &row.Actual, &row.Target, &row.FlowType, &row.FlowCategory); err != nil {
			return model.CashFlowLedger{}, fmt.Errorf("failed to scan cashflow_ledger row: %w", err)
		}
		if row.Date, err = ParseTime(dateStr); err != nil {
			return model.CashFlowLedger{}, fmt.Errorf("failed to parse date: %w", err)
		}
		ledger.Rows = append(ledger.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return model.CashFlowLedger{}, fmt.Errorf("error iterating cashflow_ledger rows: %w", err)
	}
	return ledger, nil
}

// ReplaceCashFlowLedger deletes the stored cash-flow ledger and writes ledger.
func (r *LedgerRepository) ReplaceCashFlowLedger(ctx context.Context, ledger model.CashFlowLedger) error {
	if _, err := r.getQuerier().ExecContext(ctx, "DELETE FROM cashflow_ledger"); err != nil {
		return fmt.Errorf("failed to clear cashflow_ledger: %w", err)
	}

	stmt, err := r.getQuerier().PrepareContext(ctx, `
		INSERT INTO cashflow_ledger (date, item, actual, target, flow_type, flow_category)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare cashflow_ledger insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range ledger.Rows {
		_, err := stmt.ExecContext(ctx, model.DateKey(row.Date), row.Item, row.Actual, row.Target, row.FlowType, row.FlowCategory)
		if err != nil {
			return fmt.Errorf("failed to insert cashflow_ledger row %s/%s: %w", model.DateKey(row.Date), row.Item, err)
		}
	}
	return nil
}

// LoadTargetLedger returns the stored target ledger in date order, three rows
// per date.
func (r *LedgerRepository) LoadTargetLedger(ctx context.Context) (model.TargetLedger, error) {
	rows, err := r.getQuerier().QueryContext(ctx, `
		SELECT date, asset_class, value, ratio, total_return, annualized_yield
		FROM target_ledger
		ORDER BY date ASC,
		         CASE asset_class WHEN 'safe' THEN 0 WHEN 'risky' THEN 1 ELSE 2 END
	`)
	if err != nil {
		return model.TargetLedger{}, fmt.Errorf("failed to query target_ledger: %w", err)
	}
	defer rows.Close()

	var ledger model.TargetLedger
	for rows.Next() {
		var row model.TargetRow
		var dateStr string
		var ratio, totalReturn, yield sql.NullFloat64
		if err := rows.Scan(&dateStr, &row.AssetClass, &row.Value, &ratio, &totalReturn, &yield); err != nil {
			return model.TargetLedger{}, fmt.Errorf("failed to scan target_ledger row: %w", err)
		}
		if row.Date, err = ParseTime(dateStr); err != nil {
			return model.TargetLedger{}, fmt.Errorf("failed to parse date: %w", err)
		}
		row.Ratio = blankable(ratio)
		row.TotalReturn = blankable(totalReturn)
		row.AnnualizedYield = blankable(yield)
		ledger.Rows = append(ledger.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return model.TargetLedger{}, fmt.Errorf("error iterating target_ledger rows: %w", err)
	}
	return ledger, nil
}

// ReplaceTargetLedger deletes the stored target ledger and writes ledger.
func (r *LedgerRepository) ReplaceTargetLedger(ctx context.Context, ledger model.TargetLedger) error {
	if _, err := r.getQuerier().ExecContext(ctx, "DELETE FROM target_ledger"); err != nil {
		return fmt.Errorf("failed to clear target_ledger: %w", err)
	}

	stmt, err := r.getQuerier().PrepareContext(ctx, `
		INSERT INTO target_ledger (date, asset_class, value, ratio, total_return, annualized_yield)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare target_ledger insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range ledger.Rows {
		_, err := stmt.ExecContext(ctx,
			model.DateKey(row.Date),
			row.AssetClass,
			row.Value,
			nullable(row.Ratio),
			nullable(row.TotalReturn),
			nullable(row.AnnualizedYield),
		)
		if err != nil {
			return fmt.Errorf("failed to insert target_ledger row %s/%s: %w", model.DateKey(row.Date), row.AssetClass, err)
		}
	}
	return nil
}
