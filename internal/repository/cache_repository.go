package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ndewijer/Household-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Household-Ledger-Backend/internal/model"
)

// CacheRepository stores rollup tables in long form: one cache_cell row per
// (table, row, column), with the column layout kept in cache_table.
type CacheRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewCacheRepository creates a new CacheRepository with the provided database connection.
func NewCacheRepository(db *sql.DB) *CacheRepository {
	return &CacheRepository{db: db}
}

// WithTx returns a new CacheRepository scoped to the provided transaction.
func (r *CacheRepository) WithTx(tx *sql.Tx) *CacheRepository {
	return &CacheRepository{
		db: r.db,
		tx: tx,
	}
}

func (r *CacheRepository) getQuerier() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

// ReplaceTables drops every stored cache table and writes tables.
//
// Parameters:
//   - ctx: Context for the operation
//   - tables: the complete set of rollup tables of one run
//   - refreshedAt: timestamp recorded on every table
//
// Returns an error if any write fails. Run inside WithTx so readers never see
// a partial set.
func (r *CacheRepository) ReplaceTables(ctx context.Context, tables []model.CacheTable, refreshedAt time.Time) error {
	if _, err := r.getQuerier().ExecContext(ctx, "DELETE FROM cache_cell"); err != nil {
		return fmt.Errorf("failed to clear cache_cell: %w", err)
	}
	if _, err := r.getQuerier().ExecContext(ctx, "DELETE FROM cache_table"); err != nil {
		return fmt.Errorf("failed to clear cache_table: %w", err)
	}

	cellStmt, err := r.getQuerier().PrepareContext(ctx, `
		INSERT INTO cache_cell (table_name, row_no, date, column_name, text_value, num_value)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare cache_cell insert: %w", err)
	}
	defer cellStmt.Close()

	for _, t := range tables {
		keyCols, err := json.Marshal(t.KeyColumns)
		if err != nil {
			return fmt.Errorf("failed to encode key columns of %s: %w", t.Name, err)
		}
		valueCols, err := json.Marshal(t.ValueColumns)
		if err != nil {
			return fmt.Errorf("failed to encode value columns of %s: %w", t.Name, err)
		}

		_, err = r.getQuerier().ExecContext(ctx, `
			INSERT INTO cache_table (name, granularity, key_columns, value_columns, row_count, refreshed_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, t.Name, string(t.Granularity), string(keyCols), string(valueCols), len(t.Rows), refreshedAt.UTC().Format(timestampLayout))
		if err != nil {
			return fmt.Errorf("failed to insert cache_table %s: %w", t.Name, err)
		}

		for i, row := range t.Rows {
			date := model.DateKey(row.Date)
			for k, col := range t.KeyColumns {
				if _, err := cellStmt.ExecContext(ctx, t.Name, i, date, col, row.Keys[k], nil); err != nil {
					return fmt.Errorf("failed to insert cache_cell %s[%d].%s: %w", t.Name, i, col, err)
				}
			}
			for v, col := range t.ValueColumns {
				if _, err := cellStmt.ExecContext(ctx, t.Name, i, date, col, nil, nullable(row.Values[v])); err != nil {
					return fmt.Errorf("failed to insert cache_cell %s[%d].%s: %w", t.Name, i, col, err)
				}
			}
		}
	}
	return nil
}

// LoadTable reads one stored table back into wide form. Blank cells are NaN.
func (r *CacheRepository) LoadTable(ctx context.Context, name string) (model.CacheTable, error) {
	var granularity, keyCols, valueCols string
	var rowCount int
	err := r.getQuerier().QueryRowContext(ctx, `
		SELECT granularity, key_columns, value_columns, row_count
		FROM cache_table
		WHERE name = ?
	`, name).Scan(&granularity, &keyCols, &valueCols, &rowCount)
	if errors.Is(err, sql.ErrNoRows) {
		return model.CacheTable{}, fmt.Errorf("%w: %s", apperrors.ErrCacheTableNotFound, name)
	}
	if err != nil {
		return model.CacheTable{}, fmt.Errorf("failed to query cache_table: %w", err)
	}

	table := model.CacheTable{Name: name, Granularity: model.Granularity(granularity)}
	if err := json.Unmarshal([]byte(keyCols), &table.KeyColumns); err != nil {
		return model.CacheTable{}, fmt.Errorf("failed to decode key columns: %w", err)
	}
	if err := json.Unmarshal([]byte(valueCols), &table.ValueColumns); err != nil {
		return model.CacheTable{}, fmt.Errorf("failed to decode value columns: %w", err)
	}

	keyIndex := make(map[string]int, len(table.KeyColumns))
	for i, c := range table.KeyColumns {
		keyIndex[c] = i
	}
	valueIndex := make(map[string]int, len(table.ValueColumns))
	for i, c := range table.ValueColumns {
		valueIndex[c] = i
	}

	table.Rows = make([]model.CacheRow, rowCount)
	for i := range table.Rows {
		table.Rows[i].Keys = make([]string, len(table.KeyColumns))
		table.Rows[i].Values = make([]float64, len(table.ValueColumns))
	}

	rows, err := r.getQuerier().QueryContext(ctx, `
		SELECT row_no, date, column_name, text_value, num_value
		FROM cache_cell
		WHERE table_name = ?
		ORDER BY row_no ASC
	`, name)
	if err != nil {
		return model.CacheTable{}, fmt.Errorf("failed to query cache_cell: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rowNo int
		var dateStr, column string
		var text sql.NullString
		var num sql.NullFloat64
		if err := rows.Scan(&rowNo, &dateStr, &column, &text, &num); err != nil {
			return model.CacheTable{}, fmt.Errorf("failed to scan cache_cell: %w", err)
		}
		if rowNo < 0 || rowNo >= rowCount {
			return model.CacheTable{}, fmt.Errorf("cache_cell row %d out of range for %s", rowNo, name)
		}

		row := &table.Rows[rowNo]
		if row.Date, err = ParseTime(dateStr); err != nil {
			return model.CacheTable{}, fmt.Errorf("failed to parse date: %w", err)
		}
		if i, ok := keyIndex[column]; ok {
			row.Keys[i] = text.String
		} else if i, ok := valueIndex[column]; ok {
			row.Values[i] = blankable(num)
		}
	}
	if err := rows.Err(); err != nil {
		return model.CacheTable{}, fmt.Errorf("error iterating cache_cell rows: %w", err)
	}
	return table, nil
}

// TableNames returns the stored table names in name order.
func (r *CacheRepository) TableNames(ctx context.Context) ([]string, error) {
	rows, err := r.getQuerier().QueryContext(ctx, "SELECT name FROM cache_table ORDER BY name ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query cache_table: %w", err)
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan cache_table: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cache_table rows: %w", err)
	}
	return names, nil
}
