// Package export writes cache tables as CSV files.
package export

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Household-Ledger-Backend/internal/model"
)

// Precision is the number of decimal places written for numeric cells.
const Precision = 4

// FormatValue renders v with at most Precision decimals and no trailing
// zeros. Blank values render as an empty cell.
func FormatValue(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return decimal.NewFromFloat(v).Round(Precision).String()
}

// Encode writes table as CSV: a header row of date, key and value column
// names followed by one line per row.
func Encode(w io.Writer, table model.CacheTable) error {
	cw := csv.NewWriter(w)

	header := make([]string, 0, 1+len(table.KeyColumns)+len(table.ValueColumns))
	header = append(header, "date")
	header = append(header, table.KeyColumns...)
	header = append(header, table.ValueColumns...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	record := make([]string, len(header))
	for _, row := range table.Rows {
		record = record[:0]
		record = append(record, model.DateKey(row.Date))
		record = append(record, row.Keys...)
		for _, v := range row.Values {
			record = append(record, FormatValue(v))
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write row %s: %w", model.DateKey(row.Date), err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteTable writes table to dir/<name>.csv. The file is written to a
// temporary name in dir and renamed into place, so readers never observe a
// partial export.
func WriteTable(dir string, table model.CacheTable) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+table.Name+"-*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// Removing after a successful rename fails harmlessly.
		_ = os.Remove(tmpName)
	}()

	buf := bufio.NewWriter(tmp)
	if err := Encode(buf, table); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to encode %s: %w", table.Name, err)
	}
	if err := buf.Flush(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to flush %s: %w", table.Name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to sync %s: %w", table.Name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", table.Name, err)
	}

	path := filepath.Join(dir, table.Name+".csv")
	if err := os.Rename(tmpName, path); err != nil {
		return "", fmt.Errorf("failed to publish %s: %w", table.Name, err)
	}
	return path, nil
}

// WriteAll exports every table and returns the written paths in order.
func WriteAll(dir string, tables []model.CacheTable) ([]string, error) {
	paths := make([]string, 0, len(tables))
	for _, t := range tables {
		p, err := WriteTable(dir, t)
		if err != nil {
			return paths, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}
