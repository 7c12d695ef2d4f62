// Package feed reads the CSV inputs of a run: raw snapshots, the transaction
// export, taxonomy sheets and unrealized offsets.
package feed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Household-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Household-Ledger-Backend/internal/model"
)

// Header sets of each feed. Extra columns are ignored.
var (
	SnapshotHeader    = []string{"date", "asset", "account", "value", "acquisition_cost"}
	TransactionHeader = []string{"date", "amount", "account", "major", "minor", "description", "memo"}
	AssetClassHeader  = []string{"asset", "type", "category", "subtype", "account"}
	ItemHeader        = []string{"item", "flow_type", "flow_category"}
	OffsetHeader      = []string{"asset", "offset"}
)

var dateLayouts = []string{model.DateLayout, "2006/01/02", "2006.01.02"}

// record is one data row addressed by column name.
type record struct {
	line   int
	fields map[string]string
}

func (r record) get(column string) string {
	return strings.TrimSpace(r.fields[column])
}

func (r record) date(column string) (time.Time, error) {
	v := r.get(column)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("line %d: invalid %s %q", r.line, column, v)
}

// amount parses a decimal amount. Thousands separators are accepted and an
// empty cell is zero.
func (r record) amount(column string) (float64, error) {
	v := strings.NewReplacer(",", "", " ", "").Replace(r.get(column))
	if v == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return 0, fmt.Errorf("line %d: invalid %s %q: %w", r.line, column, r.get(column), err)
	}
	return d.InexactFloat64(), nil
}

func readRecords(r io.Reader, name string, required []string) ([]record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %s feed is empty", apperrors.ErrInvalidCSVHeaders, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s header: %w", name, err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		index[h] = i
	}
	var missing []string
	for _, col := range required {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s feed is missing %s", apperrors.ErrInvalidCSVHeaders, name, strings.Join(missing, ", "))
	}

	var out []record
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		if blankRow(row) {
			continue
		}
		fields := make(map[string]string, len(required))
		for _, col := range required {
			if i := index[col]; i < len(row) {
				fields[col] = row[i]
			}
		}
		out = append(out, record{line: line, fields: fields})
	}
	return out, nil
}

func blankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// ReadSnapshots reads the raw snapshot feed.
func ReadSnapshots(r io.Reader) ([]model.Snapshot, error) {
	records, err := readRecords(r, "snapshot", SnapshotHeader)
	if err != nil {
		return nil, err
	}
	out := make([]model.Snapshot, 0, len(records))
	for _, rec := range records {
		d, err := rec.date("date")
		if err != nil {
			return nil, err
		}
		value, err := rec.amount("value")
		if err != nil {
			return nil, err
		}
		cost, err := rec.amount("acquisition_cost")
		if err != nil {
			return nil, err
		}
		id := rec.get("asset")
		if id == "" {
			return nil, fmt.Errorf("line %d: asset is required", rec.line)
		}
		out = append(out, model.Snapshot{
			Date:            d,
			AssetID:         id,
			Account:         rec.get("account"),
			Value:           value,
			AcquisitionCost: cost,
		})
	}
	return out, nil
}

// ReadTransactions reads the raw transaction export.
func ReadTransactions(r io.Reader) ([]model.Transaction, error) {
	records, err := readRecords(r, "transaction", TransactionHeader)
	if err != nil {
		return nil, err
	}
	out := make([]model.Transaction, 0, len(records))
	for _, rec := range records {
		d, err := rec.date("date")
		if err != nil {
			return nil, err
		}
		amount, err := rec.amount("amount")
		if err != nil {
			return nil, err
		}
		out = append(out, model.Transaction{
			Date:        d,
			Amount:      amount,
			Account:     rec.get("account"),
			Major:       rec.get("major"),
			Minor:       rec.get("minor"),
			Description: rec.get("description"),
			Memo:        rec.get("memo"),
		})
	}
	return out, nil
}

// ReadAssetClasses reads an asset taxonomy sheet.
func ReadAssetClasses(r io.Reader) ([]model.AssetClass, error) {
	records, err := readRecords(r, "asset taxonomy", AssetClassHeader)
	if err != nil {
		return nil, err
	}
	out := make([]model.AssetClass, 0, len(records))
	for _, rec := range records {
		id := rec.get("asset")
		if id == "" {
			return nil, fmt.Errorf("line %d: asset is required", rec.line)
		}
		out = append(out, model.AssetClass{
			ID:       id,
			Type:     rec.get("type"),
			Category: rec.get("category"),
			Subtype:  rec.get("subtype"),
			Account:  rec.get("account"),
		})
	}
	return out, nil
}

// ReadCashFlowItems reads a cash-flow item taxonomy sheet.
func ReadCashFlowItems(r io.Reader) ([]model.CashFlowItem, error) {
	records, err := readRecords(r, "item taxonomy", ItemHeader)
	if err != nil {
		return nil, err
	}
	out := make([]model.CashFlowItem, 0, len(records))
	for _, rec := range records {
		item := rec.get("item")
		if item == "" {
			return nil, fmt.Errorf("line %d: item is required", rec.line)
		}
		category := rec.get("flow_category")
		if category != model.FlowCategoryIncome && category != model.FlowCategoryExpense {
			return nil, fmt.Errorf("line %d: flow_category must be %s or %s, got %q",
				rec.line, model.FlowCategoryIncome, model.FlowCategoryExpense, category)
		}
		out = append(out, model.CashFlowItem{
			Item:         item,
			FlowType:     rec.get("flow_type"),
			FlowCategory: category,
		})
	}
	return out, nil
}

// ReadOffsets reads the per-asset unrealized profit offsets.
func ReadOffsets(r io.Reader) ([]model.UnrealizedOffset, error) {
	records, err := readRecords(r, "offset", OffsetHeader)
	if err != nil {
		return nil, err
	}
	out := make([]model.UnrealizedOffset, 0, len(records))
	for _, rec := range records {
		offset, err := rec.amount("offset")
		if err != nil {
			return nil, err
		}
		out = append(out, model.UnrealizedOffset{AssetID: rec.get("asset"), Offset: offset})
	}
	return out, nil
}

// ReadFile opens path and decodes it with read.
func ReadFile[T any](path string, read func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	out, err := read(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return out, nil
}
