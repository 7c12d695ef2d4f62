package export_test

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/Household-Ledger-Backend/internal/export"
	"github.com/ndewijer/Household-Ledger-Backend/internal/model"
)

func day(s string) time.Time {
	d, err := time.Parse(model.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func assetTable() model.CacheTable {
	return model.CacheTable{
		Name:         "asset_cache_daily",
		Granularity:  model.Daily,
		KeyColumns:   []string{"asset", "type", "category", "subtype", "account"},
		ValueColumns: []string{"value", "acquisition_cost", "realized", "unrealized", "total_return"},
		Rows: []model.CacheRow{
			{
				Date:   day("2024-01-31"),
				Keys:   []string{"Savings", "safe", "cash", "ordinary_deposit", "North Bank"},
				Values: []float64{100, 100, 0, 0, 5},
			},
			{
				Date:   day("2024-02-01"),
				Keys:   []string{"Global Fund", "risky", "equity", "fund", "Broker"},
				Values: []float64{1234.56789, 1000, math.NaN(), 234.56789, 234.56789},
			},
		},
	}
}

func categoryTable() model.CacheTable {
	return model.CacheTable{
		Name:         "category_cache_monthly",
		Granularity:  model.Monthly,
		KeyColumns:   []string{},
		ValueColumns: []string{"asset_progress_ratio", "asset_actual_savings_rate", "cashflow_actual"},
		Rows: []model.CacheRow{
			{Date: day("2024-01-01"), Keys: []string{}, Values: []float64{0.5, math.NaN(), -40}},
			{Date: day("2024-02-01"), Keys: []string{}, Values: []float64{1.25, 0.8, -50.25}},
		},
	}
}

// TestEncode_Golden tests the CSV layout against golden files.
//
// WHY: Exports are consumed by spreadsheets and diffed between runs; the
// layout and number rendering must stay byte-stable.
func TestEncode_Golden(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	for _, table := range []model.CacheTable{assetTable(), categoryTable()} {
		t.Run(table.Name, func(t *testing.T) {
			var buf bytes.Buffer

			require.NoError(t, export.Encode(&buf, table))

			g.Assert(t, table.Name, buf.Bytes())
		})
	}
}

// TestFormatValue tests number rendering.
//
// WHY: Float noise must not leak into exports, and blanks must stay blank
// rather than becoming "NaN".
func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{100, "100"},
		{0.1 + 0.2, "0.3"},
		{-1234.56789, "-1234.5679"},
		{math.NaN(), ""},
		{math.Inf(1), ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, export.FormatValue(tt.in), "value %v", tt.in)
	}
}

// TestWriteAll tests publishing exports to a directory.
//
// WHY: The rename must leave only the final files behind.
func TestWriteAll(t *testing.T) {
	// Setup
	dir := filepath.Join(t.TempDir(), "out")

	// Execute
	paths, err := export.WriteAll(dir, []model.CacheTable{assetTable(), categoryTable()})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "asset_cache_daily.csv"),
		filepath.Join(dir, "category_cache_monthly.csv"),
	}, paths)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	data, err := os.ReadFile(paths[1])
	require.NoError(t, err)
	assert.Equal(t, "date,asset_progress_ratio,asset_actual_savings_rate,cashflow_actual\n", string(data[:bytes.IndexByte(data, '\n')+1]))
}
