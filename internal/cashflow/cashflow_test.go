package cashflow_test

import (
	"testing"
	"time"

	"github.com/ndewijer/Household-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Household-Ledger-Backend/internal/cashflow"
	"github.com/ndewijer/Household-Ledger-Backend/internal/model"
	"github.com/ndewijer/Household-Ledger-Backend/internal/taxonomy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	d, err := time.Parse(model.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func sampleTaxonomy() *taxonomy.Taxonomy {
	return taxonomy.New(
		[]model.AssetClass{
			{ID: "Card Points", Type: model.AssetTypeSafe, Category: "points", Subtype: model.SubtypePoints, Account: "Card"},
		},
		[]model.CashFlowItem{
			{Item: "salary", FlowType: model.FlowTypeGeneral, FlowCategory: model.FlowCategoryIncome},
			{Item: "groceries", FlowType: model.FlowTypeGeneral, FlowCategory: model.FlowCategoryExpense},
			{Item: "rent", FlowType: model.FlowTypeGeneral, FlowCategory: model.FlowCategoryExpense},
			{Item: cashflow.PointsItem, FlowType: model.FlowTypeSpecial, FlowCategory: model.FlowCategoryIncome},
		},
	)
}

func sampleRules() []cashflow.Rule {
	return []cashflow.Rule{
		{Item: "salary", Conditions: []cashflow.Condition{{"major": "Income", "description": "ACME"}}},
		{Item: "groceries", Conditions: []cashflow.Condition{{"major": "Food"}, {"description": "Market"}}},
		{Item: "rent", Conditions: []cashflow.Condition{{"minor": "Rent"}}},
	}
}

func pointsRow(date string, value float64) model.LedgerRow {
	return model.LedgerRow{Date: day(date), AssetID: "Card Points", Subtype: model.SubtypePoints, Value: value}
}

type cellKey struct {
	date string
	item string
}

func byCell(l model.CashFlowLedger) map[cellKey]model.CashFlowRow {
	out := make(map[cellKey]model.CashFlowRow, len(l.Rows))
	for _, r := range l.Rows {
		out[cellKey{model.DateKey(r.Date), r.Item}] = r
	}
	return out
}

// TestBuild tests classification, target merge and the points item.
//
// WHY: The cash-flow ledger must be dense (every day × every item) so the
// cache sums and the simulator can index it without gaps.
func TestBuild(t *testing.T) {
	// Setup
	txns := []model.Transaction{
		{Date: day("2024-01-01"), Amount: 3000, Major: "Income", Description: "ACME Payroll"},
		{Date: day("2024-01-01"), Amount: -50, Major: "Food"},
		{Date: day("2024-01-02"), Amount: -20, Major: "Misc", Description: "Night Market"},
		{Date: day("2024-01-02"), Amount: -999, Major: "Misc", Description: "unknown"},
		{Date: day("2024-01-02"), Amount: 10, Major: "Income", Description: "ＡＣＭＥ bonus"},
		{Date: day("2024-01-03"), Amount: -800, Minor: "Rent"},
		{Date: day("2023-12-31"), Amount: 100, Major: "Income", Description: "ACME"},
	}
	targets := []model.CashFlowRow{
		{Date: day("2024-01-01"), Item: "salary", Target: 3000},
		{Date: day("2024-01-03"), Item: "rent", Target: -800},
	}
	ledger := model.Ledger{Rows: []model.LedgerRow{
		pointsRow("2023-12-31", 100),
		pointsRow("2024-01-01", 100),
		pointsRow("2024-01-02", 130),
		pointsRow("2024-01-03", 125),
	}}
	rng := model.NewDateRange(day("2024-01-01"), day("2024-01-03"))

	// Execute
	out, err := cashflow.Build(txns, sampleRules(), sampleTaxonomy(), targets, rng, ledger)

	// Assert
	require.NoError(t, err)
	require.Len(t, out.Rows, 12)
	assert.Equal(t, "groceries", out.Rows[0].Item)
	assert.Equal(t, day("2024-01-01"), out.Rows[0].Date)

	cells := byCell(out)
	tests := []struct {
		date   string
		item   string
		actual float64
		target float64
	}{
		{"2024-01-01", "salary", 3000, 3000},
		{"2024-01-01", "groceries", -50, 0},
		{"2024-01-01", cashflow.PointsItem, 0, 0},
		{"2024-01-02", "groceries", -20, 0},
		{"2024-01-02", "salary", 10, 0},
		{"2024-01-02", cashflow.PointsItem, 30, 0},
		{"2024-01-03", "rent", -800, -800},
		{"2024-01-03", cashflow.PointsItem, -5, 0},
		{"2024-01-03", "salary", 0, 0},
	}
	for _, tt := range tests {
		c := cells[cellKey{tt.date, tt.item}]
		assert.Equal(t, tt.actual, c.Actual, "actual %s %s", tt.date, tt.item)
		assert.Equal(t, tt.target, c.Target, "target %s %s", tt.date, tt.item)
	}
	assert.Equal(t, model.FlowCategoryExpense, cells[cellKey{"2024-01-03", "rent"}].FlowCategory)
	assert.Equal(t, model.FlowTypeSpecial, cells[cellKey{"2024-01-02", cashflow.PointsItem}].FlowType)
}

// TestBuild_UnknownItem tests that unclassified items stop the stage.
//
// WHY: An item without a flow category cannot be signed or rolled up.
func TestBuild_UnknownItem(t *testing.T) {
	// Setup
	rules := append(sampleRules(), cashflow.Rule{Item: "bonus", Conditions: []cashflow.Condition{{"minor": "Bonus"}}})
	rng := model.NewDateRange(day("2024-01-01"), day("2024-01-01"))

	// Execute
	_, err := cashflow.Build(nil, rules, sampleTaxonomy(), nil, rng, model.Ledger{})

	// Assert
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrContinuity)
	var ce *apperrors.ContinuityError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, cashflow.Stage, ce.Stage)
	assert.Equal(t, []string{"bonus"}, ce.Identifiers)
}

// TestClassify tests rule precedence and condition semantics.
//
// WHY: Rules overlap in practice; the first matching rule must win so the
// policy file order is the tie-breaker.
func TestClassify(t *testing.T) {
	rules := []cashflow.Rule{
		{Item: "dining", Conditions: []cashflow.Condition{{"major": "Food", "minor": "Dining"}}},
		{Item: "groceries", Conditions: []cashflow.Condition{{"major": "Food"}}},
	}

	tests := []struct {
		name     string
		txn      model.Transaction
		wantItem string
		wantOK   bool
	}{
		{"all terms of a condition must hold", model.Transaction{Major: "Food", Minor: "Dining out"}, "dining", true},
		{"falls through to the next rule", model.Transaction{Major: "Food", Minor: "Supermarket"}, "groceries", true},
		{"no rule matches", model.Transaction{Major: "Travel"}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item, ok := cashflow.Classify(rules, tt.txn)

			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantItem, item)
		})
	}

	t.Run("empty condition matches nothing", func(t *testing.T) {
		assert.False(t, cashflow.Condition{}.Matches(model.Transaction{Major: "Food"}))
	})
}

// TestValidateRules tests rule validation.
//
// WHY: A typo in a column name would silently classify nothing.
func TestValidateRules(t *testing.T) {
	assert.NoError(t, cashflow.ValidateRules(sampleRules()))

	err := cashflow.ValidateRules([]cashflow.Rule{{Item: "x", Conditions: []cashflow.Condition{{"payee": "x"}}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown column "payee"`)

	assert.Error(t, cashflow.ValidateRules([]cashflow.Rule{{Conditions: []cashflow.Condition{{"major": "x"}}}}))
	assert.Error(t, cashflow.ValidateRules([]cashflow.Rule{{Item: "x"}}))
}

// TestTargetSums tests the per-day target helpers used by the simulator.
//
// WHY: The simulator indexes these slices by day offset; a row outside the
// range must not shift or extend them.
func TestTargetSums(t *testing.T) {
	rows := []model.CashFlowRow{
		{Date: day("2024-01-01"), Item: "salary", Target: 100},
		{Date: day("2024-01-01"), Item: "loan repayment", Target: -30},
		{Date: day("2024-01-02"), Item: "loan repayment", Target: -30},
		{Date: day("2024-01-05"), Item: "salary", Target: 100},
	}
	rng := model.NewDateRange(day("2024-01-01"), day("2024-01-02"))

	assert.Equal(t, []float64{70, -30}, cashflow.NetTarget(rows, rng))
	assert.Equal(t, []float64{-30, -30}, cashflow.ItemTarget(rows, rng, []string{"loan repayment"}))
}
