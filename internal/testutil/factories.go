package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/ndewijer/Household-Ledger-Backend/internal/model"
	"github.com/ndewijer/Household-Ledger-Backend/internal/repository"
)

// AssetClassBuilder provides a fluent interface for creating taxonomy entries.
//
// Example usage:
//
//	// Pending entry
//	asset := testutil.NewAssetClass("New Fund").Build(t, db)
//
//	// Classified entry
//	asset := testutil.NewAssetClass("Index Fund").
//	    Classified(model.AssetTypeRisky, "equity", model.SubtypeFund).
//	    WithAccount("Broker").
//	    Build(t, db)
type AssetClassBuilder struct {
	class model.AssetClass
}

// NewAssetClass creates an AssetClassBuilder for a pending entry.
func NewAssetClass(id string) *AssetClassBuilder {
	return &AssetClassBuilder{class: model.AssetClass{ID: id}}
}

// Classified sets the type, category and subtype.
func (b *AssetClassBuilder) Classified(assetType, category, subtype string) *AssetClassBuilder {
	b.class.Type = assetType
	b.class.Category = category
	b.class.Subtype = subtype
	return b
}

// WithAccount sets the holding account.
func (b *AssetClassBuilder) WithAccount(account string) *AssetClassBuilder {
	b.class.Account = account
	return b
}

// Value returns the entry without writing it.
func (b *AssetClassBuilder) Value() model.AssetClass {
	return b.class
}

// Build creates the entry in the database and returns it.
func (b *AssetClassBuilder) Build(t *testing.T, db *sql.DB) model.AssetClass {
	t.Helper()

	repo := repository.NewTaxonomyRepository(db)
	if err := repo.UpsertAssetClasses(context.Background(), []model.AssetClass{b.class}); err != nil {
		t.Fatalf("Failed to create test asset class: %v", err)
	}
	return b.class
}

// CreateItems creates cash-flow item entries.
func CreateItems(t *testing.T, db *sql.DB, items ...model.CashFlowItem) {
	t.Helper()

	repo := repository.NewTaxonomyRepository(db)
	if err := repo.UpsertItems(context.Background(), items); err != nil {
		t.Fatalf("Failed to create test cash-flow items: %v", err)
	}
}

// RunBuilder provides a fluent interface for creating pipeline run records.
type RunBuilder struct {
	run model.PipelineRun
}

// NewRun creates a RunBuilder for a running run started at startedAt.
func NewRun(startedAt time.Time) *RunBuilder {
	return &RunBuilder{run: model.PipelineRun{
		ID:        MakeID(),
		Trigger:   "test",
		Status:    model.RunStatusRunning,
		StartedAt: startedAt,
	}}
}

// Failed marks the run as failed in stage with message.
func (b *RunBuilder) Failed(stage, message string) *RunBuilder {
	finished := b.run.StartedAt.Add(time.Minute)
	b.run.Status = model.RunStatusFailed
	b.run.FinishedAt = &finished
	b.run.Stage = stage
	b.run.Error = message
	return b
}

// Succeeded marks the run as succeeded for latestDate.
func (b *RunBuilder) Succeeded(latestDate string) *RunBuilder {
	finished := b.run.StartedAt.Add(time.Minute)
	b.run.Status = model.RunStatusSucceeded
	b.run.FinishedAt = &finished
	b.run.LatestDate = latestDate
	return b
}

// Build creates the run in the database and returns it.
func (b *RunBuilder) Build(t *testing.T, db *sql.DB) model.PipelineRun {
	t.Helper()

	repo := repository.NewRunRepository(db)
	ctx := context.Background()
	if err := repo.Insert(ctx, &b.run); err != nil {
		t.Fatalf("Failed to create test run: %v", err)
	}
	if b.run.Status != model.RunStatusRunning {
		if err := repo.Finish(ctx, &b.run); err != nil {
			t.Fatalf("Failed to finish test run: %v", err)
		}
	}
	return b.run
}

// Row builds a ledger row with blank return fields.
func Row(date, assetID string, value, cost float64) model.LedgerRow {
	return model.LedgerRow{
		Date:            Date(date),
		AssetID:         assetID,
		Value:           value,
		AcquisitionCost: cost,
		Realized:        model.Blank(),
		Unrealized:      model.Blank(),
		TotalReturn:     model.Blank(),
	}
}

// Snapshot builds one raw feed row.
func Snapshot(date, assetID, account string, value, cost float64) model.Snapshot {
	return model.Snapshot{
		Date:            Date(date),
		AssetID:         assetID,
		Account:         account,
		Value:           value,
		AcquisitionCost: cost,
	}
}

// Date parses a YYYY-MM-DD literal and panics on malformed input.
func Date(s string) time.Time {
	d, err := time.Parse(model.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}
