package testutil

import (
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/ndewijer/Household-Ledger-Backend/internal/config"
	"github.com/ndewijer/Household-Ledger-Backend/internal/model"
	"github.com/ndewijer/Household-Ledger-Backend/internal/repository"
	"github.com/ndewijer/Household-Ledger-Backend/internal/service"
)

// SamplePolicy is a minimal policy covering every rate series, a monthly
// salary, a loan repayment and two classification rules.
const SamplePolicy = `
simulation:
  start: 2024-01-01
  initial_asset: 6000
  initial_loan: -50000

rates:
  risky_ratio:
    - { date: 2024-01-01, value: 0.4 }
  safe_yield:
    - { date: 2024-01-01, value: 0.02 }
  risky_yield:
    - { date: 2024-01-01, value: 0.05 }
  loan_rate:
    - { date: 2024-01-01, value: 0.015 }

planned_flows:
  - item: salary
    amount: 3000
    start: 2024-01-01
    day: 25
  - item: loan repayment
    amount: 400
    start: 2024-01-01
    day: 27

loan_items:
  - loan repayment

classification:
  - item: salary
    conditions:
      - { major: Income, description: ACME }
  - item: groceries
    conditions:
      - { major: Food }
`

// NewTestLogger returns a logger that discards output and records entries.
func NewTestLogger(t *testing.T) (*logrus.Logger, *logtest.Hook) {
	t.Helper()

	log, hook := logtest.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	return log, hook
}

// NewTestPipelineService creates a PipelineService that reads fixed inputs.
// An empty outputDir disables the CSV export.
func NewTestPipelineService(t *testing.T, db *sql.DB, loader service.InputLoader, outputDir string) *service.PipelineService {
	t.Helper()

	log, _ := NewTestLogger(t)
	return service.NewPipelineService(
		db,
		repository.NewTaxonomyRepository(db),
		repository.NewLedgerRepository(db),
		repository.NewCacheRepository(db),
		repository.NewRunRepository(db),
		loader,
		outputDir,
		log,
	)
}

func NewTestTaxonomyService(t *testing.T, db *sql.DB) *service.TaxonomyService {
	t.Helper()

	log, _ := NewTestLogger(t)
	return service.NewTaxonomyService(db, repository.NewTaxonomyRepository(db), log)
}

func NewTestSystemService(t *testing.T, db *sql.DB) *service.SystemService {
	t.Helper()

	return service.NewSystemService(db, repository.NewRunRepository(db))
}

// SeedSampleTaxonomy registers the assets and items used by SampleInputs.
func SeedSampleTaxonomy(t *testing.T, db *sql.DB) {
	t.Helper()

	NewAssetClass("Ordinary Savings").
		Classified(model.AssetTypeSafe, "cash", model.SubtypeOrdinaryDeposit).
		WithAccount("Bank").
		Build(t, db)
	NewAssetClass("Index Fund").
		Classified(model.AssetTypeRisky, "equity", model.SubtypeFund).
		WithAccount("Broker").
		Build(t, db)
	NewAssetClass("Mortgage").
		Classified(model.AssetTypeDebt, "loan", model.SubtypeLoan).
		WithAccount("Bank").
		Build(t, db)

	CreateItems(t, db,
		model.CashFlowItem{Item: "salary", FlowType: model.FlowTypeGeneral, FlowCategory: model.FlowCategoryIncome},
		model.CashFlowItem{Item: "groceries", FlowType: model.FlowTypeGeneral, FlowCategory: model.FlowCategoryExpense},
		model.CashFlowItem{Item: "loan repayment", FlowType: model.FlowTypeSpecial, FlowCategory: model.FlowCategoryExpense},
	)
}

// SampleInputs returns six weeks of inputs from 2024-01-01 to 2024-02-15 for
// the taxonomy seeded by SeedSampleTaxonomy.
func SampleInputs(t *testing.T) *service.Inputs {
	t.Helper()

	policy, err := config.ParsePolicy([]byte(SamplePolicy))
	if err != nil {
		t.Fatalf("Failed to parse sample policy: %v", err)
	}

	return &service.Inputs{
		Policy: policy,
		Snapshots: []model.Snapshot{
			Snapshot("2024-01-01", "Ordinary Savings", "Bank", 1000, 1000),
			Snapshot("2024-01-01", "Index Fund", "Broker", 5000, 4800),
			Snapshot("2024-01-01", "Mortgage", "Bank", -50000, 0),
			Snapshot("2024-02-15", "Ordinary Savings", "Bank", 1200, 1200),
			Snapshot("2024-02-15", "Index Fund", "Broker", 5100, 4800),
			Snapshot("2024-02-15", "Mortgage", "Bank", -49800, 0),
		},
		Transactions: []model.Transaction{
			{Date: Date("2024-01-25"), Amount: 3000, Account: "Bank", Major: "Income", Description: "ACME payroll"},
			{Date: Date("2024-02-03"), Amount: -80, Account: "Bank", Major: "Food", Description: "Market"},
		},
	}
}

// MakeID generates a UUID string for use in tests.
//
// Example usage:
//
//	id := testutil.MakeID()
//	// Returns: "550e8400-e29b-41d4-a716-446655440000"
func MakeID() string {
	return uuid.New().String()
}
