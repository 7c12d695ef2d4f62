package service_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/Household-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Household-Ledger-Backend/internal/cache"
	"github.com/ndewijer/Household-Ledger-Backend/internal/continuity"
	"github.com/ndewijer/Household-Ledger-Backend/internal/model"
	"github.com/ndewijer/Household-Ledger-Backend/internal/repository"
	"github.com/ndewijer/Household-Ledger-Backend/internal/service"
	"github.com/ndewijer/Household-Ledger-Backend/internal/testutil"
)

// blockingLoader holds every Load until release is closed.
type blockingLoader struct {
	inputs  *service.Inputs
	release chan struct{}
}

func (l *blockingLoader) Load(ctx context.Context) (*service.Inputs, error) {
	select {
	case <-l.release:
		return l.inputs, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// TestPipelineService_Run tests a complete run over the sample inputs.
//
// WHY: A run must publish every ledger and all six cache tables together and
// record its outcome, so this exercises the whole chain from taxonomy to export.
func TestPipelineService_Run(t *testing.T) {
	// Setup
	db := testutil.SetupTestDB(t)
	testutil.SeedSampleTaxonomy(t, db)
	out := t.TempDir()
	svc := testutil.NewTestPipelineService(t, db, service.StaticLoader{Inputs: testutil.SampleInputs(t)}, out)
	ctx := context.Background()

	// Execute
	summary, err := svc.Run(ctx, service.TriggerCLI)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "2024-02-15", summary.LatestDate)
	assert.Equal(t, 46*3, summary.LedgerRows)
	assert.Equal(t, 46*3, summary.CashFlowRows)
	assert.Equal(t, 46*3, summary.TargetRows)
	assert.Equal(t, 46*3, summary.CacheRows["asset_cache_daily"])
	assert.Equal(t, 46, summary.CacheRows["category_cache_daily"])
	assert.Equal(t, 3, summary.CacheRows["asset_cache_monthly"])
	assert.Equal(t, 1, summary.CacheRows["category_cache_monthly"])
	assert.Empty(t, summary.NewlyPending)
	assert.Len(t, summary.ExportedTables, 6)

	names, err := repository.NewCacheRepository(db).TableNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"asset_cache_daily", "asset_cache_monthly", "asset_cache_yearly",
		"category_cache_daily", "category_cache_monthly", "category_cache_yearly",
	}, names)

	for _, name := range names {
		_, err := os.Stat(filepath.Join(out, name+".csv"))
		assert.NoError(t, err, name)
	}

	run, err := svc.GetRun(ctx, summary.RunID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusSucceeded, run.Status)
	assert.Equal(t, service.TriggerCLI, run.Trigger)
	assert.Equal(t, "2024-02-15", run.LatestDate)
	assert.NotNil(t, run.FinishedAt)
	assert.Empty(t, run.Stage)
}

// TestPipelineService_Run_DebtBalance tests that the actual loan balance
// follows the amortization schedule.
//
// WHY: Statements for the loan are sparse; the published debt value must come
// from the policy's loan rate and repayments rather than the carried snapshot.
func TestPipelineService_Run_DebtBalance(t *testing.T) {
	// Setup
	db := testutil.SetupTestDB(t)
	testutil.SeedSampleTaxonomy(t, db)
	svc := testutil.NewTestPipelineService(t, db, service.StaticLoader{Inputs: testutil.SampleInputs(t)}, "")
	ctx := context.Background()

	// Execute
	_, err := svc.Run(ctx, service.TriggerCLI)
	require.NoError(t, err)
	ledger, err := repository.NewLedgerRepository(db).LoadAssetLedger(ctx)
	require.NoError(t, err)

	// Assert
	debt := make(map[string]float64)
	for _, r := range ledger.Rows {
		if r.AssetID == "Mortgage" {
			assert.Equal(t, model.AssetTypeDebt, r.Type)
			debt[model.DateKey(r.Date)] = r.Value
		}
	}
	require.Len(t, debt, 46)
	assert.Equal(t, -50000.0, debt["2024-01-01"])
	assert.Greater(t, debt["2024-01-27"], debt["2024-01-26"])
	assert.Greater(t, debt["2024-02-15"], -50000.0)
	assert.Less(t, debt["2024-02-15"], 0.0)
	assert.NotEqual(t, -49800.0, debt["2024-02-15"])
}

// TestPipelineService_Run_Deterministic tests that two runs over the same
// inputs export identical files and persist identical ledgers.
//
// WHY: Every run is a full recompute; reruns must be idempotent so exports can
// be diffed between nights.
func TestPipelineService_Run_Deterministic(t *testing.T) {
	// Setup
	db := testutil.SetupTestDB(t)
	testutil.SeedSampleTaxonomy(t, db)
	first, second := t.TempDir(), t.TempDir()
	inputs := testutil.SampleInputs(t)
	ledgers := repository.NewLedgerRepository(db)
	ctx := context.Background()

	snapshot := func() []string {
		assets, err := ledgers.LoadAssetLedger(ctx)
		require.NoError(t, err)
		flows, err := ledgers.LoadCashFlowLedger(ctx)
		require.NoError(t, err)
		targets, err := ledgers.LoadTargetLedger(ctx)
		require.NoError(t, err)
		require.NotZero(t, assets.Len())
		// %v renders NaN blanks as "NaN", so blank cells compare equal
		return []string{fmt.Sprintf("%v", assets), fmt.Sprintf("%v", flows), fmt.Sprintf("%v", targets)}
	}

	// Execute
	_, err := testutil.NewTestPipelineService(t, db, service.StaticLoader{Inputs: inputs}, first).Run(ctx, service.TriggerCLI)
	require.NoError(t, err)
	afterFirst := snapshot()
	_, err = testutil.NewTestPipelineService(t, db, service.StaticLoader{Inputs: inputs}, second).Run(ctx, service.TriggerCLI)
	require.NoError(t, err)
	afterSecond := snapshot()

	// Assert
	for _, kind := range []string{"asset", "category"} {
		for _, g := range model.Granularities {
			name := cache.TableName(kind, g)
			a, err := os.ReadFile(filepath.Join(first, name+".csv"))
			require.NoError(t, err, name)
			b, err := os.ReadFile(filepath.Join(second, name+".csv"))
			require.NoError(t, err, name)
			assert.Equal(t, string(a), string(b), name)
		}
	}
	assert.Equal(t, afterFirst[0], afterSecond[0], "asset ledger")
	assert.Equal(t, afterFirst[1], afterSecond[1], "cash-flow ledger")
	assert.Equal(t, afterFirst[2], afterSecond[2], "target ledger")
}

// TestPipelineService_Run_UnregisteredAsset tests the taxonomy gate.
//
// WHY: An asset that appears in a statement without a classification must stop
// the run, be registered as pending, and leave the published tables untouched.
func TestPipelineService_Run_UnregisteredAsset(t *testing.T) {
	// Setup
	db := testutil.SetupTestDB(t)
	testutil.SeedSampleTaxonomy(t, db)
	inputs := testutil.SampleInputs(t)
	inputs.Snapshots = append(inputs.Snapshots, testutil.Snapshot("2024-02-15", "Crypto Wallet", "Exchange", 700, 650))
	svc := testutil.NewTestPipelineService(t, db, service.StaticLoader{Inputs: inputs}, "")
	ctx := context.Background()

	// Execute
	summary, err := svc.Run(ctx, service.TriggerCLI)

	// Assert
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrContinuity)
	assert.Equal(t, continuity.Stage, apperrors.StageOf(err))
	require.NotNil(t, summary)
	assert.Equal(t, []string{"Crypto Wallet"}, summary.NewlyPending)

	pending, err := repository.NewTaxonomyRepository(db).ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "Crypto Wallet", pending[0].ID)

	ledger, err := repository.NewLedgerRepository(db).LoadAssetLedger(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, ledger.Len())

	runs, err := svc.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunStatusFailed, runs[0].Status)
	assert.Equal(t, continuity.Stage, runs[0].Stage)
	assert.Contains(t, runs[0].Error, "Crypto Wallet")

	t.Run("pending entry keeps blocking until classified", func(t *testing.T) {
		_, err := svc.Run(ctx, service.TriggerCLI)
		assert.ErrorIs(t, err, apperrors.ErrContinuity)

		testutil.NewAssetClass("Crypto Wallet").
			Classified(model.AssetTypeRisky, "crypto", model.SubtypeEquity).
			WithAccount("Exchange").
			Build(t, db)

		summary, err := svc.Run(ctx, service.TriggerCLI)
		require.NoError(t, err)
		assert.Equal(t, 46*4, summary.LedgerRows)
	})
}

// TestPipelineService_Run_InvalidInputs tests failures before any stage runs.
//
// WHY: Load failures must still be recorded on the run with the load stage.
func TestPipelineService_Run_InvalidInputs(t *testing.T) {
	t.Run("missing policy", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		inputs := testutil.SampleInputs(t)
		inputs.Policy = nil
		svc := testutil.NewTestPipelineService(t, db, service.StaticLoader{Inputs: inputs}, "")

		_, err := svc.Run(context.Background(), service.TriggerCLI)

		assert.ErrorIs(t, err, apperrors.ErrInvalidPolicy)
		assert.Equal(t, service.StageLoad, apperrors.StageOf(err))
	})

	t.Run("no snapshots", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		inputs := testutil.SampleInputs(t)
		inputs.Snapshots = nil
		svc := testutil.NewTestPipelineService(t, db, service.StaticLoader{Inputs: inputs}, "")

		_, err := svc.Run(context.Background(), service.TriggerCLI)

		assert.ErrorIs(t, err, apperrors.ErrSourceData)
		assert.Equal(t, service.StageLoad, apperrors.StageOf(err))
	})
}

// TestPipelineService_Start tests background runs and run serialization.
//
// WHY: The scheduler and the operator API share one service; a trigger while a
// run is active must be rejected instead of running twice.
func TestPipelineService_Start(t *testing.T) {
	// Setup
	db := testutil.SetupTestDB(t)
	testutil.SeedSampleTaxonomy(t, db)
	loader := &blockingLoader{inputs: testutil.SampleInputs(t), release: make(chan struct{})}
	svc := testutil.NewTestPipelineService(t, db, loader, "")
	ctx := context.Background()

	// Execute
	started, err := svc.Start(ctx, service.TriggerAPI)
	require.NoError(t, err)
	_, busyErr := svc.Run(ctx, service.TriggerSchedule)
	_, busyStartErr := svc.Start(ctx, service.TriggerAPI)
	close(loader.release)
	svc.Wait()

	// Assert
	assert.Equal(t, model.RunStatusRunning, started.Status)
	assert.ErrorIs(t, busyErr, apperrors.ErrRunInProgress)
	assert.ErrorIs(t, busyStartErr, apperrors.ErrRunInProgress)

	run, err := svc.GetRun(ctx, started.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusSucceeded, run.Status)

	runs, err := svc.ListRuns(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

// TestPipelineService_RecoverInterrupted tests cleanup of runs left running.
//
// WHY: A process killed mid-run leaves a running record behind that would
// otherwise never finish.
func TestPipelineService_RecoverInterrupted(t *testing.T) {
	// Setup
	db := testutil.SetupTestDB(t)
	stale := testutil.NewRun(testutil.Date("2024-03-01")).Build(t, db)
	done := testutil.NewRun(testutil.Date("2024-03-02")).Succeeded("2024-03-01").Build(t, db)
	svc := testutil.NewTestPipelineService(t, db, service.StaticLoader{}, "")
	ctx := context.Background()

	// Execute
	err := svc.RecoverInterrupted(ctx)

	// Assert
	require.NoError(t, err)
	got, err := svc.GetRun(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, got.Status)
	assert.NotNil(t, got.FinishedAt)

	got, err = svc.GetRun(ctx, done.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusSucceeded, got.Status)
}
