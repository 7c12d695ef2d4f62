package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ndewijer/Household-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Household-Ledger-Backend/internal/cache"
	"github.com/ndewijer/Household-Ledger-Backend/internal/cashflow"
	"github.com/ndewijer/Household-Ledger-Backend/internal/continuity"
	"github.com/ndewijer/Household-Ledger-Backend/internal/export"
	"github.com/ndewijer/Household-Ledger-Backend/internal/model"
	"github.com/ndewijer/Household-Ledger-Backend/internal/pipeline"
	"github.com/ndewijer/Household-Ledger-Backend/internal/profit"
	"github.com/ndewijer/Household-Ledger-Backend/internal/repository"
	"github.com/ndewijer/Household-Ledger-Backend/internal/target"
	"github.com/ndewijer/Household-Ledger-Backend/internal/taxonomy"
)

// Stage names reported by runs besides the component stages.
const (
	StageLoad     = "load"
	StageDebt     = "debt"
	StageExpand   = "expand"
	StageSimulate = "simulate"
	StagePersist  = "persist"
	StageExport   = "export"
)

// Run triggers.
const (
	TriggerCLI      = "cli"
	TriggerSchedule = "schedule"
	TriggerAPI      = "api"
	TriggerStartup  = "startup"
)

type actualState struct {
	ledger    model.Ledger
	cashFlows model.CashFlowLedger
}

func (s actualState) Len() int { return s.ledger.Len() }

type targetState struct {
	flows  []model.CashFlowRow
	ledger model.TargetLedger
}

func (s targetState) Len() int {
	if s.ledger.Len() > 0 {
		return s.ledger.Len()
	}
	return len(s.flows)
}

type cacheState struct {
	tables []model.CacheTable
}

func (s cacheState) Len() int {
	n := 0
	for _, t := range s.tables {
		n += t.Len()
	}
	return n
}

// PipelineService runs the ledger pipeline end to end: it loads the inputs,
// builds the actual and target ledgers concurrently, materializes the caches
// and publishes everything in one transaction. Runs are serialized; a second
// trigger while a run is active fails with apperrors.ErrRunInProgress.
type PipelineService struct {
	db         *sql.DB
	taxRepo    *repository.TaxonomyRepository
	ledgerRepo *repository.LedgerRepository
	cacheRepo  *repository.CacheRepository
	runRepo    *repository.RunRepository
	loader     InputLoader
	outputDir  string
	log        *logrus.Logger
	now        func() time.Time

	mu sync.Mutex
}

// NewPipelineService creates a new PipelineService. An empty outputDir
// disables the CSV export.
func NewPipelineService(
	db *sql.DB,
	taxRepo *repository.TaxonomyRepository,
	ledgerRepo *repository.LedgerRepository,
	cacheRepo *repository.CacheRepository,
	runRepo *repository.RunRepository,
	loader InputLoader,
	outputDir string,
	log *logrus.Logger,
) *PipelineService {
	return &PipelineService{
		db:         db,
		taxRepo:    taxRepo,
		ledgerRepo: ledgerRepo,
		cacheRepo:  cacheRepo,
		runRepo:    runRepo,
		loader:     loader,
		outputDir:  outputDir,
		log:        log,
		now:        time.Now,
	}
}

// Run executes one pipeline run synchronously.
//
// Parameters:
//   - ctx: Context for cancellation; a cancelled run is recorded as failed
//   - trigger: what started the run (cli, schedule, api, startup)
//
// Returns the run summary and the run error. The summary is returned even on
// failure so callers can report newly registered assets. The error wraps an
// *apperrors.StageError naming the failed stage.
func (s *PipelineService) Run(ctx context.Context, trigger string) (*model.RunSummary, error) {
	run, err := s.begin(ctx, trigger)
	if err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	return s.complete(ctx, run)
}

// Start records a new run and executes it in the background. The returned
// run is the initial record; poll GetRun for the outcome.
func (s *PipelineService) Start(ctx context.Context, trigger string) (*model.PipelineRun, error) {
	run, err := s.begin(ctx, trigger)
	if err != nil {
		return nil, err
	}
	started := *run

	go func() {
		defer s.mu.Unlock()
		//nolint:errcheck // Outcome is logged and recorded on the run.
		s.complete(context.WithoutCancel(ctx), run)
	}()

	return &started, nil
}

// Wait blocks until no run is active.
func (s *PipelineService) Wait() {
	s.mu.Lock()
	defer s.mu.Unlock()
}

// GetRun returns one recorded run.
func (s *PipelineService) GetRun(ctx context.Context, id string) (model.PipelineRun, error) {
	return s.runRepo.Get(ctx, id)
}

// ListRuns returns up to limit recorded runs, newest first.
func (s *PipelineService) ListRuns(ctx context.Context, limit int) ([]model.PipelineRun, error) {
	runs, err := s.runRepo.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrFailedToRetrieveRuns, err)
	}
	return runs, nil
}

// RecoverInterrupted marks runs left running by a previous process as failed.
func (s *PipelineService) RecoverInterrupted(ctx context.Context) error {
	n, err := s.runRepo.FailInterrupted(ctx, s.now())
	if err != nil {
		return err
	}
	if n > 0 {
		s.log.WithField("runs", n).Warn("Marked interrupted pipeline runs as failed")
	}
	return nil
}

func (s *PipelineService) begin(ctx context.Context, trigger string) (*model.PipelineRun, error) {
	if !s.mu.TryLock() {
		return nil, apperrors.ErrRunInProgress
	}

	run := &model.PipelineRun{
		ID:        uuid.New().String(),
		Trigger:   trigger,
		Status:    model.RunStatusRunning,
		StartedAt: s.now(),
	}
	if err := s.runRepo.Insert(ctx, run); err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("failed to record run: %w", err)
	}
	return run, nil
}

func (s *PipelineService) complete(ctx context.Context, run *model.PipelineRun) (*model.RunSummary, error) {
	log := s.log.WithFields(logrus.Fields{
		"run_id":  run.ID,
		"trigger": run.Trigger,
	})
	log.Info("Pipeline run started")
	start := time.Now()

	summary, err := s.execute(ctx, run, log)

	finished := s.now()
	run.FinishedAt = &finished
	if err != nil {
		run.Status = model.RunStatusFailed
		run.Stage = apperrors.StageOf(err)
		run.Error = err.Error()
		log.WithError(err).WithFields(logrus.Fields{
			"stage":       run.Stage,
			"duration_ms": time.Since(start).Milliseconds(),
		}).Error("Pipeline run failed")
	} else {
		run.Status = model.RunStatusSucceeded
		log.WithFields(logrus.Fields{
			"latest_date":   summary.LatestDate,
			"ledger_rows":   summary.LedgerRows,
			"cashflow_rows": summary.CashFlowRows,
			"target_rows":   summary.TargetRows,
			"duration_ms":   time.Since(start).Milliseconds(),
		}).Info("Pipeline run succeeded")
	}

	if ferr := s.runRepo.Finish(context.WithoutCancel(ctx), run); ferr != nil {
		log.WithError(ferr).Error("Failed to record run result")
		if err == nil {
			err = fmt.Errorf("failed to record run result: %w", ferr)
		}
	}
	return summary, err
}

func (s *PipelineService) execute(ctx context.Context, run *model.PipelineRun, log logrus.FieldLogger) (*model.RunSummary, error) {
	summary := &model.RunSummary{RunID: run.ID, CacheRows: make(map[string]int)}

	in, err := s.loader.Load(ctx)
	if err == nil && (in == nil || in.Policy == nil) {
		err = fmt.Errorf("%w: no policy loaded", apperrors.ErrInvalidPolicy)
	}
	if err != nil {
		return summary, &apperrors.StageError{Stage: StageLoad, Err: err}
	}

	tax, err := s.taxRepo.Load(ctx)
	if err != nil {
		return summary, &apperrors.StageError{Stage: StageLoad, Err: err}
	}
	prior, err := s.ledgerRepo.LoadAssetLedger(ctx)
	if err != nil {
		return summary, &apperrors.StageError{Stage: StageLoad, Err: err}
	}

	latest := latestDate(in.Snapshots, prior)
	if latest.IsZero() {
		return summary, &apperrors.StageError{Stage: StageLoad, Err: &apperrors.SourceDataError{Table: "snapshot"}}
	}
	summary.LatestDate = model.DateKey(latest)
	run.LatestDate = summary.LatestDate

	var actual actualState
	var planned targetState
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out, err := s.actualPipeline(in, tax, prior, summary, log).Run(gctx, actualState{})
		actual = out
		return err
	})
	g.Go(func() error {
		out, err := s.targetPipeline(in, tax, latest, log).Run(gctx, targetState{})
		planned = out
		return err
	})
	if err := g.Wait(); err != nil {
		return summary, err
	}

	span := model.NewDateRange(actual.ledger.EarliestDate(), actual.ledger.LatestDate())
	materialize := pipeline.Stage[cacheState]{
		Name: cache.Stage,
		Fn: func(context.Context, cacheState) (cacheState, error) {
			tables, err := cache.MaterializeAll(actual.ledger, actual.cashFlows, planned.ledger, span)
			return cacheState{tables: tables}, err
		},
	}
	caches, err := pipeline.New[cacheState]("cache", log, materialize).Run(ctx, cacheState{})
	if err != nil {
		return summary, err
	}

	if err := s.persist(ctx, actual, planned, caches.tables); err != nil {
		return summary, &apperrors.StageError{Stage: StagePersist, Rows: actual.Len(), Err: err}
	}

	summary.LedgerRows = actual.ledger.Len()
	summary.CashFlowRows = actual.cashFlows.Len()
	summary.TargetRows = planned.ledger.Len()
	for _, t := range caches.tables {
		summary.CacheRows[t.Name] = t.Len()
	}

	if s.outputDir != "" {
		paths, err := export.WriteAll(s.outputDir, caches.tables)
		if err != nil {
			return summary, &apperrors.StageError{Stage: StageExport, Rows: caches.Len(), Err: err}
		}
		for _, p := range paths {
			summary.ExportedTables = append(summary.ExportedTables, strings.TrimSuffix(filepath.Base(p), ".csv"))
		}
	}

	return summary, nil
}

// actualPipeline builds continuity → cash flow → profit → debt.
func (s *PipelineService) actualPipeline(
	in *Inputs,
	tax *taxonomy.Taxonomy,
	prior model.Ledger,
	summary *model.RunSummary,
	log logrus.FieldLogger,
) *pipeline.Pipeline[actualState] {
	policy := in.Policy

	fill := func(ctx context.Context, st actualState) (actualState, error) {
		ledger, err := continuity.Fill(in.Snapshots, prior, tax, policy.PensionContracts())
		var ce *apperrors.ContinuityError
		if errors.As(err, &ce) {
			added, regErr := s.register(ctx, tax, ce.Identifiers, log)
			summary.NewlyPending = added
			return st, errors.Join(err, regErr)
		}
		if err != nil {
			return st, err
		}
		if pending := tax.Pending(); len(pending) > 0 {
			ids := make([]string, len(pending))
			for i, p := range pending {
				ids[i] = p.ID
			}
			return st, &apperrors.ContinuityError{Stage: continuity.Stage, Identifiers: ids}
		}
		st.ledger = ledger
		return st, nil
	}

	buildCashFlows := func(_ context.Context, st actualState) (actualState, error) {
		span := model.NewDateRange(st.ledger.EarliestDate(), st.ledger.LatestDate())
		targets, err := target.ExpandFlows(policy.Flows(), tax, span)
		if err != nil {
			return st, err
		}
		cf, err := cashflow.Build(in.Transactions, policy.Classification, tax, targets, span, st.ledger)
		if err != nil {
			return st, err
		}
		st.cashFlows = cf
		return st, nil
	}

	reconcile := func(_ context.Context, st actualState) (actualState, error) {
		reconciler := profit.NewReconciler(tax, in.Offsets, policy.Profit, log)
		ledger, err := reconciler.Reconcile(st.ledger, in.Transactions)
		if err != nil {
			return st, err
		}
		st.ledger = ledger
		return st, nil
	}

	amortize := func(_ context.Context, st actualState) (actualState, error) {
		rng := model.NewDateRange(policy.Simulation.Start.Time, st.ledger.LatestDate())
		if !rng.Valid() {
			return st, nil
		}
		flows, err := target.ExpandFlows(policy.Flows(), tax, rng)
		if err != nil {
			return st, err
		}
		balance, err := target.DebtBalance(policy.RateSchedule(), flows, policy.LoanItems, policy.Simulation.InitialLoan, rng)
		if err != nil {
			return st, err
		}
		st.ledger = target.ApplyDebt(st.ledger, balance, rng)
		return st, nil
	}

	return pipeline.New[actualState]("actual", log,
		pipeline.Stage[actualState]{Name: continuity.Stage, Fn: fill},
		pipeline.Stage[actualState]{Name: cashflow.Stage, Fn: buildCashFlows},
		pipeline.Stage[actualState]{Name: profit.Stage, Fn: reconcile},
		pipeline.Stage[actualState]{Name: StageDebt, Fn: amortize},
	)
}

// targetPipeline builds expand → simulate over the policy's simulation range.
func (s *PipelineService) targetPipeline(
	in *Inputs,
	tax *taxonomy.Taxonomy,
	latest time.Time,
	log logrus.FieldLogger,
) *pipeline.Pipeline[targetState] {
	policy := in.Policy
	rng := policy.SimulationRange(latest)

	expand := func(_ context.Context, st targetState) (targetState, error) {
		flows, err := target.ExpandFlows(policy.Flows(), tax, rng)
		if err != nil {
			return st, err
		}
		st.flows = flows
		return st, nil
	}

	simulate := func(_ context.Context, st targetState) (targetState, error) {
		ledger, err := target.Simulate(target.Input{
			Rates:        policy.RateSchedule(),
			Allocation:   policy.AllocationSchedule(),
			CashFlows:    st.flows,
			LoanItems:    policy.LoanItems,
			InitialAsset: policy.Simulation.InitialAsset,
			InitialLoan:  policy.Simulation.InitialLoan,
			Range:        rng,
		})
		if err != nil {
			return st, err
		}
		st.ledger = ledger
		return st, nil
	}

	return pipeline.New[targetState]("target", log,
		pipeline.Stage[targetState]{Name: StageExpand, Fn: expand},
		pipeline.Stage[targetState]{Name: StageSimulate, Fn: simulate},
	)
}

// register appends unknown identifiers to the taxonomy with a blank
// classification and returns the ones that were new.
func (s *PipelineService) register(ctx context.Context, tax *taxonomy.Taxonomy, ids []string, log logrus.FieldLogger) ([]string, error) {
	_, added := tax.Register(ids)
	if len(added) == 0 {
		return nil, nil
	}
	if err := s.taxRepo.InsertPending(ctx, added); err != nil {
		return added, fmt.Errorf("failed to register pending assets: %w", err)
	}
	log.WithField("assets", added).Warn("Registered unclassified assets")
	return added, nil
}

// persist replaces every published table in one transaction.
func (s *PipelineService) persist(ctx context.Context, actual actualState, planned targetState, tables []model.CacheTable) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // No-op after commit.

	ledgers := s.ledgerRepo.WithTx(tx)
	if err := ledgers.ReplaceAssetLedger(ctx, actual.ledger); err != nil {
		return err
	}
	if err := ledgers.ReplaceCashFlowLedger(ctx, actual.cashFlows); err != nil {
		return err
	}
	if err := ledgers.ReplaceTargetLedger(ctx, planned.ledger); err != nil {
		return err
	}
	if err := s.cacheRepo.WithTx(tx).ReplaceTables(ctx, tables, s.now()); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// latestDate returns the latest date of the raw feed and the prior ledger.
func latestDate(raw []model.Snapshot, prior model.Ledger) time.Time {
	latest := prior.LatestDate()
	for _, s := range raw {
		if d := model.Day(s.Date); d.After(latest) {
			latest = d
		}
	}
	return latest
}
