// Package scheduler triggers pipeline runs on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/ndewijer/Household-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Household-Ledger-Backend/internal/model"
	"github.com/ndewijer/Household-Ledger-Backend/internal/service"
)

// Runner executes one pipeline run.
type Runner interface {
	Run(ctx context.Context, trigger string) (*model.RunSummary, error)
}

// Scheduler runs the pipeline on a standard five-field cron spec.
type Scheduler struct {
	cron   *cron.Cron
	entry  cron.EntryID
	runner Runner
	log    logrus.FieldLogger
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a Scheduler for spec. It does not start until Start is called.
func New(spec string, runner Runner, log logrus.FieldLogger) (*Scheduler, error) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		runner: runner,
		log:    log.WithField("component", "scheduler"),
		ctx:    ctx,
		cancel: cancel,
	}

	logger := cronLogger{log: s.log}
	s.cron = cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	id, err := s.cron.AddFunc(spec, func() { s.RunNow(service.TriggerSchedule) })
	if err != nil {
		cancel()
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	s.entry = id
	return s, nil
}

// Start begins firing scheduled runs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.WithField("next_run", s.Next()).Info("Scheduler started")
}

// Stop stops scheduling and waits for an active run to finish until ctx is
// done, at which point the run is cancelled.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn("Cancelling active scheduled run")
	}
	s.cancel()
}

// Next returns the time of the next scheduled run, or the zero time when the
// scheduler is not running.
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.entry).Next
}

// RunNow executes one run synchronously with trigger and logs the outcome.
// A run already in progress is skipped.
func (s *Scheduler) RunNow(trigger string) {
	log := s.log.WithField("trigger", trigger)

	summary, err := s.runner.Run(s.ctx, trigger)
	switch {
	case errors.Is(err, apperrors.ErrRunInProgress):
		log.Warn("Skipped run: another run is in progress")
	case err != nil:
		log.WithError(err).WithField("stage", apperrors.StageOf(err)).Error("Scheduled run failed")
	default:
		log.WithFields(logrus.Fields{
			"run_id":      summary.RunID,
			"latest_date": summary.LatestDate,
		}).Info("Scheduled run finished")
	}
}

// cronLogger adapts logrus to cron.Logger.
type cronLogger struct {
	log logrus.FieldLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.WithFields(fields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.WithError(err).WithFields(fields(keysAndValues)).Error(msg)
}

func fields(keysAndValues []any) logrus.Fields {
	out := make(logrus.Fields, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		out[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return out
}
