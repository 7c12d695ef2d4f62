package scheduler_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/Household-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Household-Ledger-Backend/internal/model"
	"github.com/ndewijer/Household-Ledger-Backend/internal/scheduler"
	"github.com/ndewijer/Household-Ledger-Backend/internal/service"
)

type fakeRunner struct {
	mu       sync.Mutex
	triggers []string
	err      error
}

func (f *fakeRunner) Run(_ context.Context, trigger string) (*model.RunSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.triggers = append(f.triggers, trigger)
	if f.err != nil {
		return nil, f.err
	}
	return &model.RunSummary{RunID: "run-1", LatestDate: "2024-02-15"}, nil
}

// TestNew tests schedule parsing.
//
// WHY: A typo in RUN_SCHEDULE must stop the server at start instead of
// silently never running.
func TestNew(t *testing.T) {
	log, _ := logtest.NewNullLogger()

	_, err := scheduler.New("not a schedule", &fakeRunner{}, log)
	assert.Error(t, err)

	s, err := scheduler.New("0 3 * * *", &fakeRunner{}, log)
	require.NoError(t, err)
	assert.True(t, s.Next().IsZero())

	s.Start()
	next := s.Next()
	s.Stop(context.Background())

	assert.Equal(t, 3, next.Hour())
	assert.True(t, next.After(time.Now()))
}

// TestScheduler_RunNow tests how run outcomes are logged.
//
// WHY: Scheduled runs have no caller to return errors to; the log is the only
// place a failure or a skipped run shows up.
func TestScheduler_RunNow(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		level   logrus.Level
		message string
	}{
		{"success", nil, logrus.InfoLevel, "Scheduled run finished"},
		{"in progress", apperrors.ErrRunInProgress, logrus.WarnLevel, "Skipped run: another run is in progress"},
		{"failure", &apperrors.StageError{Stage: "profit", Err: errors.New("boom")}, logrus.ErrorLevel, "Scheduled run failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, hook := logtest.NewNullLogger()
			runner := &fakeRunner{err: tt.err}
			s, err := scheduler.New("@daily", runner, log)
			require.NoError(t, err)

			s.RunNow(service.TriggerStartup)

			assert.Equal(t, []string{service.TriggerStartup}, runner.triggers)
			require.NotNil(t, hook.LastEntry())
			assert.Equal(t, tt.level, hook.LastEntry().Level)
			assert.Equal(t, tt.message, hook.LastEntry().Message)
		})
	}
}
