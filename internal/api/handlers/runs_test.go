package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/Household-Ledger-Backend/internal/model"
	"github.com/ndewijer/Household-Ledger-Backend/internal/service"
	"github.com/ndewijer/Household-Ledger-Backend/internal/testutil"
)

// gateLoader blocks Load until open is closed.
type gateLoader struct {
	inputs *service.Inputs
	open   chan struct{}
}

func (l *gateLoader) Load(ctx context.Context) (*service.Inputs, error) {
	select {
	case <-l.open:
		return l.inputs, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// TestRunHandler_Trigger tests starting runs over HTTP.
//
// WHY: The trigger endpoint must return immediately with the run ID and
// refuse a second trigger while the first is still running.
func TestRunHandler_Trigger(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SeedSampleTaxonomy(t, db)
	loader := &gateLoader{inputs: testutil.SampleInputs(t), open: make(chan struct{})}
	svc := testutil.NewTestPipelineService(t, db, loader, "")
	handler := NewRunHandler(svc)

	w := httptest.NewRecorder()
	handler.Trigger(w, httptest.NewRequest(http.MethodPost, "/api/runs", nil))

	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	var started model.PipelineRun
	require.NoError(t, json.NewDecoder(w.Body).Decode(&started))
	assert.Equal(t, model.RunStatusRunning, started.Status)
	assert.Equal(t, service.TriggerAPI, started.Trigger)

	t.Run("returns 409 while a run is active", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.Trigger(w, httptest.NewRequest(http.MethodPost, "/api/runs", nil))
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	close(loader.open)
	svc.Wait()

	t.Run("returns the finished run", func(t *testing.T) {
		req := testutil.NewRequestWithURLParams(http.MethodGet, "/api/runs/"+started.ID, map[string]string{"uuid": started.ID})
		w := httptest.NewRecorder()
		handler.Run(w, req)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var run model.PipelineRun
		require.NoError(t, json.NewDecoder(w.Body).Decode(&run))
		assert.Equal(t, model.RunStatusSucceeded, run.Status)
		assert.Equal(t, "2024-02-15", run.LatestDate)
	})
}

// TestRunHandler_Runs tests listing runs.
//
// WHY: Operators check the last few nights from the listing; it must be
// ordered newest first and honor the limit.
func TestRunHandler_Runs(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.NewRun(testutil.Date("2024-03-01")).Succeeded("2024-02-29").Build(t, db)
	latest := testutil.NewRun(testutil.Date("2024-03-02")).Failed("profit", "boom").Build(t, db)
	handler := NewRunHandler(testutil.NewTestPipelineService(t, db, service.StaticLoader{}, ""))

	t.Run("returns newest first", func(t *testing.T) {
		req := testutil.NewRequestWithQueryParams(http.MethodGet, "/api/runs", map[string]string{"limit": "1"})
		w := httptest.NewRecorder()
		handler.Runs(w, req)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var runs []model.PipelineRun
		require.NoError(t, json.NewDecoder(w.Body).Decode(&runs))
		require.Len(t, runs, 1)
		assert.Equal(t, latest.ID, runs[0].ID)
		assert.Equal(t, "profit", runs[0].Stage)
	})

	t.Run("returns 400 for invalid limit", func(t *testing.T) {
		req := testutil.NewRequestWithQueryParams(http.MethodGet, "/api/runs", map[string]string{"limit": "zero"})
		w := httptest.NewRecorder()
		handler.Runs(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("returns 404 for unknown run", func(t *testing.T) {
		id := testutil.MakeID()
		req := testutil.NewRequestWithURLParams(http.MethodGet, "/api/runs/"+id, map[string]string{"uuid": id})
		w := httptest.NewRecorder()
		handler.Run(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
