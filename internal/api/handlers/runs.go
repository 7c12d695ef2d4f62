package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ndewijer/Household-Ledger-Backend/internal/api/request"
	"github.com/ndewijer/Household-Ledger-Backend/internal/api/response"
	"github.com/ndewijer/Household-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Household-Ledger-Backend/internal/service"
)

// RunHandler handles pipeline run HTTP requests.
type RunHandler struct {
	pipelineService *service.PipelineService
}

// NewRunHandler creates a new RunHandler.
func NewRunHandler(pipelineService *service.PipelineService) *RunHandler {
	return &RunHandler{
		pipelineService: pipelineService,
	}
}

// Trigger handles POST requests that start a pipeline run in the background.
//
// Endpoint: POST /api/runs
// Response: 202 Accepted with the new model.PipelineRun
// Error: 409 Conflict if a run is already in progress
// Error: 500 Internal Server Error if the run cannot be recorded
func (h *RunHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	run, err := h.pipelineService.Start(r.Context(), service.TriggerAPI)
	if err != nil {
		if errors.Is(err, apperrors.ErrRunInProgress) {
			response.Error(w, http.StatusConflict, apperrors.ErrRunInProgress.Error(), nil)
			return
		}
		response.Error(w, http.StatusInternalServerError, "failed to start pipeline run", err)
		return
	}

	response.JSON(w, http.StatusAccepted, run)
}

// Runs handles GET requests to list recent pipeline runs, newest first.
//
// Endpoint: GET /api/runs?limit=20
// Response: 200 OK with []model.PipelineRun
// Error: 400 Bad Request if limit is invalid
// Error: 500 Internal Server Error if retrieval fails
func (h *RunHandler) Runs(w http.ResponseWriter, r *http.Request) {
	limit, err := request.ParseRunLimit(r.URL.Query().Get("limit"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request", err)
		return
	}

	runs, err := h.pipelineService.ListRuns(r.Context(), limit)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveRuns.Error(), err)
		return
	}

	response.JSON(w, http.StatusOK, runs)
}

// Run handles GET requests for a single pipeline run.
//
// Endpoint: GET /api/runs/{uuid}
// Response: 200 OK with model.PipelineRun
// Error: 404 Not Found if the run does not exist
// Error: 500 Internal Server Error if retrieval fails
func (h *RunHandler) Run(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "uuid")

	run, err := h.pipelineService.GetRun(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperrors.ErrRunNotFound) {
			response.Error(w, http.StatusNotFound, apperrors.ErrRunNotFound.Error(), nil)
			return
		}
		response.Error(w, http.StatusInternalServerError, "failed to retrieve pipeline run", err)
		return
	}

	response.JSON(w, http.StatusOK, run)
}
