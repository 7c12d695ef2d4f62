package handlers

import (
	"net/http"

	"github.com/ndewijer/Household-Ledger-Backend/internal/api/response"
	"github.com/ndewijer/Household-Ledger-Backend/internal/service"
)

// SystemHandler serves the health and version endpoints.
type SystemHandler struct {
	systemService *service.SystemService
}

// NewSystemHandler creates a new SystemHandler.
func NewSystemHandler(systemService *service.SystemService) *SystemHandler {
	return &SystemHandler{
		systemService: systemService,
	}
}

// Health reports database connectivity and the latest pipeline run.
//
// Endpoint: GET /api/system/health
// Response: 200 OK with model.Health, also when the latest run failed
// Error: 503 Service Unavailable with model.Health when the database or the
// run log cannot be read
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	health, err := h.systemService.CheckHealth(r.Context())
	if err != nil {
		response.JSON(w, http.StatusServiceUnavailable, health)
		return
	}
	response.JSON(w, http.StatusOK, health)
}

// Version reports the application version, the applied schema version and
// whether migrations are pending.
//
// Endpoint: GET /api/system/version
// Response: 200 OK with model.VersionInfo
// Error: 500 Internal Server Error if version check fails
func (h *SystemHandler) Version(w http.ResponseWriter, r *http.Request) {
	version, err := h.systemService.CheckVersion(r.Context())
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "failed to get version information", err)
		return
	}
	response.JSON(w, http.StatusOK, version)
}
