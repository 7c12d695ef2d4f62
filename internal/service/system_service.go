package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ndewijer/Household-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Household-Ledger-Backend/internal/database"
	"github.com/ndewijer/Household-Ledger-Backend/internal/model"
	"github.com/ndewijer/Household-Ledger-Backend/internal/repository"
	"github.com/ndewijer/Household-Ledger-Backend/internal/version"
)

// SystemService reports process health and schema state to operators.
type SystemService struct {
	db      *sql.DB
	runRepo *repository.RunRepository
}

// NewSystemService creates a new SystemService.
func NewSystemService(db *sql.DB, runRepo *repository.RunRepository) *SystemService {
	return &SystemService{
		db:      db,
		runRepo: runRepo,
	}
}

// CheckHealth pings the database and looks up the latest pipeline run.
//
// Returns the health report and a non-nil error when the database cannot be
// reached or the run log cannot be read. The report is filled in either case.
func (s *SystemService) CheckHealth(ctx context.Context) (model.Health, error) {
	if err := database.HealthCheck(s.db); err != nil {
		return model.Health{
			Status:   model.HealthUnhealthy,
			Database: "disconnected",
			Error:    err.Error(),
		}, err
	}

	health := model.Health{Status: model.HealthHealthy, Database: "connected"}
	runs, err := s.runRepo.List(ctx, 1)
	if err != nil {
		health.Status = model.HealthUnhealthy
		health.Error = err.Error()
		return health, fmt.Errorf("%w: %w", apperrors.ErrFailedToRetrieveRuns, err)
	}
	if len(runs) > 0 {
		health.LastRun = &runs[0]
		if runs[0].Status == model.RunStatusFailed {
			health.Status = model.HealthDegraded
		}
	}
	return health, nil
}

// CheckVersion reports the application version and the applied schema version.
// MigrationNeeded is true when the embedded migrations are ahead of the database.
func (s *SystemService) CheckVersion(ctx context.Context) (model.VersionInfo, error) {
	current, err := database.SchemaVersion(ctx, s.db)
	if err != nil {
		return model.VersionInfo{}, fmt.Errorf("%w: %w", apperrors.ErrFailedToGetVersionInfo, err)
	}
	latest, err := database.LatestVersion(s.db)
	if err != nil {
		return model.VersionInfo{}, fmt.Errorf("%w: %w", apperrors.ErrFailedToGetVersionInfo, err)
	}

	return model.VersionInfo{
		AppVersion:      version.Version,
		DbVersion:       current,
		MigrationNeeded: current < latest,
	}, nil
}
