package model

// VersionInfo contains version and schema information for the application.
type VersionInfo struct {
	AppVersion      string `json:"app_version"`
	DbVersion       int64  `json:"db_version"`
	MigrationNeeded bool   `json:"migration_needed"`
}

// Health statuses.
const (
	HealthHealthy   = "healthy"
	HealthDegraded  = "degraded"
	HealthUnhealthy = "unhealthy"
)

// Health reports database connectivity and the outcome of the latest run.
// Status is degraded when the database is reachable but the latest run failed.
type Health struct {
	Status   string       `json:"status"`
	Database string       `json:"database"`
	LastRun  *PipelineRun `json:"lastRun,omitempty"`
	Error    string       `json:"error,omitempty"`
}
