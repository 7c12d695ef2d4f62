package model

import "time"

// Pipeline run statuses.
const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

// PipelineRun records one batch invocation.
type PipelineRun struct {
	ID         string     `json:"id"`
	Trigger    string     `json:"trigger"`
	Status     string     `json:"status"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
	LatestDate string     `json:"latestDate,omitempty"`
	Stage      string     `json:"stage,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// RunSummary reports the row counts a successful run published.
type RunSummary struct {
	RunID          string         `json:"runId"`
	LatestDate     string         `json:"latestDate"`
	LedgerRows     int            `json:"ledgerRows"`
	CashFlowRows   int            `json:"cashFlowRows"`
	TargetRows     int            `json:"targetRows"`
	CacheRows      map[string]int `json:"cacheRows"`
	NewlyPending   []string       `json:"newlyPending,omitempty"`
	ExportedTables []string       `json:"exportedTables,omitempty"`
}
