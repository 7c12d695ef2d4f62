package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

// Pipeline error classes. Every typed error below matches exactly one of these
// through errors.Is so callers can branch without type switches.
var (
	// ErrContinuity indicates an asset or cash-flow item has no taxonomy entry.
	// The run is blocked until a human classifies the identifiers.
	ErrContinuity = errors.New("unregistered identifier")

	// ErrSourceData indicates a required input table is missing or empty.
	ErrSourceData = errors.New("missing source data")

	// ErrRateSchedule indicates the control points cannot cover the requested range.
	ErrRateSchedule = errors.New("insufficient rate schedule")

	// ErrReconciliationAmbiguity indicates two realized-profit rules claimed the same cell.
	ErrReconciliationAmbiguity = errors.New("reconciliation ambiguity")
)

// Input and lookup errors.
var (
	// ErrInvalidDateRange indicates that the provided date range is invalid
	// (e.g., start date is after end date).
	ErrInvalidDateRange = errors.New("invalid date range")

	// ErrInvalidCSVHeaders indicates a feed file does not carry the expected header row.
	ErrInvalidCSVHeaders = errors.New("invalid CSV headers")

	// ErrInvalidPolicy indicates the policy file failed validation.
	ErrInvalidPolicy = errors.New("invalid policy")

	// ErrRunInProgress indicates a pipeline run is already executing.
	ErrRunInProgress = errors.New("pipeline run already in progress")

	// ErrRunNotFound indicates that a pipeline run with the given ID does not exist.
	ErrRunNotFound = errors.New("pipeline run not found")

	// ErrCacheTableNotFound indicates that no cache table with the given name is stored.
	ErrCacheTableNotFound = errors.New("cache table not found")

	// ErrInvalidUUID indicates that a provided ID is not a valid UUID format.
	ErrInvalidUUID = errors.New("invalid UUID format")

	ErrFailedToGetVersionInfo = errors.New("failed to get version information")
	ErrFailedToRetrieveRuns   = errors.New("failed to retrieve pipeline runs")
)

// ContinuityError lists every identifier that failed a taxonomy lookup in one stage.
type ContinuityError struct {
	Stage       string
	Identifiers []string
}

func (e *ContinuityError) Error() string {
	return fmt.Sprintf("%s: %d identifier(s) not registered in taxonomy: %s",
		e.Stage, len(e.Identifiers), strings.Join(e.Identifiers, ", "))
}

func (e *ContinuityError) Is(target error) bool {
	return target == ErrContinuity
}

// SourceDataError names the empty table and the window it was read for.
type SourceDataError struct {
	Table string
	From  string
	To    string
}

func (e *SourceDataError) Error() string {
	if e.From == "" && e.To == "" {
		return fmt.Sprintf("source table %q is empty", e.Table)
	}
	return fmt.Sprintf("source table %q is empty for %s..%s", e.Table, e.From, e.To)
}

func (e *SourceDataError) Is(target error) bool {
	return target == ErrSourceData
}

// RateScheduleError names the rate series that cannot be interpolated.
type RateScheduleError struct {
	Rate   string
	From   string
	To     string
	Reason string
}

func (e *RateScheduleError) Error() string {
	return fmt.Sprintf("rate %q cannot cover %s..%s: %s", e.Rate, e.From, e.To, e.Reason)
}

func (e *RateScheduleError) Is(target error) bool {
	return target == ErrRateSchedule
}

// ReconciliationAmbiguity reports two rules claiming the same (date, asset) cell.
type ReconciliationAmbiguity struct {
	Date    string
	AssetID string
	First   string
	Second  string
}

func (e *ReconciliationAmbiguity) Error() string {
	return fmt.Sprintf("realized profit for %s on %s claimed by both %q and %q",
		e.AssetID, e.Date, e.First, e.Second)
}

func (e *ReconciliationAmbiguity) Is(target error) bool {
	return target == ErrReconciliationAmbiguity
}

// StageError wraps a failure with the pipeline stage that produced it and the
// number of rows the stage received.
type StageError struct {
	Stage string
	Rows  int
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed on %d rows: %v", e.Stage, e.Rows, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// StageOf returns the stage name carried by err, or "".
func StageOf(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
