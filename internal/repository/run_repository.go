package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ndewijer/Household-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Household-Ledger-Backend/internal/model"
)

// RunRepository provides data access methods for the pipeline_run table.
type RunRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewRunRepository creates a new RunRepository with the provided database connection.
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// WithTx returns a new RunRepository scoped to the provided transaction.
func (r *RunRepository) WithTx(tx *sql.Tx) *RunRepository {
	return &RunRepository{
		db: r.db,
		tx: tx,
	}
}

func (r *RunRepository) getQuerier() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

// Insert records a new run.
func (r *RunRepository) Insert(ctx context.Context, run *model.PipelineRun) error {
	_, err := r.getQuerier().ExecContext(ctx, `
		INSERT INTO pipeline_run (id, trigger_source, status, started_at, latest_date, stage, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.Trigger,
		run.Status,
		run.StartedAt.UTC().Format(timestampLayout),
		nullString(run.LatestDate),
		run.Stage,
		run.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to insert pipeline_run: %w", err)
	}
	return nil
}

// Finish stores the final status, stage and error of run.
func (r *RunRepository) Finish(ctx context.Context, run *model.PipelineRun) error {
	var finished any
	if run.FinishedAt != nil {
		finished = run.FinishedAt.UTC().Format(timestampLayout)
	}

	result, err := r.getQuerier().ExecContext(ctx, `
		UPDATE pipeline_run
		SET status = ?, finished_at = ?, latest_date = ?, stage = ?, error = ?
		WHERE id = ?
	`, run.Status, finished, nullString(run.LatestDate), run.Stage, run.Error, run.ID)
	if err != nil {
		return fmt.Errorf("failed to update pipeline_run: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperrors.ErrRunNotFound
	}
	return nil
}

// FailInterrupted marks runs left in the running state by a previous process
// as failed and returns how many were updated.
func (r *RunRepository) FailInterrupted(ctx context.Context, at time.Time) (int64, error) {
	result, err := r.getQuerier().ExecContext(ctx, `
		UPDATE pipeline_run
		SET status = ?, finished_at = ?, error = 'interrupted'
		WHERE status = ?
	`, model.RunStatusFailed, at.UTC().Format(timestampLayout), model.RunStatusRunning)
	if err != nil {
		return 0, fmt.Errorf("failed to fail interrupted runs: %w", err)
	}
	return result.RowsAffected()
}

// Get returns the run with the given ID.
func (r *RunRepository) Get(ctx context.Context, id string) (model.PipelineRun, error) {
	row := r.getQuerier().QueryRowContext(ctx, `
		SELECT id, trigger_source, status, started_at, finished_at, latest_date, stage, error
		FROM pipeline_run
		WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.PipelineRun{}, apperrors.ErrRunNotFound
	}
	return run, err
}

// List returns up to limit runs, newest first.
func (r *RunRepository) List(ctx context.Context, limit int) ([]model.PipelineRun, error) {
	rows, err := r.getQuerier().QueryContext(ctx, `
		SELECT id, trigger_source, status, started_at, finished_at, latest_date, stage, error
		FROM pipeline_run
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pipeline_run: %w", err)
	}
	defer rows.Close()

	runs := make([]model.PipelineRun, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pipeline_run rows: %w", err)
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (model.PipelineRun, error) {
	var run model.PipelineRun
	var startedStr string
	var finishedStr, latestStr sql.NullString

	err := s.Scan(&run.ID, &run.Trigger, &run.Status, &startedStr, &finishedStr, &latestStr, &run.Stage, &run.Error)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return run, err
		}
		return run, fmt.Errorf("failed to scan pipeline_run: %w", err)
	}

	run.StartedAt, err = ParseTime(startedStr)
	if err != nil {
		return run, fmt.Errorf("failed to parse started_at: %w", err)
	}
	if finishedStr.Valid {
		finished, err := ParseTime(finishedStr.String)
		if err != nil {
			return run, fmt.Errorf("failed to parse finished_at: %w", err)
		}
		run.FinishedAt = &finished
	}
	if latestStr.Valid {
		latest, err := ParseTime(latestStr.String)
		if err != nil {
			return run, fmt.Errorf("failed to parse latest_date: %w", err)
		}
		run.LatestDate = model.DateKey(latest)
	}
	return run, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
