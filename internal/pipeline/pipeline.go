// Package pipeline runs ordered, named table transforms and reports which
// stage failed.
package pipeline

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ndewijer/Household-Ledger-Backend/internal/apperrors"
)

// Table is anything a stage can report a row count for.
type Table interface {
	Len() int
}

// Stage is one named transform. Fn must not modify its input.
type Stage[T Table] struct {
	Name string
	Fn   func(ctx context.Context, in T) (T, error)
}

// Pipeline is an ordered list of stages over one table type.
type Pipeline[T Table] struct {
	name   string
	stages []Stage[T]
	log    logrus.FieldLogger
}

// New creates a pipeline named name. Stage timings are logged at debug level.
func New[T Table](name string, log logrus.FieldLogger, stages ...Stage[T]) *Pipeline[T] {
	return &Pipeline[T]{name: name, stages: stages, log: log}
}

// Run applies every stage in order. On failure it returns the table as it
// was handed to the failing stage together with an *apperrors.StageError
// naming that stage and its input row count.
func (p *Pipeline[T]) Run(ctx context.Context, input T) (T, error) {
	current := input
	for _, s := range p.stages {
		if err := ctx.Err(); err != nil {
			return current, &apperrors.StageError{Stage: s.Name, Rows: current.Len(), Err: err}
		}

		start := time.Now()
		next, err := s.Fn(ctx, current)
		if err != nil {
			return current, &apperrors.StageError{Stage: s.Name, Rows: current.Len(), Err: err}
		}

		if p.log != nil {
			p.log.WithFields(logrus.Fields{
				"pipeline":    p.name,
				"stage":       s.Name,
				"rows_in":     current.Len(),
				"rows_out":    next.Len(),
				"duration_ms": time.Since(start).Milliseconds(),
			}).Debug("Stage completed")
		}
		current = next
	}
	return current, nil
}

// Stages returns the stage names in execution order.
func (p *Pipeline[T]) Stages() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name
	}
	return names
}
