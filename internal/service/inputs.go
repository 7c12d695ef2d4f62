package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/ndewijer/Household-Ledger-Backend/internal/config"
	"github.com/ndewijer/Household-Ledger-Backend/internal/feed"
	"github.com/ndewijer/Household-Ledger-Backend/internal/model"
)

// Inputs bundles the source data of one run.
type Inputs struct {
	Policy       *config.Policy
	Snapshots    []model.Snapshot
	Transactions []model.Transaction
	Offsets      []model.UnrealizedOffset
}

// InputLoader provides the inputs of a run.
type InputLoader interface {
	Load(ctx context.Context) (*Inputs, error)
}

// FileLoader reads the policy and feeds from the paths in the pipeline
// configuration. Files are re-read on every run.
type FileLoader struct {
	cfg config.PipelineConfig
}

// NewFileLoader creates a FileLoader for cfg.
func NewFileLoader(cfg config.PipelineConfig) *FileLoader {
	return &FileLoader{cfg: cfg}
}

// Load reads every input concurrently. The offsets file is optional.
func (l *FileLoader) Load(ctx context.Context) (*Inputs, error) {
	in := &Inputs{}
	g, _ := errgroup.WithContext(ctx)

	g.Go(func() error {
		p, err := config.LoadPolicy(l.cfg.PolicyPath)
		in.Policy = p
		return err
	})
	g.Go(func() error {
		rows, err := feed.ReadFile(l.cfg.SnapshotFeed, feed.ReadSnapshots)
		in.Snapshots = rows
		return err
	})
	g.Go(func() error {
		rows, err := feed.ReadFile(l.cfg.TransactionFeed, feed.ReadTransactions)
		in.Transactions = rows
		return err
	})
	if l.cfg.OffsetsPath != "" {
		g.Go(func() error {
			rows, err := feed.ReadFile(l.cfg.OffsetsPath, feed.ReadOffsets)
			in.Offsets = rows
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return in, nil
}

// StaticLoader returns fixed inputs. Used by tests and by callers that have
// already parsed their inputs.
type StaticLoader struct {
	Inputs *Inputs
}

// Load returns the fixed inputs.
func (l StaticLoader) Load(context.Context) (*Inputs, error) {
	return l.Inputs, nil
}
