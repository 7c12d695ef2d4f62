package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ndewijer/Household-Ledger-Backend/internal/feed"
	"github.com/ndewijer/Household-Ledger-Backend/internal/model"
	"github.com/ndewijer/Household-Ledger-Backend/internal/repository"
)

// TaxonomyService maintains the asset and cash-flow item classifications.
type TaxonomyService struct {
	db      *sql.DB
	taxRepo *repository.TaxonomyRepository
	log     *logrus.Logger
}

// NewTaxonomyService creates a new TaxonomyService.
func NewTaxonomyService(db *sql.DB, taxRepo *repository.TaxonomyRepository, log *logrus.Logger) *TaxonomyService {
	return &TaxonomyService{
		db:      db,
		taxRepo: taxRepo,
		log:     log,
	}
}

// ImportResult counts the entries written by Import.
type ImportResult struct {
	Assets int
	Items  int
}

// Import reads the taxonomy CSVs and upserts their entries in one transaction.
// Either path may be empty to skip that file. Entries not present in the files
// are kept, so pending registrations survive until they are classified.
//
// Parameters:
//   - ctx: Context for cancellation
//   - assetsPath: CSV with columns asset,type,category,subtype,account
//   - itemsPath: CSV with columns item,flow_type,flow_category
//
// Returns the number of entries written, or an error if a file cannot be
// parsed or the transaction fails. Nothing is written on error.
func (s *TaxonomyService) Import(ctx context.Context, assetsPath, itemsPath string) (ImportResult, error) {
	var assets []model.AssetClass
	var items []model.CashFlowItem
	var err error

	if assetsPath != "" {
		if assets, err = feed.ReadFile(assetsPath, feed.ReadAssetClasses); err != nil {
			return ImportResult{}, err
		}
	}
	if itemsPath != "" {
		if items, err = feed.ReadFile(itemsPath, feed.ReadCashFlowItems); err != nil {
			return ImportResult{}, err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ImportResult{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // No-op after commit.

	repo := s.taxRepo.WithTx(tx)
	if err := repo.UpsertAssetClasses(ctx, assets); err != nil {
		return ImportResult{}, err
	}
	if err := repo.UpsertItems(ctx, items); err != nil {
		return ImportResult{}, err
	}
	if err := tx.Commit(); err != nil {
		return ImportResult{}, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"assets": len(assets),
		"items":  len(items),
	}).Info("Imported taxonomy")

	return ImportResult{Assets: len(assets), Items: len(items)}, nil
}

// Pending returns the asset entries still waiting for a classification.
func (s *TaxonomyService) Pending(ctx context.Context) ([]model.AssetClass, error) {
	return s.taxRepo.ListPending(ctx)
}
