package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ndewijer/Household-Ledger-Backend/internal/model"
	"github.com/ndewijer/Household-Ledger-Backend/internal/taxonomy"
)

// TaxonomyRepository provides data access methods for the asset_class and
// cashflow_item tables.
type TaxonomyRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewTaxonomyRepository creates a new TaxonomyRepository with the provided database connection.
func NewTaxonomyRepository(db *sql.DB) *TaxonomyRepository {
	return &TaxonomyRepository{db: db}
}

// WithTx returns a new TaxonomyRepository scoped to the provided transaction.
func (r *TaxonomyRepository) WithTx(tx *sql.Tx) *TaxonomyRepository {
	return &TaxonomyRepository{
		db: r.db,
		tx: tx,
	}
}

func (r *TaxonomyRepository) getQuerier() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

// Load reads both taxonomy tables into an immutable snapshot.
func (r *TaxonomyRepository) Load(ctx context.Context) (*taxonomy.Taxonomy, error) {
	assets, err := r.ListAssetClasses(ctx)
	if err != nil {
		return nil, err
	}
	items, err := r.ListItems(ctx)
	if err != nil {
		return nil, err
	}
	return taxonomy.New(assets, items), nil
}

// ListAssetClasses returns every asset entry ordered by identifier.
func (r *TaxonomyRepository) ListAssetClasses(ctx context.Context) ([]model.AssetClass, error) {
	return r.queryAssetClasses(ctx, `
		SELECT asset_id, type, category, subtype, account
		FROM asset_class
		ORDER BY asset_id ASC
	`)
}

// ListPending returns the asset entries that still have a blank
// classification.
func (r *TaxonomyRepository) ListPending(ctx context.Context) ([]model.AssetClass, error) {
	return r.queryAssetClasses(ctx, `
		SELECT asset_id, type, category, subtype, account
		FROM asset_class
		WHERE type = '' AND category = '' AND subtype = ''
		ORDER BY asset_id ASC
	`)
}

func (r *TaxonomyRepository) queryAssetClasses(ctx context.Context, query string) ([]model.AssetClass, error) {
	rows, err := r.getQuerier().QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query asset_class: %w", err)
	}
	defer rows.Close()

	assets := make([]model.AssetClass, 0)
	for rows.Next() {
		var a model.AssetClass
		if err := rows.Scan(&a.ID, &a.Type, &a.Category, &a.Subtype, &a.Account); err != nil {
			return nil, fmt.Errorf("failed to scan asset_class: %w", err)
		}
		assets = append(assets, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating asset_class rows: %w", err)
	}
	return assets, nil
}

// ListItems returns every cash-flow item entry ordered by name.
func (r *TaxonomyRepository) ListItems(ctx context.Context) ([]model.CashFlowItem, error) {
	rows, err := r.getQuerier().QueryContext(ctx, `
		SELECT item, flow_type, flow_category
		FROM cashflow_item
		ORDER BY item ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query cashflow_item: %w", err)
	}
	defer rows.Close()

	items := make([]model.CashFlowItem, 0)
	for rows.Next() {
		var it model.CashFlowItem
		if err := rows.Scan(&it.Item, &it.FlowType, &it.FlowCategory); err != nil {
			return nil, fmt.Errorf("failed to scan cashflow_item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cashflow_item rows: %w", err)
	}
	return items, nil
}

// UpsertAssetClasses inserts or overwrites asset entries by identifier.
func (r *TaxonomyRepository) UpsertAssetClasses(ctx context.Context, assets []model.AssetClass) error {
	stmt, err := r.getQuerier().PrepareContext(ctx, `
		INSERT INTO asset_class (asset_id, type, category, subtype, account)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(asset_id) DO UPDATE SET
			type = excluded.type,
			category = excluded.category,
			subtype = excluded.subtype,
			account = excluded.account
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare asset_class upsert: %w", err)
	}
	defer stmt.Close()

	for _, a := range assets {
		if _, err := stmt.ExecContext(ctx, a.ID, a.Type, a.Category, a.Subtype, a.Account); err != nil {
			return fmt.Errorf("failed to upsert asset_class %q: %w", a.ID, err)
		}
	}
	return nil
}

// InsertPending registers identifiers with a blank classification. Existing
// entries are left untouched.
func (r *TaxonomyRepository) InsertPending(ctx context.Context, ids []string) error {
	stmt, err := r.getQuerier().PrepareContext(ctx, `
		INSERT INTO asset_class (asset_id) VALUES (?)
		ON CONFLICT(asset_id) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare asset_class insert: %w", err)
	}
	defer stmt.Close()

	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, id); err != nil {
			return fmt.Errorf("failed to register asset %q: %w", id, err)
		}
	}
	return nil
}

// UpsertItems inserts or overwrites cash-flow item entries by name.
func (r *TaxonomyRepository) UpsertItems(ctx context.Context, items []model.CashFlowItem) error {
	stmt, err := r.getQuerier().PrepareContext(ctx, `
		INSERT INTO cashflow_item (item, flow_type, flow_category)
		VALUES (?, ?, ?)
		ON CONFLICT(item) DO UPDATE SET
			flow_type = excluded.flow_type,
			flow_category = excluded.flow_category
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare cashflow_item upsert: %w", err)
	}
	defer stmt.Close()

	for _, it := range items {
		if _, err := stmt.ExecContext(ctx, it.Item, it.FlowType, it.FlowCategory); err != nil {
			return fmt.Errorf("failed to upsert cashflow_item %q: %w", it.Item, err)
		}
	}
	return nil
}
