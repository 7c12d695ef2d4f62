package service_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/Household-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Household-Ledger-Backend/internal/model"
	"github.com/ndewijer/Household-Ledger-Backend/internal/repository"
	"github.com/ndewijer/Household-Ledger-Backend/internal/testutil"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// TestTaxonomyService_Import tests loading classifications from CSV.
//
// WHY: Pending assets are classified by editing the taxonomy files and
// importing them again; an import must classify pending entries in place.
func TestTaxonomyService_Import(t *testing.T) {
	// Setup
	db := testutil.SetupTestDB(t)
	testutil.NewAssetClass("Crypto Wallet").Build(t, db)
	svc := testutil.NewTestTaxonomyService(t, db)
	ctx := context.Background()

	assets := writeFile(t, "assets.csv", "asset,type,category,subtype,account\n"+
		"Crypto Wallet,risky,crypto,equity,Exchange\n"+
		"Index Fund,risky,equity,fund,Broker\n")
	items := writeFile(t, "items.csv", "item,flow_type,flow_category\n"+
		"salary,general,income\n")

	pending, err := svc.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	// Execute
	result, err := svc.Import(ctx, assets, items)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 2, result.Assets)
	assert.Equal(t, 1, result.Items)

	pending, err = svc.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	tax, err := repository.NewTaxonomyRepository(db).Load(ctx)
	require.NoError(t, err)
	wallet, ok := tax.Asset("Crypto Wallet")
	require.True(t, ok)
	assert.Equal(t, "Exchange", wallet.Account)
	item, ok := tax.Item("salary")
	require.True(t, ok)
	assert.Equal(t, model.FlowCategoryIncome, item.FlowCategory)
}

// TestTaxonomyService_Import_Invalid tests that a bad file writes nothing.
//
// WHY: A half-imported taxonomy would let the next run classify assets
// inconsistently.
func TestTaxonomyService_Import_Invalid(t *testing.T) {
	// Setup
	db := testutil.SetupTestDB(t)
	svc := testutil.NewTestTaxonomyService(t, db)
	ctx := context.Background()

	assets := writeFile(t, "assets.csv", "asset,type,category,subtype,account\nIndex Fund,risky,equity,fund,Broker\n")
	items := writeFile(t, "items.csv", "item,flow\nsalary,general\n")

	// Execute
	_, err := svc.Import(ctx, assets, items)

	// Assert
	assert.ErrorIs(t, err, apperrors.ErrInvalidCSVHeaders)
	all, err := repository.NewTaxonomyRepository(db).ListAssetClasses(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}
