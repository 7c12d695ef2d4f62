package database_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/Household-Ledger-Backend/internal/database"
)

// TestMigrate tests applying the embedded migrations.
//
// WHY: Both the server and the CLI migrate on start; a second run against an
// up-to-date database must be a no-op.
func TestMigrate(t *testing.T) {
	// Setup
	db, err := database.Open(filepath.Join(t.TempDir(), "nested", "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	ctx := context.Background()

	// Execute
	version, err := database.Migrate(ctx, db)
	require.NoError(t, err)
	again, err := database.Migrate(ctx, db)
	require.NoError(t, err)

	// Assert
	assert.Equal(t, int64(4), version)
	assert.Equal(t, version, again)

	current, err := database.SchemaVersion(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, version, current)

	latest, err := database.LatestVersion(db)
	require.NoError(t, err)
	assert.Equal(t, version, latest)

	for _, table := range []string{"asset_class", "cashflow_item", "asset_ledger", "cashflow_ledger", "target_ledger", "cache_table", "cache_cell", "pipeline_run"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		assert.NoError(t, err, "table %s", table)
	}
	assert.NoError(t, database.HealthCheck(db))
}
