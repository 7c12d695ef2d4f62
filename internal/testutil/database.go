package testutil

import (
	"context"
	"database/sql"
	"testing"

	"github.com/ndewijer/Household-Ledger-Backend/internal/database"
)

// SetupTestDB returns a migrated in-memory database that is closed when the
// test ends. Open pins the pool to one connection, so every query in the test
// sees the same in-memory schema.
//
//	db := testutil.SetupTestDB(t)
//	testutil.SeedSampleTaxonomy(t, db)
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	version, err := database.Migrate(context.Background(), db)
	if err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	if version == 0 {
		t.Fatal("Test database has no migrations applied")
	}
	return db
}
