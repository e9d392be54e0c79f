package testutil

import (
	"testing"

	"docvault/internal/core"
	"docvault/internal/database"
)

// NewTestDatabase creates a new in-memory SQLite repository with the
// schema applied. It is closed automatically when the test completes.
func NewTestDatabase(t *testing.T) core.Repository {
	t.Helper()

	db, err := database.NewSQLiteDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}
