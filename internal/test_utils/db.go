package test_utils

import (
	"testing"

	"github.com/eunsilkim-ELSA/family-calendar/internal/config"
	"github.com/eunsilkim-ELSA/family-calendar/internal/database"
	"github.com/jmoiron/sqlx"
)

// SetupTestDB creates a new in-memory SQLite database and applies all migrations.
// Each database is completely isolated from others.
func SetupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	db, err := database.OpenSQLite(config.SQLite{Path: ":memory:"})
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})

	if err := database.MigrateSQLite(db.DB); err != nil {
		t.Fatalf("Failed to apply migrations: %v", err)
	}
	return db
}

// SetupTestConn wraps SetupTestDB in the connection adapter used by the repositories.
func SetupTestConn(t *testing.T) database.Conn {
	t.Helper()
	return database.NewSqlxConn(SetupTestDB(t), database.DialectSQLite)
}
