package database

import (
	"context"
	"os"
	"testing"
	"time"
)

// TestDSNEnv names the environment variable holding the integration test DSN
const TestDSNEnv = "CLEVER_EDGE_TEST_DATABASE_DSN"

// SetupTestDB connects to the integration database, skipping the test when
// no DSN is configured.
func SetupTestDB(t *testing.T) *DB {
	t.Helper()
	dsn := os.Getenv(TestDSNEnv)
	if dsn == "" {
		t.Skipf("integration test - set %s to run", TestDSNEnv)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db, err := NewDB(ctx, dsn, 2)
	if err != nil {
		t.Fatalf("failed to create test database connection: %v", err)
	}
	if err := EnsureSchema(ctx, db.pool); err != nil {
		db.Close()
		t.Fatalf("failed to apply schema: %v", err)
	}
	t.Cleanup(db.Close)
	return db
}
