//go:build integration

package testdb

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/phrazzld/pathwise/internal/platform/logger"
	"github.com/phrazzld/pathwise/internal/platform/postgres"
	"github.com/stretchr/testify/require"
)

// Environment variables consulted for the database URL, in order.
const (
	EnvTestDatabaseURL = "PATHWISE_TEST_DATABASE_URL"
	EnvDatabaseURL     = "DATABASE_URL"
)

var migrateOnce sync.Once
var migrateErr error

// GetTestDatabaseURL returns the configured test database URL, or "".
func GetTestDatabaseURL() string {
	for _, key := range []string{EnvTestDatabaseURL, EnvDatabaseURL} {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return ""
}

// GetTestDBWithT opens a connection to the test database, applies all
// migrations once per process, and closes the connection when the test ends.
// The test is skipped when no database URL is configured.
func GetTestDBWithT(t *testing.T) *sql.DB {
	t.Helper()

	url := GetTestDatabaseURL()
	if url == "" {
		t.Skipf("%s not set, skipping database test", EnvTestDatabaseURL)
	}

	db, err := sql.Open("pgx", url)
	require.NoError(t, err, "open test database")
	t.Cleanup(func() { _ = db.Close() })

	db.SetMaxOpenConns(5)
	db.SetConnMaxLifetime(time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, db.PingContext(ctx), "ping test database")

	migrateOnce.Do(func() {
		log, _ := logger.NewTestLogger()
		migrateErr = postgres.Migrate(context.Background(), db, "up", log)
	})
	require.NoError(t, migrateErr, "migrate test database")

	return db
}

// WithTx runs fn inside a transaction that is always rolled back.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err, "begin test transaction")

	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			t.Errorf("rollback test transaction: %v", err)
		}
	}()

	fn(t, tx)
}
