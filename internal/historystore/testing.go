package historystore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// NewTestStore opens a Store against a disposable Postgres instance:
// an external CI database when OBSSEQ_CI_DATABASE_URL is set, or a
// testcontainers-managed container otherwise. The instance is cleaned
// up automatically when the test ends.
func NewTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	if ciURL := os.Getenv("OBSSEQ_CI_DATABASE_URL"); ciURL != "" {
		t.Log("using external PostgreSQL from OBSSEQ_CI_DATABASE_URL")
		store, err := OpenDSN(ctx, ciURL, "obsseq_test")
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.Close() })
		return store
	}

	t.Log("using testcontainers for PostgreSQL")
	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("obsseq_test"),
		tcpostgres.WithUsername("obsseq"),
		tcpostgres.WithPassword("obsseq"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(pgContainer); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	store, err := OpenDSN(ctx, connStr, "obsseq_test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}
