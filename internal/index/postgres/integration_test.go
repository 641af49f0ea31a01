//go:build integration

// internal/index/postgres/integration_test.go
package postgres

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github-repo-harvester/internal/database"
	"github-repo-harvester/internal/index"
)

func setupTestDatabase(ctx context.Context, t *testing.T) (*pgxpool.Pool, func()) {
	// Start a postgres container
	pgContainer, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("test-db"),
		tcpostgres.WithUsername("user"),
		tcpostgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, database.Migrate(connStr))

	dbpool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	teardown := func() {
		dbpool.Close()
		err := pgContainer.Terminate(ctx)
		require.NoError(t, err)
	}

	return dbpool, teardown
}

func TestIndexer_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	dbpool, teardown := setupTestDatabase(ctx, t)
	defer teardown()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	q := database.New(dbpool)
	ix := NewIndexer(q, logger)

	require.NoError(t, index.Create(ctx, ix, index.Names()...))
	assert.ErrorIs(t, index.Create(ctx, ix, index.Repos), index.ErrIndexExists)

	// Upserting twice keeps one document with the latest body.
	require.NoError(t, ix.Upsert(ctx, index.Repos, "golang/go", map[string]any{"full_name": "golang/go", "stargazers": 1}))
	require.NoError(t, ix.Upsert(ctx, index.Repos, "golang/go", map[string]any{"full_name": "golang/go", "stargazers": 2}))

	n, err := q.CountDocuments(ctx, index.Repos)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	doc, err := q.GetDocument(ctx, database.GetDocumentParams{IndexName: index.Repos, DocID: "golang/go"})
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(doc.Body, &body))
	assert.Equal(t, float64(2), body["stargazers"])

	require.NoError(t, index.Delete(ctx, ix, index.Repos))
	n, err = q.CountDocuments(ctx, index.Repos)
	require.NoError(t, err)
	assert.Zero(t, n)
}
