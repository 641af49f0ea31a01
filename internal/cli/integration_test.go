//go:build integration

// internal/cli/integration_test.go
package cli

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github-repo-harvester/internal/backup"
	"github-repo-harvester/internal/database"
	"github-repo-harvester/internal/index"
	"github-repo-harvester/internal/model"
)

func startPostgres(ctx context.Context, t *testing.T) (string, func()) {
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

	return connStr, func() {
		require.NoError(t, pgContainer.Terminate(ctx))
	}
}

// Repairs a legacy record against a mock GitHub API, then publishes the
// backup into a real Postgres index through the command line.
func TestRepairAndReindex_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	dbURL, teardown := startPostgres(ctx, t)
	defer teardown()

	// Setup a mock GitHub API server
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/test-owner/test-repo":
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"id": 123, "owner": {"login": "test-owner"}, "name": "test-repo",
				"pushed_at": "2024-01-02T12:00:00Z", "created_at": "2020-01-01T00:00:00Z", "updated_at": "2024-01-03T08:30:00Z"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	server := httptest.NewServer(handler)
	defer server.Close()

	backupDir := t.TempDir()
	store, err := backup.Open(backupDir, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	require.NoError(t, store.WriteRepo(model.RepositoryRecord{
		Owner:      "test-owner",
		Repo:       "test-repo",
		FullName:   "test-owner/test-repo",
		PushedAt:   model.RawTimestamp("1704196800"),
		CreatedAt:  model.RawTimestamp("1577836800"),
		UpdatedAt:  model.RawTimestamp("1704270600"),
		LicenseKey: model.NoLicense,
		Languages:  map[string]model.LanguageStats{"Go": {Files: 2, Code: 40}},
	}))

	t.Setenv("GITHUB_TOKEN", "test-token")
	t.Setenv("GITHUB_API_URL", server.URL)
	t.Setenv("BACKUP_DIR", backupDir)
	t.Setenv("INDEX_BACKEND", "postgres")
	t.Setenv("DB_URL", dbURL)

	// --- ACT ---
	out, err := execute(t, "repair")
	require.NoError(t, err)
	assert.Contains(t, out, "repaired=1")

	out, err = execute(t, "reindex", "repos", "--create")
	require.NoError(t, err)
	assert.Contains(t, out, "indexed=1 skipped=0 failed=0")
	assert.Contains(t, out, "index=repos documents=1")

	// --- ASSERT ---
	dbpool, err := pgxpool.New(ctx, dbURL)
	require.NoError(t, err)
	defer dbpool.Close()

	doc, err := database.New(dbpool).GetDocument(ctx, database.GetDocumentParams{IndexName: index.Repos, DocID: "test-owner/test-repo"})
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(doc.Body, &body))
	assert.Equal(t, "2024-01-03T08:30:00Z", body["updated_at"])
	assert.Equal(t, []any{
		map[string]any{
			"language": map[string]any{"name": "Go", "type": "GPL"},
			"files":    float64(2), "blank": float64(0), "comment": float64(0), "code": float64(40),
		},
	}, body["languages"])
}
