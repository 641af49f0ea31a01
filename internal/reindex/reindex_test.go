// internal/reindex/reindex_test.go
package reindex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github-repo-harvester/internal/backup"
	"github-repo-harvester/internal/index"
	"github-repo-harvester/internal/model"
)

// MockIndexer is a mock of the index.Indexer interface.
type MockIndexer struct {
	mock.Mock
}

func (m *MockIndexer) CreateIndex(ctx context.Context, name string, schema json.RawMessage) error {
	return m.Called(ctx, name, schema).Error(0)
}

func (m *MockIndexer) DeleteIndex(ctx context.Context, name string) error {
	return m.Called(ctx, name).Error(0)
}

func (m *MockIndexer) Upsert(ctx context.Context, indexName, id string, doc any) error {
	return m.Called(ctx, indexName, id, doc).Error(0)
}

func newTestStore(t *testing.T) *backup.Store {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	store, err := backup.Open(t.TempDir(), logger)
	require.NoError(t, err)
	return store
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func goRecord() model.RepositoryRecord {
	return model.RepositoryRecord{
		Owner:      "golang",
		Repo:       "go",
		FullName:   "golang/go",
		URL:        "https://github.com/golang/go",
		CloneURL:   "https://github.com/golang/go.git",
		Size:       300000,
		Forks:      17000,
		Stargazers: 120000,
		Watchers:   120000,
		PushedAt:   model.TimestampFromString("2024-05-01T10:00:00Z"),
		CreatedAt:  model.TimestampFromString("2014-08-19T04:33:40Z"),
		UpdatedAt:  model.TimestampFromString("2024-05-01T10:05:00Z"),
		LicenseKey: "bsd-3-clause",
		Languages: map[string]model.LanguageStats{
			"Go": {Files: 3, Blank: 1, Comment: 2, Code: 50},
		},
	}
}

func TestNewRepositoryDocument(t *testing.T) {
	rec := goRecord()
	rec.Languages["Assembly"] = model.LanguageStats{Files: 1, Code: 7}

	doc := NewRepositoryDocument(rec, LanguageTable{"Go": "MIT-like"}, "GPL")

	assert.Equal(t, []LanguageEntry{
		{Language: LanguageRef{Name: "Assembly", Classification: "GPL"}, Files: 1, Code: 7},
		{Language: LanguageRef{Name: "Go", Classification: "MIT-like"}, Files: 3, Blank: 1, Comment: 2, Code: 50},
	}, doc.Languages)

	b, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"updated_at":"2024-05-01T10:05:00Z"`)
	assert.Contains(t, string(b), `{"language":{"name":"Go","type":"MIT-like"},"files":3,"blank":1,"comment":2,"code":50}`)
}

func TestReindexer_Repos(t *testing.T) {
	ctx := context.Background()

	t.Run("upserts reshaped documents keyed by full name", func(t *testing.T) {
		store := newTestStore(t)
		require.NoError(t, store.WriteRepo(goRecord()))
		ix := new(MockIndexer)
		var got RepositoryDocument
		ix.On("Upsert", mock.Anything, index.Repos, "golang/go", mock.AnythingOfType("reindex.RepositoryDocument")).
			Run(func(args mock.Arguments) { got = args.Get(3).(RepositoryDocument) }).
			Return(nil).Once()
		r := NewReindexer(store, ix, LanguageTable{"Go": "MIT-like"}, testLogger(), Options{Workers: 2})

		res, err := r.Repos(ctx)

		require.NoError(t, err)
		assert.Equal(t, Result{Indexed: 1}, res)
		require.Len(t, got.Languages, 1)
		assert.Equal(t, LanguageEntry{
			Language: LanguageRef{Name: "Go", Classification: "MIT-like"},
			Files:    3, Blank: 1, Comment: 2, Code: 50,
		}, got.Languages[0])
		ix.AssertExpectations(t)
	})

	t.Run("skips records with malformed updated_at", func(t *testing.T) {
		store := newTestStore(t)
		bad := goRecord()
		bad.Owner, bad.FullName = "legacy", "legacy/go"
		bad.UpdatedAt = model.RawTimestamp("1337")
		require.NoError(t, store.WriteRepo(bad))
		require.NoError(t, store.WriteRepo(goRecord()))
		ix := new(MockIndexer)
		ix.On("Upsert", mock.Anything, index.Repos, "golang/go", mock.Anything).Return(nil).Once()
		r := NewReindexer(store, ix, nil, testLogger(), Options{})

		res, err := r.Repos(ctx)

		require.NoError(t, err)
		assert.Equal(t, Result{Indexed: 1, Skipped: 1}, res)
		ix.AssertNotCalled(t, "Upsert", mock.Anything, index.Repos, "legacy/go", mock.Anything)
	})

	t.Run("counts failed uploads and keeps going", func(t *testing.T) {
		store := newTestStore(t)
		require.NoError(t, store.WriteRepo(goRecord()))
		other := goRecord()
		other.Owner, other.FullName = "other", "other/go"
		require.NoError(t, store.WriteRepo(other))
		ix := new(MockIndexer)
		ix.On("Upsert", mock.Anything, index.Repos, "golang/go", mock.Anything).Return(errors.New("503")).Once()
		ix.On("Upsert", mock.Anything, index.Repos, "other/go", mock.Anything).Return(nil).Once()
		r := NewReindexer(store, ix, nil, testLogger(), Options{Workers: 1})

		res, err := r.Repos(ctx)

		require.NoError(t, err)
		assert.Equal(t, Result{Indexed: 1, Failed: 1}, res)
	})
}

func TestReindexer_LanguagesAndLicenses(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.WriteLanguage(model.LanguageRecord{Name: "Go", Classification: "GPL"}))
	require.NoError(t, store.WriteLanguage(model.LanguageRecord{Name: "Zig", Classification: "GPL"}))
	lic := model.LicenseRecord{Key: "mit", Name: "MIT License", SPDXID: "MIT", URL: "https://api.github.com/licenses/mit", NodeID: "MDc6TGljZW5zZTEz"}
	require.NoError(t, store.WriteLicense(lic))

	ix := new(MockIndexer)
	ix.On("Upsert", ctx, index.Languages, "Go", model.LanguageRecord{Name: "Go", Classification: "MIT-like"}).Return(nil).Once()
	ix.On("Upsert", ctx, index.Languages, "Rust", model.LanguageRecord{Name: "Rust", Classification: "MIT-like"}).Return(nil).Once()
	ix.On("Upsert", ctx, index.Languages, "Zig", model.LanguageRecord{Name: "Zig", Classification: "GPL"}).Return(nil).Once()
	ix.On("Upsert", ctx, index.Licenses, "mit", lic).Return(nil).Once()
	r := NewReindexer(store, ix, LanguageTable{"Go": "MIT-like", "Rust": "MIT-like"}, testLogger(), Options{})

	langs, err := r.Languages(ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{Indexed: 3}, langs)

	licenses, err := r.Licenses(ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{Indexed: 1}, licenses)
	ix.AssertExpectations(t)
}

func TestLanguageTable(t *testing.T) {
	table, err := ReadLanguageTable(strings.NewReader("type,name\nMIT-like,Go\nGPL,C++\n,\n"))
	require.NoError(t, err)
	assert.Equal(t, LanguageTable{"Go": "MIT-like", "C++": "GPL"}, table)
	assert.Equal(t, "MIT-like", table.Classify("Go", "GPL"))
	assert.Equal(t, "GPL", table.Classify("Unknown", "GPL"))

	_, err = ReadLanguageTable(strings.NewReader("language\nGo\n"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "langs.csv")
	var buf bytes.Buffer
	require.NoError(t, WriteLanguageTable(&buf, []string{"Go", "C++"}, "GPL"))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	loaded, err := LoadLanguageTable(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"C++", "Go"}, loaded.Names())
}
