// internal/index/postgres/postgres_test.go
package postgres

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github-repo-harvester/internal/database"
	"github-repo-harvester/internal/index"
)

// MockQuerier is a mock of the database.Querier interface.
type MockQuerier struct {
	mock.Mock
}

func (m *MockQuerier) CountDocuments(ctx context.Context, indexName string) (int64, error) {
	args := m.Called(ctx, indexName)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockQuerier) CreateIndex(ctx context.Context, arg database.CreateIndexParams) (int64, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockQuerier) DeleteIndex(ctx context.Context, name string) (int64, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockQuerier) GetDocument(ctx context.Context, arg database.GetDocumentParams) (database.SearchDocument, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(database.SearchDocument), args.Error(1)
}
func (m *MockQuerier) UpsertDocument(ctx context.Context, arg database.UpsertDocumentParams) error {
	args := m.Called(ctx, arg)
	return args.Error(0)
}

func TestIndexer(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := context.Background()

	t.Run("creates an index once", func(t *testing.T) {
		mockQ := new(MockQuerier)
		ix := NewIndexer(mockQ, logger)
		schema, _ := index.Schema(index.Licenses)
		arg := database.CreateIndexParams{Name: index.Licenses, Schema: schema}
		mockQ.On("CreateIndex", ctx, arg).Return(int64(1), nil).Once()
		mockQ.On("CreateIndex", ctx, arg).Return(int64(0), nil).Once()

		assert.NoError(t, ix.CreateIndex(ctx, index.Licenses, schema))
		assert.ErrorIs(t, ix.CreateIndex(ctx, index.Licenses, schema), index.ErrIndexExists)
		mockQ.AssertExpectations(t)
	})

	t.Run("deleting a missing index fails", func(t *testing.T) {
		mockQ := new(MockQuerier)
		ix := NewIndexer(mockQ, logger)
		mockQ.On("DeleteIndex", ctx, index.Repos).Return(int64(0), nil).Once()

		assert.ErrorIs(t, ix.DeleteIndex(ctx, index.Repos), index.ErrIndexNotFound)
		mockQ.AssertExpectations(t)
	})

	t.Run("upserts the JSON encoded document", func(t *testing.T) {
		mockQ := new(MockQuerier)
		ix := NewIndexer(mockQ, logger)
		mockQ.On("UpsertDocument", ctx, database.UpsertDocumentParams{
			IndexName: index.Repos,
			DocID:     "golang/go",
			Body:      []byte(`{"full_name":"golang/go"}`),
		}).Return(nil).Once()

		err := ix.Upsert(ctx, index.Repos, "golang/go", map[string]string{"full_name": "golang/go"})

		assert.NoError(t, err)
		mockQ.AssertExpectations(t)
	})

	t.Run("counts the documents of an index", func(t *testing.T) {
		mockQ := new(MockQuerier)
		ix := NewIndexer(mockQ, logger)
		mockQ.On("CountDocuments", ctx, index.Repos).Return(int64(42), nil).Once()

		var counter index.Counter = ix
		n, err := counter.Count(ctx, index.Repos)

		assert.NoError(t, err)
		assert.Equal(t, int64(42), n)
		mockQ.AssertExpectations(t)
	})

	t.Run("returns database errors", func(t *testing.T) {
		mockQ := new(MockQuerier)
		ix := NewIndexer(mockQ, logger)
		dbError := errors.New("connection refused")
		mockQ.On("UpsertDocument", ctx, mock.Anything).Return(dbError).Once()

		err := ix.Upsert(ctx, index.Repos, "a/b", map[string]int{"size": 1})

		assert.Equal(t, dbError, err)
		mockQ.AssertNotCalled(t, "CreateIndex")
	})
}
