// internal/index/postgres/postgres.go
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github-repo-harvester/internal/database"
	"github-repo-harvester/internal/index"
)

// Indexer keeps documents as JSONB rows in Postgres.
type Indexer struct {
	q      database.Querier
	logger *slog.Logger
}

// NewIndexer creates a Postgres backed Indexer.
func NewIndexer(q database.Querier, logger *slog.Logger) *Indexer {
	return &Indexer{q: q, logger: logger}
}

func (ix *Indexer) CreateIndex(ctx context.Context, name string, schema json.RawMessage) error {
	n, err := ix.q.CreateIndex(ctx, database.CreateIndexParams{Name: name, Schema: schema})
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", index.ErrIndexExists, name)
	}
	ix.logger.Info("Index created", "index", name)
	return nil
}

func (ix *Indexer) DeleteIndex(ctx context.Context, name string) error {
	n, err := ix.q.DeleteIndex(ctx, name)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", index.ErrIndexNotFound, name)
	}
	ix.logger.Info("Index deleted", "index", name)
	return nil
}

func (ix *Indexer) Upsert(ctx context.Context, indexName, id string, doc any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document %s: %w", id, err)
	}
	if err := ix.q.UpsertDocument(ctx, database.UpsertDocumentParams{IndexName: indexName, DocID: id, Body: body}); err != nil {
		return err
	}
	ix.logger.Debug("Document indexed", "index", indexName, "id", id)
	return nil
}

// Count returns the number of documents stored under name.
func (ix *Indexer) Count(ctx context.Context, name string) (int64, error) {
	return ix.q.CountDocuments(ctx, name)
}
