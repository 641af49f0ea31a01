// internal/database/querier.go
package database

import (
	"context"
)

type Querier interface {
	CountDocuments(ctx context.Context, indexName string) (int64, error)
	CreateIndex(ctx context.Context, arg CreateIndexParams) (int64, error)
	DeleteIndex(ctx context.Context, name string) (int64, error)
	GetDocument(ctx context.Context, arg GetDocumentParams) (SearchDocument, error)
	UpsertDocument(ctx context.Context, arg UpsertDocumentParams) error
}

var _ Querier = (*Queries)(nil)
