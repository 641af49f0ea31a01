// internal/database/queries.sql.go
package database

import (
	"context"
)

const countDocuments = `-- name: CountDocuments :one
SELECT count(*) FROM search_documents
WHERE index_name = $1
`

func (q *Queries) CountDocuments(ctx context.Context, indexName string) (int64, error) {
	row := q.db.QueryRow(ctx, countDocuments, indexName)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const createIndex = `-- name: CreateIndex :execrows
INSERT INTO search_indices (name, schema)
VALUES ($1, $2)
ON CONFLICT (name) DO NOTHING
`

type CreateIndexParams struct {
	Name   string `json:"name"`
	Schema []byte `json:"schema"`
}

func (q *Queries) CreateIndex(ctx context.Context, arg CreateIndexParams) (int64, error) {
	result, err := q.db.Exec(ctx, createIndex, arg.Name, arg.Schema)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const deleteIndex = `-- name: DeleteIndex :execrows
WITH docs AS (
    DELETE FROM search_documents WHERE index_name = $1
)
DELETE FROM search_indices
WHERE name = $1
`

func (q *Queries) DeleteIndex(ctx context.Context, name string) (int64, error) {
	result, err := q.db.Exec(ctx, deleteIndex, name)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const getDocument = `-- name: GetDocument :one
SELECT index_name, doc_id, body, updated_at FROM search_documents
WHERE index_name = $1 AND doc_id = $2
`

type GetDocumentParams struct {
	IndexName string `json:"index_name"`
	DocID     string `json:"doc_id"`
}

func (q *Queries) GetDocument(ctx context.Context, arg GetDocumentParams) (SearchDocument, error) {
	row := q.db.QueryRow(ctx, getDocument, arg.IndexName, arg.DocID)
	var i SearchDocument
	err := row.Scan(
		&i.IndexName,
		&i.DocID,
		&i.Body,
		&i.UpdatedAt,
	)
	return i, err
}

const upsertDocument = `-- name: UpsertDocument :exec
INSERT INTO search_documents (index_name, doc_id, body, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (index_name, doc_id) DO UPDATE
SET body = EXCLUDED.body,
    updated_at = EXCLUDED.updated_at
`

type UpsertDocumentParams struct {
	IndexName string `json:"index_name"`
	DocID     string `json:"doc_id"`
	Body      []byte `json:"body"`
}

func (q *Queries) UpsertDocument(ctx context.Context, arg UpsertDocumentParams) error {
	_, err := q.db.Exec(ctx, upsertDocument, arg.IndexName, arg.DocID, arg.Body)
	return err
}
