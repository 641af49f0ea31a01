// internal/database/models.go
package database

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type SearchIndex struct {
	Name      string             `json:"name"`
	Schema    []byte             `json:"schema"`
	CreatedAt pgtype.Timestamptz `json:"created_at"`
}

type SearchDocument struct {
	IndexName string             `json:"index_name"`
	DocID     string             `json:"doc_id"`
	Body      []byte             `json:"body"`
	UpdatedAt pgtype.Timestamptz `json:"updated_at"`
}
