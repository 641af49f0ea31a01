// internal/index/index.go
package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Index names.
const (
	Repos     = "repos"
	Languages = "langs"
	Licenses  = "licenses"
)

var (
	// ErrUnknownIndex is returned for index names without a schema.
	ErrUnknownIndex  = errors.New("index: unknown index")
	ErrIndexExists   = errors.New("index: already exists")
	ErrIndexNotFound = errors.New("index: not found")
)

// Indexer is a document store that can be (re)built from the backup.
type Indexer interface {
	CreateIndex(ctx context.Context, name string, schema json.RawMessage) error
	DeleteIndex(ctx context.Context, name string) error
	// Upsert stores doc under id, replacing any previous version.
	Upsert(ctx context.Context, index, id string, doc any) error
}

// Counter is implemented by backends that can report how many documents an
// index holds.
type Counter interface {
	Count(ctx context.Context, name string) (int64, error)
}

// Names lists every index in creation order.
func Names() []string {
	return []string{Repos, Languages, Licenses}
}

// Schema returns the settings and mappings of a named index.
func Schema(name string) (json.RawMessage, error) {
	switch name {
	case Repos:
		return json.RawMessage(reposSchema), nil
	case Languages:
		return json.RawMessage(languagesSchema), nil
	case Licenses:
		return json.RawMessage(licensesSchema), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownIndex, name)
}

// Create creates the named indices with their schemas.
func Create(ctx context.Context, ix Indexer, names ...string) error {
	for _, name := range names {
		schema, err := Schema(name)
		if err != nil {
			return err
		}
		if err := ix.CreateIndex(ctx, name, schema); err != nil {
			return fmt.Errorf("create index %s: %w", name, err)
		}
	}
	return nil
}

// Delete drops the named indices.
func Delete(ctx context.Context, ix Indexer, names ...string) error {
	for _, name := range names {
		if _, err := Schema(name); err != nil {
			return err
		}
		if err := ix.DeleteIndex(ctx, name); err != nil {
			return fmt.Errorf("delete index %s: %w", name, err)
		}
	}
	return nil
}

const reposSchema = `{
  "settings": {"index": {"number_of_shards": 4}},
  "mappings": {
    "properties": {
      "owner": {"type": "keyword"},
      "repo": {"type": "keyword"},
      "full_name": {"type": "keyword"},
      "url": {"type": "keyword"},
      "clone_url": {"type": "keyword"},
      "size": {"type": "long"},
      "forks": {"type": "integer"},
      "stargazers": {"type": "integer"},
      "watchers": {"type": "integer"},
      "pushed_at": {"type": "date", "format": "date_optional_time"},
      "created_at": {"type": "date", "format": "date_optional_time"},
      "updated_at": {"type": "date", "format": "date_optional_time"},
      "license_key": {"type": "keyword"},
      "language": {"type": "keyword"},
      "languages": {
        "properties": {
          "language": {
            "properties": {
              "name": {"type": "keyword"},
              "type": {"type": "keyword"}
            }
          },
          "files": {"type": "integer"},
          "blank": {"type": "long"},
          "comment": {"type": "long"},
          "code": {"type": "long"}
        }
      }
    }
  }
}`

const languagesSchema = `{
  "settings": {"index": {"number_of_shards": 4}},
  "mappings": {
    "properties": {
      "name": {"type": "text"},
      "type": {"type": "text"}
    }
  }
}`

const licensesSchema = `{
  "settings": {"index": {"number_of_shards": 4}},
  "mappings": {
    "properties": {
      "key": {"type": "keyword"},
      "name": {"type": "keyword"},
      "url": {"type": "keyword"},
      "spdx_id": {"type": "keyword"},
      "node_id": {"type": "keyword"}
    }
  }
}`
