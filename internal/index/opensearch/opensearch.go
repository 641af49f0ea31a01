// internal/index/opensearch/opensearch.go
package opensearch

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	osgo "github.com/opensearch-project/opensearch-go/v4"
	"github.com/opensearch-project/opensearch-go/v4/opensearchapi"

	"github-repo-harvester/internal/index"
)

// Options configure the connection to an OpenSearch cluster.
type Options struct {
	Addresses []string
	Username  string
	Password  string
	// Insecure skips TLS certificate verification (self-signed clusters).
	Insecure bool
}

// Indexer writes documents to OpenSearch.
type Indexer struct {
	client *opensearchapi.Client
	logger *slog.Logger
}

// NewIndexer creates an OpenSearch backed Indexer.
func NewIndexer(opts Options, logger *slog.Logger) (*Indexer, error) {
	if len(opts.Addresses) == 0 {
		return nil, errors.New("opensearch: at least one address is required")
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.Insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}
	client, err := opensearchapi.NewClient(opensearchapi.Config{
		Client: osgo.Config{
			Addresses: opts.Addresses,
			Username:  opts.Username,
			Password:  opts.Password,
			Transport: transport,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create opensearch client: %w", err)
	}
	return &Indexer{client: client, logger: logger}, nil
}

func (ix *Indexer) CreateIndex(ctx context.Context, name string, schema json.RawMessage) error {
	resp, err := ix.client.Indices.Create(ctx, opensearchapi.IndicesCreateReq{
		Index: name,
		Body:  bytes.NewReader(schema),
	})
	if err != nil {
		if errorType(err) == "resource_already_exists_exception" {
			return fmt.Errorf("%w: %s", index.ErrIndexExists, name)
		}
		return err
	}
	ix.logger.Info("Index created", "index", resp.Index, "acknowledged", resp.Acknowledged)
	return nil
}

func (ix *Indexer) DeleteIndex(ctx context.Context, name string) error {
	resp, err := ix.client.Indices.Delete(ctx, opensearchapi.IndicesDeleteReq{
		Indices: []string{name},
	})
	if err != nil {
		if errorType(err) == "index_not_found_exception" {
			return fmt.Errorf("%w: %s", index.ErrIndexNotFound, name)
		}
		return err
	}
	ix.logger.Info("Index deleted", "index", name, "acknowledged", resp.Acknowledged)
	return nil
}

// Upsert indexes doc under id. Ids such as "owner/repo" are path-escaped.
func (ix *Indexer) Upsert(ctx context.Context, indexName, id string, doc any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document %s: %w", id, err)
	}
	resp, err := ix.client.Index(ctx, opensearchapi.IndexReq{
		Index:      indexName,
		DocumentID: url.PathEscape(id),
		Body:       bytes.NewReader(body),
	})
	if err != nil {
		return err
	}
	ix.logger.Debug("Document indexed", "index", indexName, "id", id, "result", resp.Result)
	return nil
}

// errorType returns the error type reported by the cluster, if any.
func errorType(err error) string {
	var structErr *osgo.StructError
	if errors.As(err, &structErr) {
		return structErr.Err.Type
	}
	return ""
}
