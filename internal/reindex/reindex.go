// internal/reindex/reindex.go
package reindex

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github-repo-harvester/internal/index"
	"github-repo-harvester/internal/model"
)

const (
	defaultWorkers        = 4
	defaultClassification = "GPL"
)

// Store is the read side of the backup.
type Store interface {
	EachRepo(ctx context.Context, fn func(model.RepositoryRecord) error) error
	ListLanguages(ctx context.Context) ([]model.LanguageRecord, error)
	ListLicenses(ctx context.Context) ([]model.LicenseRecord, error)
}

// Options tune a Reindexer.
type Options struct {
	// Workers bounds the number of concurrent uploads.
	Workers               int
	DefaultClassification string
}

// Result summarises one upload pass.
type Result struct {
	Indexed int
	Skipped int
	Failed  int
}

// Reindexer republishes the backup into a document index.
type Reindexer struct {
	store  Store
	ix     index.Indexer
	table  LanguageTable
	logger *slog.Logger
	opts   Options
}

// NewReindexer creates a new Reindexer. A nil table classifies every
// language with the default classification.
func NewReindexer(store Store, ix index.Indexer, table LanguageTable, logger *slog.Logger, opts Options) *Reindexer {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.DefaultClassification == "" {
		opts.DefaultClassification = defaultClassification
	}
	if table == nil {
		table = LanguageTable{}
	}
	return &Reindexer{store: store, ix: ix, table: table, logger: logger, opts: opts}
}

// Repos upserts every repository record keyed by its full name. Records whose
// updated_at is not a string are skipped until repaired.
func (r *Reindexer) Repos(ctx context.Context) (Result, error) {
	r.logger.Info("Reindexing repositories", "workers", r.opts.Workers)
	var indexed, skipped, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)

	err := r.store.EachRepo(gctx, func(rec model.RepositoryRecord) error {
		if !rec.UpdatedAt.IsString() {
			r.logger.Warn("Ignoring document due to time fields", "repository", rec.ID().String(), "updated_at", rec.UpdatedAt.Raw())
			skipped.Add(1)
			return nil
		}
		doc := NewRepositoryDocument(rec, r.table, r.opts.DefaultClassification)
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			if err := r.ix.Upsert(gctx, index.Repos, doc.FullName, doc); err != nil {
				if !errors.Is(err, context.Canceled) {
					r.logger.Error("Failed to index repository", "repository", doc.FullName, "error", err)
				}
				failed.Add(1)
				return nil
			}
			indexed.Add(1)
			return nil
		})
		return nil
	})
	waitErr := g.Wait()

	res := Result{Indexed: int(indexed.Load()), Skipped: int(skipped.Load()), Failed: int(failed.Load())}
	if err == nil {
		err = waitErr
	}
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return res, err
	}
	r.logger.Info("Repositories reindexed", "indexed", res.Indexed, "skipped", res.Skipped, "failed", res.Failed)
	return res, nil
}

// Languages upserts the reference table plus every backed-up language the
// table does not list, keyed by name.
func (r *Reindexer) Languages(ctx context.Context) (Result, error) {
	docs := make([]model.LanguageRecord, 0, len(r.table))
	for _, name := range r.table.Names() {
		docs = append(docs, model.LanguageRecord{Name: name, Classification: r.table[name]})
	}
	backed, err := r.store.ListLanguages(ctx)
	if err != nil {
		return Result{}, err
	}
	for _, lang := range backed {
		if _, ok := r.table[lang.Name]; ok {
			continue
		}
		docs = append(docs, lang)
	}

	var res Result
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := r.ix.Upsert(ctx, index.Languages, doc.Name, doc); err != nil {
			r.logger.Error("Failed to index language", "language", doc.Name, "error", err)
			res.Failed++
			continue
		}
		res.Indexed++
	}
	r.logger.Info("Languages reindexed", "indexed", res.Indexed, "failed", res.Failed)
	return res, nil
}

// Licenses upserts every backed-up license keyed by its key.
func (r *Reindexer) Licenses(ctx context.Context) (Result, error) {
	licenses, err := r.store.ListLicenses(ctx)
	if err != nil {
		return Result{}, err
	}
	var res Result
	for _, lic := range licenses {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := r.ix.Upsert(ctx, index.Licenses, lic.Key, lic); err != nil {
			r.logger.Error("Failed to index license", "license", lic.Key, "error", err)
			res.Failed++
			continue
		}
		res.Indexed++
	}
	r.logger.Info("Licenses reindexed", "indexed", res.Indexed, "failed", res.Failed)
	return res, nil
}
