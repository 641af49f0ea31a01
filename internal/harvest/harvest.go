// internal/harvest/harvest.go
package harvest

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	apperrors "github-repo-harvester/internal/errors"
	"github-repo-harvester/internal/github"
	"github-repo-harvester/internal/model"
)

// Partitions are the one-character search queries that split the repository
// space so each query stays within the search pagination cap.
const Partitions = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

const (
	defaultProgressEvery  = 10
	defaultClassification = "GPL"
)

// Searcher lists one page of repositories for a query.
type Searcher interface {
	SearchRepositories(ctx context.Context, query string, page int) (*github.SearchResult, error)
}

// ContentAnalyzer produces per-language statistics for a clone URL.
type ContentAnalyzer interface {
	Analyze(ctx context.Context, cloneURL string) (map[string]model.LanguageStats, error)
}

// Store is the part of the backup the harvest reads and writes.
type Store interface {
	RepoExists(owner, repo string) (bool, error)
	WriteRepo(rec model.RepositoryRecord) error
	LanguageExists(name string) (bool, error)
	WriteLanguage(rec model.LanguageRecord) error
	LicenseExists(key string) (bool, error)
	WriteLicense(rec model.LicenseRecord) error
	LoadCursor() (model.Cursor, bool, error)
	SaveCursor(c model.Cursor) error
}

// Options tune the harvest loop.
type Options struct {
	// ProgressEvery logs a progress line after this many written repositories.
	ProgressEvery int
	// MaxPages stops the loop after this page. Zero means no limit.
	MaxPages int
	// Resume persists the cursor and starts from the saved one.
	Resume bool
	// DefaultClassification is stored for newly observed languages.
	DefaultClassification string
}

// Stats summarises a harvest run.
type Stats struct {
	Pages          int
	Written        int
	Skipped        int
	Invalid        int
	SearchFailures int
}

// Harvester walks the partitioned search space and backs up every
// repository it has not seen before.
type Harvester struct {
	searcher Searcher
	analyzer ContentAnalyzer
	store    Store
	logger   *slog.Logger
	opts     Options

	// processed counts written repositories for the life of the Harvester.
	processed int
}

// NewHarvester creates a new Harvester instance.
func NewHarvester(searcher Searcher, analyzer ContentAnalyzer, store Store, logger *slog.Logger, opts Options) *Harvester {
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = defaultProgressEvery
	}
	if opts.DefaultClassification == "" {
		opts.DefaultClassification = defaultClassification
	}
	return &Harvester{
		searcher: searcher,
		analyzer: analyzer,
		store:    store,
		logger:   logger,
		opts:     opts,
	}
}

// Run harvests page by page, every partition per page. It returns when a
// full sweep over all partitions finds nothing, when MaxPages is done, or
// when ctx is cancelled. A naming conflict on write or rejected credentials
// abort the run.
func (h *Harvester) Run(ctx context.Context) (Stats, error) {
	var stats Stats
	start := model.Cursor{Partition: 0, Page: 1}
	if h.opts.Resume {
		c, ok, err := h.store.LoadCursor()
		if err != nil {
			return stats, err
		}
		if ok && c.Page > 0 && c.Partition >= 0 && c.Partition < len(Partitions) {
			start = c
			h.logger.Info("Resuming harvest", "page", c.Page, "partition", string(Partitions[c.Partition]))
		}
	}
	h.logger.Info("Starting harvest", "partitions", len(Partitions), "max_pages", h.opts.MaxPages)

	for page := start.Page; h.opts.MaxPages == 0 || page <= h.opts.MaxPages; page++ {
		first := 0
		if page == start.Page {
			first = start.Partition
		}
		found := 0
		for i := first; i < len(Partitions); i++ {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
			if h.opts.Resume {
				if err := h.store.SaveCursor(model.Cursor{Partition: i, Page: page}); err != nil {
					return stats, err
				}
			}
			n, err := h.harvestPartition(ctx, string(Partitions[i]), page, &stats)
			if err != nil {
				return stats, err
			}
			found += n
		}
		stats.Pages++
		if found == 0 && first == 0 {
			h.logger.Info("Search space exhausted", "page", page)
			break
		}
	}
	h.logger.Info("Harvest finished",
		"pages", stats.Pages, "written", stats.Written, "skipped", stats.Skipped,
		"invalid", stats.Invalid, "search_failures", stats.SearchFailures)
	return stats, nil
}

// harvestPartition processes one result page of one partition and returns
// the number of items it listed. A failed search is logged and counts as
// an empty page, except for rejected credentials which end the run.
func (h *Harvester) harvestPartition(ctx context.Context, query string, page int, stats *Stats) (int, error) {
	logger := h.logger.With("page", page, "partition", query)
	logger.Info("Analyzing partition")

	result, err := h.searcher.SearchRepositories(ctx, query, page)
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		if errors.Is(err, github.ErrUnauthorized) {
			return 0, err
		}
		logger.Error("Search failed, moving to next partition", "error", err)
		stats.SearchFailures++
		return 0, nil
	}

	for _, item := range result.Items {
		if err := h.harvestRepo(ctx, item, stats); err != nil {
			return 0, err
		}
	}
	return len(result.Items), nil
}

// harvestRepo backs up a single repository unless it is already present.
func (h *Harvester) harvestRepo(ctx context.Context, item *github.Repository, stats *Stats) error {
	owner, name := item.GetOwner().GetLogin(), item.GetName()
	logger := h.logger.With("owner", owner, "repo", name)

	exists, err := h.store.RepoExists(owner, name)
	if err != nil {
		return h.skipInvalid(logger, err, stats)
	}
	if exists {
		stats.Skipped++
		return nil
	}

	languages, err := h.analyzer.Analyze(ctx, item.GetCloneURL())
	if err != nil {
		return err
	}
	if err := h.registerLanguages(languages); err != nil {
		return h.skipInvalid(logger, err, stats)
	}
	if item.License != nil && item.License.GetKey() != "" {
		if err := h.registerLicense(github.ToLicenseRecord(item.License)); err != nil {
			return h.skipInvalid(logger, err, stats)
		}
	}

	if err := h.store.WriteRepo(github.ToRepositoryRecord(item, languages)); err != nil {
		return h.skipInvalid(logger, err, stats)
	}
	stats.Written++
	h.processed++
	if h.processed%h.opts.ProgressEvery == 0 {
		h.logger.Info("Analyzed repositories", "count", h.processed)
	}
	return nil
}

func (h *Harvester) registerLanguages(languages map[string]model.LanguageStats) error {
	names := make([]string, 0, len(languages))
	for name := range languages {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ok, err := h.store.LanguageExists(name)
		if err != nil {
			return err
		}
		if ok {
			continue
		}
		if err := h.store.WriteLanguage(model.LanguageRecord{Name: name, Classification: h.opts.DefaultClassification}); err != nil {
			return err
		}
		h.logger.Debug("New language registered", "language", name)
	}
	return nil
}

func (h *Harvester) registerLicense(rec model.LicenseRecord) error {
	ok, err := h.store.LicenseExists(rec.Key)
	if err != nil || ok {
		return err
	}
	if err := h.store.WriteLicense(rec); err != nil {
		return err
	}
	h.logger.Debug("New license registered", "license", rec.Key)
	return nil
}

// skipInvalid logs and swallows records that fail validation. Any other
// error, including a naming conflict, is returned.
func (h *Harvester) skipInvalid(logger *slog.Logger, err error, stats *Stats) error {
	var invalid *apperrors.ErrInvalidRecord
	if errors.As(err, &invalid) {
		logger.Warn("Skipping invalid repository", "error", err)
		stats.Invalid++
		return nil
	}
	return err
}
