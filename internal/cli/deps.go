// internal/cli/deps.go
package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github-repo-harvester/internal/analyzer"
	"github-repo-harvester/internal/config"
	"github-repo-harvester/internal/database"
	"github-repo-harvester/internal/github"
	"github-repo-harvester/internal/index"
	"github-repo-harvester/internal/index/opensearch"
	"github-repo-harvester/internal/index/postgres"
)

func newGithubClient(cfg *config.Config, logger *slog.Logger) (*github.Client, error) {
	return github.NewClient(cfg.GithubToken, github.Options{
		BaseURL:           cfg.GithubAPIURL,
		RequestsPerSecond: cfg.RequestsPerSecond,
		RateLimitMargin:   cfg.RateLimitMargin,
		MaxRetries:        cfg.MaxRetries,
		RetryBackoff:      cfg.RetryBackoff,
		PerPage:           cfg.PerPage,
		Sort:              cfg.SearchSort,
	}, logger)
}

func newAnalyzer(cfg *config.Config, scratchDir string, logger *slog.Logger) (*analyzer.Analyzer, error) {
	return analyzer.New(analyzer.Options{
		GitPath:        cfg.GitPath,
		ClocPath:       cfg.ClocPath,
		ScratchDir:     scratchDir,
		ClocTimeout:    cfg.ClocTimeout,
		ProcessTimeout: cfg.ClocProcessTimeout,
		Format:         cfg.ClocFormat,
	}, nil, logger)
}

// openIndexer connects to the configured document index. The returned
// function releases its resources.
func openIndexer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (index.Indexer, func(), error) {
	if err := cfg.ValidateIndex(); err != nil {
		return nil, nil, err
	}

	switch cfg.IndexBackend {
	case config.BackendPostgres:
		if err := database.Migrate(cfg.DBURL); err != nil {
			return nil, nil, fmt.Errorf("failed to run database migrations: %w", err)
		}
		logger.Info("Database migrations applied successfully")

		dbpool, err := pgxpool.New(ctx, cfg.DBURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		logger.Info("Database connection established")
		return postgres.NewIndexer(database.New(dbpool), logger), dbpool.Close, nil

	default:
		ix, err := opensearch.NewIndexer(opensearch.Options{
			Addresses: cfg.OpenSearchURL,
			Username:  cfg.OpenSearchUser,
			Password:  cfg.OpenSearchPassword,
			Insecure:  cfg.OpenSearchInsecure,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return ix, func() {}, nil
	}
}
