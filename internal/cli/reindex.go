// internal/cli/reindex.go
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github-repo-harvester/internal/backup"
	"github-repo-harvester/internal/index"
	"github-repo-harvester/internal/reindex"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Republish the backup into the document index",
	Long: `Uploads backed-up records into the document index configured by
INDEX_BACKEND. Use --delete and --create to rebuild an index from scratch
before uploading.`,
}

func init() {
	flags := reindexCmd.PersistentFlags()
	flags.Bool("delete", false, "delete the index before uploading")
	flags.Bool("create", false, "create the index before uploading")
	flags.String("index-backend", "", "document index: opensearch or postgres (INDEX_BACKEND)")
	flags.String("languages-csv", "", "language reference table with name,type columns (LANGUAGES_CSV)")
	flags.Int("reindex-workers", 0, "concurrent repository uploads (REINDEX_WORKERS)")

	reindexCmd.AddCommand(
		newReindexSubcommand(index.Repos, "Upload repository records with reshaped languages",
			(*reindex.Reindexer).Repos),
		newReindexSubcommand(index.Languages, "Upload the language reference table and backed-up languages",
			(*reindex.Reindexer).Languages),
		newReindexSubcommand(index.Licenses, "Upload backed-up licenses",
			(*reindex.Reindexer).Licenses),
	)
	rootCmd.AddCommand(reindexCmd)
}

type uploadFunc func(*reindex.Reindexer, context.Context) (reindex.Result, error)

func newReindexSubcommand(name, short string, upload uploadFunc) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReindex(cmd, name, upload)
		},
	}
}

func runReindex(cmd *cobra.Command, name string, upload uploadFunc) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	if err := cfg.ValidateBackup(); err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	store, err := backup.Open(cfg.BackupDir, logger)
	if err != nil {
		return err
	}
	var table reindex.LanguageTable
	if cfg.LanguagesCSV != "" {
		if table, err = reindex.LoadLanguageTable(cfg.LanguagesCSV); err != nil {
			return err
		}
	}

	ix, closeIndex, err := openIndexer(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeIndex()

	drop, _ := cmd.Flags().GetBool("delete")
	create, _ := cmd.Flags().GetBool("create")
	if err := prepareIndex(ctx, ix, name, drop, create, logger); err != nil {
		return err
	}

	r := reindex.NewReindexer(store, ix, table, logger, reindex.Options{
		Workers:               cfg.ReindexWorkers,
		DefaultClassification: cfg.DefaultClassification,
	})
	res, err := upload(r, ctx)
	if err != nil {
		return fmt.Errorf("reindex %s failed: %w", name, err)
	}
	cmd.Printf("index=%s indexed=%d skipped=%d failed=%d\n", name, res.Indexed, res.Skipped, res.Failed)
	if counter, ok := ix.(index.Counter); ok {
		total, err := counter.Count(ctx, name)
		if err != nil {
			logger.Warn("Could not count index documents", "index", name, "error", err)
			return nil
		}
		cmd.Printf("index=%s documents=%d\n", name, total)
	}
	return nil
}

// prepareIndex optionally drops and recreates an index. Dropping a missing
// index and creating an existing one are logged, not fatal.
func prepareIndex(ctx context.Context, ix index.Indexer, name string, drop, create bool, logger *slog.Logger) error {
	if drop {
		err := index.Delete(ctx, ix, name)
		switch {
		case errors.Is(err, index.ErrIndexNotFound):
			logger.Warn("Index does not exist, nothing to delete", "index", name)
		case err != nil:
			return err
		default:
			logger.Info("Index deleted", "index", name)
		}
	}
	if create {
		err := index.Create(ctx, ix, name)
		switch {
		case errors.Is(err, index.ErrIndexExists):
			logger.Warn("Index already exists", "index", name)
		case err != nil:
			return err
		default:
			logger.Info("Index created", "index", name)
		}
	}
	return nil
}
