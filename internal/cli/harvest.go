// internal/cli/harvest.go
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github-repo-harvester/internal/backup"
	"github-repo-harvester/internal/harvest"
)

var harvestCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Back up every repository the search API lists",
	Long: `Walks the search space one result page at a time across all 52
single-letter partitions. Every repository not yet in the backup is cloned,
measured with cloc and written to the backup together with any newly seen
language and license. Runs until a full sweep finds nothing, --max-pages is
reached, or the process is interrupted.`,
	Args: cobra.NoArgs,
	RunE: runHarvest,
}

func init() {
	flags := harvestCmd.Flags()
	flags.String("scratch-dir", "", "directory for temporary clones, wiped before each analysis (SCRATCH_DIR)")
	flags.Int("max-pages", 0, "stop after this result page, 0 for no limit (MAX_PAGES)")
	flags.Bool("resume", false, "persist the cursor and continue from the last saved one (RESUME)")
	flags.String("cloc-format", "", "cloc output format: json or csv (CLOC_FORMAT)")
	rootCmd.AddCommand(harvestCmd)
}

func runHarvest(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	if err := cfg.ValidateHarvest(); err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	store, err := backup.Open(cfg.BackupDir, logger)
	if err != nil {
		return err
	}
	ghClient, err := newGithubClient(cfg, logger)
	if err != nil {
		return err
	}
	an, err := newAnalyzer(cfg, cfg.ScratchDir, logger)
	if err != nil {
		return err
	}

	h := harvest.NewHarvester(ghClient, an, store, logger, harvest.Options{
		ProgressEvery:         cfg.ProgressEvery,
		MaxPages:              cfg.MaxPages,
		Resume:                cfg.Resume,
		DefaultClassification: cfg.DefaultClassification,
	})
	stats, err := h.Run(ctx)
	cmd.Printf("pages=%d written=%d skipped=%d invalid=%d search_failures=%d\n",
		stats.Pages, stats.Written, stats.Skipped, stats.Invalid, stats.SearchFailures)
	if errors.Is(err, context.Canceled) {
		logger.Info("Shutdown signal received. Exiting.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("harvest failed: %w", err)
	}
	return nil
}
