// internal/cli/repair.go
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github-repo-harvester/internal/backup"
	"github-repo-harvester/internal/repair"
)

var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Re-fetch timestamps of records whose updated_at is not a date string",
	Args:  cobra.NoArgs,
	RunE:  runRepair,
}

func init() {
	rootCmd.AddCommand(repairCmd)
}

func runRepair(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	if err := cfg.ValidateRepair(); err != nil {
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

	report, err := repair.NewRepairer(ghClient, store, logger).Run(ctx)
	if errors.Is(err, context.Canceled) {
		logger.Info("Shutdown signal received. Exiting.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("repair failed: %w", err)
	}

	cmd.Printf("checked=%d repaired=%d already_valid=%d failed=%d unresolved=%d\n",
		report.Checked, report.Repaired, report.AlreadyValid, report.Failed, len(report.Unresolved))
	for _, id := range report.Unresolved {
		cmd.Printf("unresolved %s\n", id)
	}
	return nil
}
