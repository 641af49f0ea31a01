// internal/cli/partitions.go
package cli

import (
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github-repo-harvester/internal/harvest"
)

var partitionsCmd = &cobra.Command{
	Use:   "partitions",
	Short: "Print the total search result count of every partition as CSV",
	Args:  cobra.NoArgs,
	RunE:  runPartitions,
}

func init() {
	rootCmd.AddCommand(partitionsCmd)
}

func runPartitions(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	if err := cfg.ValidateGithub(); err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	ghClient, err := newGithubClient(cfg, logger)
	if err != nil {
		return err
	}

	w := csv.NewWriter(cmd.OutOrStdout())
	if err := w.Write([]string{"query", "number"}); err != nil {
		return err
	}
	for _, p := range harvest.Partitions {
		query := string(p)
		total, err := ghClient.CountRepositories(ctx, query)
		if err != nil {
			return fmt.Errorf("count partition %s: %w", query, err)
		}
		logger.Debug("Partition counted", "partition", query, "total", total)
		if err := w.Write([]string{query, strconv.Itoa(total)}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
