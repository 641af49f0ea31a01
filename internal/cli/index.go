// internal/cli/index.go
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github-repo-harvester/internal/index"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the document indices",
}

var indexCreateCmd = &cobra.Command{
	Use:       "create [repos|langs|licenses ...]",
	Short:     "Create indices with their schemas (all when none given)",
	ValidArgs: index.Names(),
	Args:      cobra.OnlyValidArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIndexAdmin(cmd, args, "created", index.Create)
	},
}

var indexDeleteCmd = &cobra.Command{
	Use:       "delete [repos|langs|licenses ...]",
	Short:     "Delete indices (all when none given)",
	ValidArgs: index.Names(),
	Args:      cobra.OnlyValidArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIndexAdmin(cmd, args, "deleted", index.Delete)
	},
}

func init() {
	indexCmd.PersistentFlags().String("index-backend", "", "document index: opensearch or postgres (INDEX_BACKEND)")
	indexCmd.AddCommand(indexCreateCmd, indexDeleteCmd)
	rootCmd.AddCommand(indexCmd)
}

type indexAdminFunc func(ctx context.Context, ix index.Indexer, names ...string) error

func runIndexAdmin(cmd *cobra.Command, names []string, verb string, apply indexAdminFunc) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	ix, closeIndex, err := openIndexer(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeIndex()

	if len(names) == 0 {
		names = index.Names()
	}
	for _, name := range names {
		if err := apply(ctx, ix, name); err != nil {
			return err
		}
		cmd.Printf("%s %s\n", verb, name)
	}
	return nil
}
