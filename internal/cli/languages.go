// internal/cli/languages.go
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github-repo-harvester/internal/reindex"
)

var languagesTableCmd = &cobra.Command{
	Use:   "languages-table",
	Short: "Print every language cloc knows as a name,type CSV table",
	Long: `Runs cloc --show-lang and prints a language reference table in which
every language carries DEFAULT_CLASSIFICATION. Edit the result and point
LANGUAGES_CSV at it for reindex.`,
	Args: cobra.NoArgs,
	RunE: runLanguagesTable,
}

func init() {
	rootCmd.AddCommand(languagesTableCmd)
}

func runLanguagesTable(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	// Listing languages never touches the scratch directory.
	scratch := cfg.ScratchDir
	if scratch == "" {
		scratch = os.TempDir()
	}
	an, err := newAnalyzer(cfg, scratch, logger)
	if err != nil {
		return err
	}
	names, err := an.ListLanguages(ctx)
	if err != nil {
		return err
	}
	logger.Info("Languages listed", "count", len(names))
	return reindex.WriteLanguageTable(cmd.OutOrStdout(), names, cfg.DefaultClassification)
}
