// internal/cli/backup.go
package cli

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github-repo-harvester/internal/backup"
	"github-repo-harvester/internal/index"
	"github-repo-harvester/internal/model"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Inspect, pack and restore the local backup",
}

var backupPackCmd = &cobra.Command{
	Use:   "pack [archive.csv]",
	Short: "Write every repository record as a dir,file,json CSV archive",
	Long:  "Writes the archive to the given file, or to stdout when none is given.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runBackupPack,
}

var backupUnpackCmd = &cobra.Command{
	Use:   "unpack [archive.csv]",
	Short: "Restore repository records from a CSV archive, keeping existing files",
	Long:  "Reads the archive from the given file, or from stdin when none is given.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runBackupUnpack,
}

var backupViewCmd = &cobra.Command{
	Use:   "view",
	Short: "Print backed-up repositories, languages or licenses as CSV",
	Args:  cobra.NoArgs,
	RunE:  runBackupView,
}

func init() {
	backupViewCmd.Flags().String("type", index.Repos, "record type: repos, langs or licenses")
	backupCmd.AddCommand(backupPackCmd, backupUnpackCmd, backupViewCmd)
	rootCmd.AddCommand(backupCmd)
}

func openBackup(cmd *cobra.Command) (*backup.Store, context.Context, context.CancelFunc, error) {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := cfg.ValidateBackup(); err != nil {
		return nil, nil, nil, err
	}
	store, err := backup.Open(cfg.BackupDir, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	ctx, cancel := signalContext(cmd)
	return store, ctx, cancel, nil
}

func runBackupPack(cmd *cobra.Command, args []string) error {
	store, ctx, cancel, err := openBackup(cmd)
	if err != nil {
		return err
	}
	defer cancel()

	var w io.Writer = cmd.OutOrStdout()
	if len(args) == 1 {
		f, err := os.Create(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	n, err := store.Pack(ctx, w)
	if err != nil {
		return fmt.Errorf("pack failed: %w", err)
	}
	cmd.PrintErrf("packed %d repositories\n", n)
	return nil
}

func runBackupUnpack(cmd *cobra.Command, args []string) error {
	store, ctx, cancel, err := openBackup(cmd)
	if err != nil {
		return err
	}
	defer cancel()

	var r io.Reader = cmd.InOrStdin()
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	res, err := store.Unpack(ctx, r)
	if err != nil {
		return fmt.Errorf("unpack failed: %w", err)
	}
	cmd.Printf("written=%d skipped=%d invalid=%d\n", res.Written, res.Skipped, res.Invalid)
	return nil
}

func runBackupView(cmd *cobra.Command, _ []string) error {
	kind, _ := cmd.Flags().GetString("type")
	store, ctx, cancel, err := openBackup(cmd)
	if err != nil {
		return err
	}
	defer cancel()

	w := csv.NewWriter(cmd.OutOrStdout())
	switch kind {
	case index.Repos:
		err = viewRepos(ctx, store, w)
	case index.Languages:
		err = viewLanguages(ctx, store, w)
	case index.Licenses:
		err = viewLicenses(ctx, store, w)
	default:
		return fmt.Errorf("unknown record type %q, want repos, langs or licenses", kind)
	}
	if err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func viewRepos(ctx context.Context, store *backup.Store, w *csv.Writer) error {
	if err := w.Write([]string{"full_name", "stargazers", "forks", "size", "updated_at", "license_key", "languages"}); err != nil {
		return err
	}
	return store.EachRepo(ctx, func(rec model.RepositoryRecord) error {
		langs := make([]string, 0, len(rec.Languages))
		for name := range rec.Languages {
			langs = append(langs, name)
		}
		sort.Strings(langs)
		return w.Write([]string{
			rec.FullName,
			strconv.Itoa(rec.Stargazers),
			strconv.Itoa(rec.Forks),
			strconv.FormatInt(rec.Size, 10),
			rec.UpdatedAt.String(),
			rec.LicenseKey,
			strings.Join(langs, ";"),
		})
	})
}

func viewLanguages(ctx context.Context, store *backup.Store, w *csv.Writer) error {
	langs, err := store.ListLanguages(ctx)
	if err != nil {
		return err
	}
	if err := w.Write([]string{"name", "type"}); err != nil {
		return err
	}
	for _, l := range langs {
		if err := w.Write([]string{l.Name, l.Classification}); err != nil {
			return err
		}
	}
	return nil
}

func viewLicenses(ctx context.Context, store *backup.Store, w *csv.Writer) error {
	licenses, err := store.ListLicenses(ctx)
	if err != nil {
		return err
	}
	if err := w.Write([]string{"key", "name", "spdx_id", "url", "node_id"}); err != nil {
		return err
	}
	for _, l := range licenses {
		if err := w.Write([]string{l.Key, l.Name, l.SPDXID, l.URL, l.NodeID}); err != nil {
			return err
		}
	}
	return nil
}
