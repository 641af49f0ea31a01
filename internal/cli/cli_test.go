// internal/cli/cli_test.go
package cli

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github-repo-harvester/internal/backup"
	"github-repo-harvester/internal/model"
)

// execute runs the root command with args and returns what it printed.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

func seedBackup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	store, err := backup.Open(dir, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	require.NoError(t, store.WriteRepo(model.RepositoryRecord{
		Owner:      "golang",
		Repo:       "go",
		FullName:   "golang/go",
		Size:       300000,
		Forks:      17000,
		Stargazers: 120000,
		UpdatedAt:  model.TimestampFromString("2024-05-01T10:05:00Z"),
		LicenseKey: "bsd-3-clause",
		Languages: map[string]model.LanguageStats{
			"Go":       {Files: 3, Code: 50},
			"Assembly": {Files: 1, Code: 7},
		},
	}))
	require.NoError(t, store.WriteLanguage(model.LanguageRecord{Name: "Go", Classification: "GPL"}))
	require.NoError(t, store.WriteLicense(model.LicenseRecord{Key: "bsd-3-clause", Name: "BSD 3-Clause", SPDXID: "BSD-3-Clause"}))
	return dir
}

func TestVersionCmd_Executes(t *testing.T) {
	originalVersion := version
	version = "test-version-1.0.0"
	defer func() { version = originalVersion }()

	out, err := execute(t, "version")

	assert.NoError(t, err)
	assert.Contains(t, out, "harvester version test-version-1.0.0")
}

func TestBackupView(t *testing.T) {
	t.Setenv("BACKUP_DIR", seedBackup(t))

	t.Run("repos", func(t *testing.T) {
		out, err := execute(t, "backup", "view", "--type", "repos")
		require.NoError(t, err)
		assert.Equal(t,
			"full_name,stargazers,forks,size,updated_at,license_key,languages\n"+
				"golang/go,120000,17000,300000,2024-05-01T10:05:00Z,bsd-3-clause,Assembly;Go\n",
			out)
	})

	t.Run("langs", func(t *testing.T) {
		out, err := execute(t, "backup", "view", "--type", "langs")
		require.NoError(t, err)
		assert.Equal(t, "name,type\nGo,GPL\n", out)
	})

	t.Run("licenses", func(t *testing.T) {
		out, err := execute(t, "backup", "view", "--type", "licenses")
		require.NoError(t, err)
		assert.Equal(t, "key,name,spdx_id,url,node_id\nbsd-3-clause,BSD 3-Clause,BSD-3-Clause,,\n", out)
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := execute(t, "backup", "view", "--type", "owners")
		assert.Error(t, err)
	})
}

func TestBackupPackUnpack(t *testing.T) {
	src := seedBackup(t)
	archive := filepath.Join(t.TempDir(), "repos.csv")

	t.Setenv("BACKUP_DIR", src)
	_, err := execute(t, "backup", "pack", archive)
	require.NoError(t, err)

	dst := t.TempDir()
	t.Setenv("BACKUP_DIR", dst)
	out, err := execute(t, "backup", "unpack", archive)
	require.NoError(t, err)
	assert.Contains(t, out, "written=1 skipped=0 invalid=0")

	want, err := os.ReadFile(filepath.Join(src, "repos", "golang", "go.json"))
	require.NoError(t, err)
	got, err := os.ReadFile(filepath.Join(dst, "repos", "golang", "go.json"))
	require.NoError(t, err)
	assert.Equal(t, want, got)

	out, err = execute(t, "backup", "unpack", archive)
	require.NoError(t, err)
	assert.Contains(t, out, "written=0 skipped=1 invalid=0")
}

func TestPartitionsCmd(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/repositories" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"total_count": %d, "incomplete_results": false, "items": []}`, len(r.URL.Query().Get("q"))*7)
	}))
	defer server.Close()
	t.Setenv("GITHUB_TOKEN", "test-token")
	t.Setenv("GITHUB_API_URL", server.URL)

	out, err := execute(t, "partitions")

	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 53)
	assert.Equal(t, "query,number", lines[0])
	assert.Equal(t, "a,7", lines[1])
	assert.Equal(t, "Z,7", lines[52])
}

func TestCommands_ConfigurationErrors(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("BACKUP_DIR", t.TempDir())

	t.Run("harvest requires a token", func(t *testing.T) {
		_, err := execute(t, "harvest")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "GITHUB_TOKEN")
	})

	t.Run("repair requires a token", func(t *testing.T) {
		_, err := execute(t, "repair")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "GITHUB_TOKEN")
	})

	t.Run("reindex rejects an unknown backend", func(t *testing.T) {
		t.Setenv("INDEX_BACKEND", "solr")
		_, err := execute(t, "reindex", "repos")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "INDEX_BACKEND")
	})

	t.Run("index create rejects unknown index names", func(t *testing.T) {
		_, err := execute(t, "index", "create", "owners")
		assert.Error(t, err)
	})
}
