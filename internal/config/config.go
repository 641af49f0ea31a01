// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	LogLevel string `mapstructure:"LOG_LEVEL"`

	GithubToken       string        `mapstructure:"GITHUB_TOKEN"`
	GithubAPIURL      string        `mapstructure:"GITHUB_API_URL"`
	PerPage           int           `mapstructure:"PER_PAGE"`
	SearchSort        string        `mapstructure:"SEARCH_SORT"`
	RateLimitMargin   time.Duration `mapstructure:"RATE_LIMIT_MARGIN"`
	MaxRetries        int           `mapstructure:"MAX_RETRIES"`
	RetryBackoff      time.Duration `mapstructure:"RETRY_BACKOFF"`
	RequestsPerSecond float64       `mapstructure:"REQUESTS_PER_SECOND"`

	BackupDir string `mapstructure:"BACKUP_DIR"`

	ScratchDir         string        `mapstructure:"SCRATCH_DIR"`
	GitPath            string        `mapstructure:"GIT_PATH"`
	ClocPath           string        `mapstructure:"CLOC_PATH"`
	ClocTimeout        time.Duration `mapstructure:"CLOC_TIMEOUT"`
	ClocProcessTimeout time.Duration `mapstructure:"CLOC_PROCESS_TIMEOUT"`
	ClocFormat         string        `mapstructure:"CLOC_FORMAT"`

	ProgressEvery         int    `mapstructure:"PROGRESS_EVERY"`
	MaxPages              int    `mapstructure:"MAX_PAGES"`
	Resume                bool   `mapstructure:"RESUME"`
	DefaultClassification string `mapstructure:"DEFAULT_CLASSIFICATION"`

	LanguagesCSV       string   `mapstructure:"LANGUAGES_CSV"`
	IndexBackend       string   `mapstructure:"INDEX_BACKEND"`
	OpenSearchURL      []string `mapstructure:"OPENSEARCH_URL"`
	OpenSearchUser     string   `mapstructure:"OPENSEARCH_USER"`
	OpenSearchPassword string   `mapstructure:"OPENSEARCH_PASSWORD"`
	OpenSearchInsecure bool     `mapstructure:"OPENSEARCH_INSECURE"`
	DBURL              string   `mapstructure:"DB_URL"`
	ReindexWorkers     int      `mapstructure:"REINDEX_WORKERS"`

	ListenAddr string `mapstructure:"LISTEN_ADDR"`
}

// Index backends.
const (
	BackendOpenSearch = "opensearch"
	BackendPostgres   = "postgres"
)

var defaults = map[string]any{
	"LOG_LEVEL":              "info",
	"GITHUB_TOKEN":           "",
	"GITHUB_API_URL":         "",
	"PER_PAGE":               100,
	"SEARCH_SORT":            "stars",
	"RATE_LIMIT_MARGIN":      "1s",
	"MAX_RETRIES":            3,
	"RETRY_BACKOFF":          "2s",
	"REQUESTS_PER_SECOND":    0,
	"BACKUP_DIR":             "",
	"SCRATCH_DIR":            "",
	"GIT_PATH":               "git",
	"CLOC_PATH":              "cloc",
	"CLOC_TIMEOUT":           "60s",
	"CLOC_PROCESS_TIMEOUT":   "10m",
	"CLOC_FORMAT":            "json",
	"PROGRESS_EVERY":         10,
	"MAX_PAGES":              0,
	"RESUME":                 false,
	"DEFAULT_CLASSIFICATION": "GPL",
	"LANGUAGES_CSV":          "",
	"INDEX_BACKEND":          BackendOpenSearch,
	"OPENSEARCH_URL":         []string{},
	"OPENSEARCH_USER":        "",
	"OPENSEARCH_PASSWORD":    "",
	"OPENSEARCH_INSECURE":    false,
	"DB_URL":                 "",
	"REINDEX_WORKERS":        4,
	"LISTEN_ADDR":            ":8080",
}

// LoadConfig reads configuration from defaults, an optional .env file,
// environment variables and, when given, command line flags. A flag named
// backup-dir overrides the BACKUP_DIR key.
func LoadConfig(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	// Load from .env file if it exists
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read .env: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			key := FlagKey(f.Name)
			if _, ok := defaults[key]; !ok || bindErr != nil {
				return
			}
			bindErr = v.BindPFlag(key, f)
		})
		if bindErr != nil {
			return nil, bindErr
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FlagKey maps a flag name to its configuration key.
func FlagKey(flag string) string {
	return strings.ToUpper(strings.ReplaceAll(flag, "-", "_"))
}

// ValidateHarvest checks what the harvest needs.
func (c *Config) ValidateHarvest() error {
	if err := c.ValidateRepair(); err != nil {
		return err
	}
	if c.ScratchDir == "" {
		return errors.New("SCRATCH_DIR is a required configuration field")
	}
	overlap, err := overlaps(c.ScratchDir, c.BackupDir)
	if err != nil {
		return err
	}
	if overlap {
		return errors.New("SCRATCH_DIR and BACKUP_DIR must not contain each other, the scratch dir is wiped before every analysis")
	}
	if c.ClocFormat != "json" && c.ClocFormat != "csv" {
		return fmt.Errorf("CLOC_FORMAT must be json or csv, got %q", c.ClocFormat)
	}
	if c.MaxPages < 0 {
		return errors.New("MAX_PAGES must not be negative")
	}
	return nil
}

// overlaps reports whether one of the two directories is, or lies inside,
// the other.
func overlaps(a, b string) (bool, error) {
	absA, err := filepath.Abs(a)
	if err != nil {
		return false, fmt.Errorf("resolve %s: %w", a, err)
	}
	absB, err := filepath.Abs(b)
	if err != nil {
		return false, fmt.Errorf("resolve %s: %w", b, err)
	}
	return within(absA, absB) || within(absB, absA), nil
}

// within reports whether path is base or below it. Both must be absolute.
func within(path, base string) bool {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// ValidateRepair checks what the repair pass needs.
func (c *Config) ValidateRepair() error {
	if err := c.ValidateGithub(); err != nil {
		return err
	}
	return c.ValidateBackup()
}

// ValidateGithub checks that API credentials are configured.
func (c *Config) ValidateGithub() error {
	if c.GithubToken == "" {
		return errors.New("GITHUB_TOKEN is a required configuration field")
	}
	return nil
}

// ValidateBackup checks that a backup directory is configured.
func (c *Config) ValidateBackup() error {
	if c.BackupDir == "" {
		return errors.New("BACKUP_DIR is a required configuration field")
	}
	return nil
}

// ValidateIndex checks the document index settings.
func (c *Config) ValidateIndex() error {
	switch c.IndexBackend {
	case BackendOpenSearch:
		if len(c.OpenSearchURL) == 0 {
			return errors.New("OPENSEARCH_URL is required for the opensearch backend")
		}
	case BackendPostgres:
		if c.DBURL == "" {
			return errors.New("DB_URL is required for the postgres backend")
		}
	default:
		return fmt.Errorf("INDEX_BACKEND must be %s or %s, got %q", BackendOpenSearch, BackendPostgres, c.IndexBackend)
	}
	return nil
}
