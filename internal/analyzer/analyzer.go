// internal/analyzer/analyzer.go
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github-repo-harvester/internal/model"
)

const (
	FormatJSON = "json"
	FormatCSV  = "csv"

	defaultGit            = "git"
	defaultCloc           = "cloc"
	defaultClocTimeout    = 60 * time.Second
	defaultProcessTimeout = 10 * time.Minute
)

// Runner executes an external program and returns its standard output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs programs with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
		return out, fmt.Errorf("%s: %w: %s", name, err, firstLine(exitErr.Stderr))
	}
	return out, err
}

// Options configure an Analyzer. Zero values fall back to defaults.
type Options struct {
	GitPath    string
	ClocPath   string
	ScratchDir string
	// ClocTimeout is passed to cloc as --timeout (per file).
	ClocTimeout time.Duration
	// ProcessTimeout bounds each external process run.
	ProcessTimeout time.Duration
	Format         string
}

// Analyzer counts lines per language in a shallow clone of a repository.
// A single scratch directory is reused, so calls are serialized.
type Analyzer struct {
	mu     sync.Mutex
	opts   Options
	runner Runner
	logger *slog.Logger
}

// New creates an Analyzer. A nil runner uses ExecRunner.
func New(opts Options, runner Runner, logger *slog.Logger) (*Analyzer, error) {
	if opts.ScratchDir == "" {
		return nil, errors.New("analyzer: scratch directory is required")
	}
	if opts.GitPath == "" {
		opts.GitPath = defaultGit
	}
	if opts.ClocPath == "" {
		opts.ClocPath = defaultCloc
	}
	if opts.ClocTimeout <= 0 {
		opts.ClocTimeout = defaultClocTimeout
	}
	if opts.ProcessTimeout <= 0 {
		opts.ProcessTimeout = defaultProcessTimeout
	}
	switch opts.Format {
	case "":
		opts.Format = FormatJSON
	case FormatJSON, FormatCSV:
	default:
		return nil, fmt.Errorf("analyzer: unsupported cloc format %q", opts.Format)
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Analyzer{opts: opts, runner: runner, logger: logger}, nil
}

// Analyze clones cloneURL and returns its per-language statistics.
//
// A failed clone, a failed or timed out cloc run, and unparsable output all
// yield an empty map. Errors are returned only when the scratch directory
// cannot be prepared or ctx is done.
func (a *Analyzer) Analyze(ctx context.Context, cloneURL string) (map[string]model.LanguageStats, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	logger := a.logger.With("clone_url", cloneURL)
	if err := a.resetScratch(); err != nil {
		return nil, err
	}
	repoDir := filepath.Join(a.opts.ScratchDir, "repo")

	cloneCtx, cancel := context.WithTimeout(ctx, a.opts.ProcessTimeout)
	_, err := a.runner.Run(cloneCtx, a.opts.GitPath, "clone", "--depth", "1", "--quiet", cloneURL, repoDir)
	cancel()
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		logger.Warn("Clone failed, no language data", "error", err)
		return map[string]model.LanguageStats{}, nil
	}

	args := []string{repoDir, "--timeout", strconv.Itoa(int(a.opts.ClocTimeout.Seconds())), "--quiet"}
	if a.opts.Format == FormatCSV {
		args = append(args, "--csv")
	} else {
		args = append(args, "--json")
	}
	clocCtx, cancel := context.WithTimeout(ctx, a.opts.ProcessTimeout)
	out, err := a.runner.Run(clocCtx, a.opts.ClocPath, args...)
	cancel()
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		logger.Warn("cloc failed, no language data", "error", err)
		return map[string]model.LanguageStats{}, nil
	}

	var stats map[string]model.LanguageStats
	if a.opts.Format == FormatCSV {
		stats, err = ParseCSV(out)
	} else {
		stats, err = ParseJSON(out)
	}
	if err != nil {
		logger.Warn("Unparsable cloc output, no language data", "error", err)
		return map[string]model.LanguageStats{}, nil
	}
	logger.Debug("Repository analyzed", "languages", len(stats))
	return stats, nil
}

// ListLanguages returns every language cloc knows about.
func (a *Analyzer) ListLanguages(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.opts.ProcessTimeout)
	defer cancel()
	out, err := a.runner.Run(ctx, a.opts.ClocPath, "--show-lang")
	if err != nil {
		return nil, fmt.Errorf("cloc --show-lang: %w", err)
	}
	return ParseLanguageList(out), nil
}

func (a *Analyzer) resetScratch() error {
	if err := os.RemoveAll(a.opts.ScratchDir); err != nil {
		return fmt.Errorf("clear scratch directory: %w", err)
	}
	if err := os.MkdirAll(a.opts.ScratchDir, 0o755); err != nil {
		return fmt.Errorf("create scratch directory: %w", err)
	}
	return nil
}

func firstLine(b []byte) string {
	for i, c := range b {
		if c == '\n' {
			return string(b[:i])
		}
	}
	return string(b)
}
