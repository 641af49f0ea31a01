// internal/repair/repair.go
package repair

import (
	"context"
	"errors"
	"log/slog"

	"github-repo-harvester/internal/github"
	"github-repo-harvester/internal/model"
)

// Fetcher returns the canonical info of a repository.
type Fetcher interface {
	GetRepository(ctx context.Context, owner, name string) (*github.Repository, error)
}

// Store is the part of the backup the repair pass needs.
type Store interface {
	EachRepo(ctx context.Context, fn func(model.RepositoryRecord) error) error
	RewriteRepo(rec model.RepositoryRecord) error
}

// Report summarises a repair pass.
type Report struct {
	Checked      int
	AlreadyValid int
	Repaired     int
	Failed       int
	// Unresolved lists repositories the API no longer knows about.
	Unresolved []model.RepoID
}

// Repairer re-fetches the timestamps of records whose updated_at is not a
// date string.
type Repairer struct {
	fetcher Fetcher
	store   Store
	logger  *slog.Logger
}

// NewRepairer creates a new Repairer instance.
func NewRepairer(fetcher Fetcher, store Store, logger *slog.Logger) *Repairer {
	return &Repairer{fetcher: fetcher, store: store, logger: logger}
}

// Run checks every repository record once. Records that cannot be repaired
// are reported and never abort the pass. Rejected credentials do.
func (r *Repairer) Run(ctx context.Context) (Report, error) {
	var report Report
	r.logger.Info("Starting repair pass")

	err := r.store.EachRepo(ctx, func(rec model.RepositoryRecord) error {
		report.Checked++
		logger := r.logger.With("owner", rec.Owner, "repo", rec.Repo)

		if rec.UpdatedAt.IsString() {
			logger.Debug("Record already correct")
			report.AlreadyValid++
			return nil
		}

		remote, err := r.fetcher.GetRepository(ctx, rec.Owner, rec.Repo)
		switch {
		case errors.Is(err, github.ErrNotFound):
			logger.Warn("Repository no longer exists, cannot repair")
			report.Unresolved = append(report.Unresolved, rec.ID())
			return nil
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, github.ErrUnauthorized) {
				return err
			}
			logger.Error("Failed to fetch repository", "error", err)
			report.Failed++
			return nil
		}

		github.ApplyTimestamps(&rec, remote)
		if err := r.store.RewriteRepo(rec); err != nil {
			logger.Error("Failed to rewrite record", "error", err)
			report.Failed++
			return nil
		}
		logger.Info("Record repaired", "updated_at", rec.UpdatedAt.String())
		report.Repaired++
		return nil
	})
	if err != nil {
		return report, err
	}

	r.logger.Info("Repair pass finished",
		"checked", report.Checked, "repaired", report.Repaired, "already_valid", report.AlreadyValid,
		"failed", report.Failed, "unresolved", len(report.Unresolved))
	for _, id := range report.Unresolved {
		r.logger.Warn("Unresolved repository", "repository", id.String())
	}
	return report, nil
}
