// internal/api/handler.go
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github-repo-harvester/internal/backup"
	apperrors "github-repo-harvester/internal/errors"
	"github-repo-harvester/internal/model"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

// Backup is the read side of the backup store.
type Backup interface {
	Count() (backup.Counts, error)
	ListRepos(ctx context.Context) ([]model.RepositoryRecord, error)
	ReadRepo(owner, repo string) (model.RepositoryRecord, error)
	ListLanguages(ctx context.Context) ([]model.LanguageRecord, error)
	ListLicenses(ctx context.Context) ([]model.LicenseRecord, error)
}

// Handler is the container for API dependencies.
type Handler struct {
	backup Backup
	logger *slog.Logger
}

// page is the envelope of paginated listings.
type page struct {
	Total  int                      `json:"total"`
	Offset int                      `json:"offset"`
	Limit  int                      `json:"limit"`
	Items  []model.RepositoryRecord `json:"items"`
}

// NewRouter creates and configures a new chi router with all API routes.
func NewRouter(b Backup, logger *slog.Logger) http.Handler {
	h := &Handler{
		backup: b,
		logger: logger,
	}

	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", h.healthCheck)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/stats", h.getStats)
		r.Get("/repos", h.listRepos)
		r.Get("/repos/{owner}/{name}", h.getRepo)
		r.Get("/languages", h.listLanguages)
		r.Get("/licenses", h.listLicenses)
	})

	return r
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// getStats reports the number of backed-up records of each kind.
// GET /v1/stats
func (h *Handler) getStats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.backup.Count()
	if err != nil {
		h.logger.Error("Failed to count backup", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondWithJSON(w, http.StatusOK, counts)
}

// listRepos pages through repository records in backup order.
// GET /v1/repos?offset=N&limit=M
func (h *Handler) listRepos(w http.ResponseWriter, r *http.Request) {
	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		respondWithError(w, http.StatusBadRequest, "Invalid 'offset' parameter. Must be a non-negative integer.")
		return
	}
	limit, err := queryInt(r, "limit", defaultLimit)
	if err != nil || limit <= 0 || limit > maxLimit {
		respondWithError(w, http.StatusBadRequest, "Invalid 'limit' parameter. Must be an integer between 1 and 1000.")
		return
	}

	repos, err := h.backup.ListRepos(r.Context())
	if err != nil {
		h.logger.Error("Failed to list repositories", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	p := page{Total: len(repos), Offset: offset, Limit: limit, Items: []model.RepositoryRecord{}}
	if offset < len(repos) {
		end := min(offset+limit, len(repos))
		p.Items = repos[offset:end]
	}
	respondWithJSON(w, http.StatusOK, p)
}

// getRepo returns one repository record.
// GET /v1/repos/{owner}/{name}
func (h *Handler) getRepo(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	name := chi.URLParam(r, "name")

	rec, err := h.backup.ReadRepo(owner, name)
	if err != nil {
		var invalid *apperrors.ErrInvalidRecord
		switch {
		case errors.Is(err, backup.ErrNotFound):
			respondWithError(w, http.StatusNotFound, "Repository not found")
		case errors.As(err, &invalid):
			respondWithError(w, http.StatusBadRequest, "Invalid repository name")
		default:
			h.logger.Error("Failed to read repository", "owner", owner, "repo", name, "error", err)
			respondWithError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}
	respondWithJSON(w, http.StatusOK, rec)
}

// GET /v1/languages
func (h *Handler) listLanguages(w http.ResponseWriter, r *http.Request) {
	langs, err := h.backup.ListLanguages(r.Context())
	if err != nil {
		h.logger.Error("Failed to list languages", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if langs == nil {
		langs = []model.LanguageRecord{}
	}
	respondWithJSON(w, http.StatusOK, langs)
}

// GET /v1/licenses
func (h *Handler) listLicenses(w http.ResponseWriter, r *http.Request) {
	licenses, err := h.backup.ListLicenses(r.Context())
	if err != nil {
		h.logger.Error("Failed to list licenses", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if licenses == nil {
		licenses = []model.LicenseRecord{}
	}
	respondWithJSON(w, http.StatusOK, licenses)
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
