// internal/backup/store.go
package backup

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	apperrors "github-repo-harvester/internal/errors"
	"github-repo-harvester/internal/model"
)

const (
	reposDir    = "repos"
	langsDir    = "langs"
	licensesDir = "licenses"
	stateDir    = "state"

	ext        = ".json"
	tmpPattern = ".*.tmp~"
)

// ErrNotFound is returned when a requested record is not in the backup.
var ErrNotFound = errors.New("backup: record not found")

// Store is the on-disk backup:
//
//	repos/<owner>/<repo>.json
//	langs/<base64url(name)>.json
//	licenses/<key>.json
//
// Writes of new records are create-if-absent, so a record is never
// overwritten except through RewriteRepo.
type Store struct {
	root   string
	logger *slog.Logger
}

// Open prepares the backup layout under root. The root directory itself
// must already exist.
func Open(root string, logger *slog.Logger) (*Store, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("backup directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("backup directory %q is not a directory", root)
	}
	for _, dir := range []string{reposDir, langsDir, licensesDir, stateDir} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			return nil, fmt.Errorf("create %s directory: %w", dir, err)
		}
	}
	return &Store{root: root, logger: logger}, nil
}

// Root returns the backup directory.
func (s *Store) Root() string {
	return s.root
}

// RepoExists is the deduplication gate of the harvest.
func (s *Store) RepoExists(owner, repo string) (bool, error) {
	path, err := s.repoPath(owner, repo)
	if err != nil {
		return false, err
	}
	return exists(path)
}

// WriteRepo stores a new repository record. It never overwrites.
func (s *Store) WriteRepo(rec model.RepositoryRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	path, err := s.repoPath(rec.Owner, rec.Repo)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create owner directory: %w", err)
	}
	return createJSON(path, rec, "repository", rec.ID().String())
}

// RewriteRepo atomically replaces an existing repository record.
func (s *Store) RewriteRepo(rec model.RepositoryRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	path, err := s.repoPath(rec.Owner, rec.Repo)
	if err != nil {
		return err
	}
	ok, err := exists(path)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: repository %s", ErrNotFound, rec.ID())
	}
	return replaceJSON(path, rec)
}

// ReadRepo loads one repository record.
func (s *Store) ReadRepo(owner, repo string) (model.RepositoryRecord, error) {
	var rec model.RepositoryRecord
	path, err := s.repoPath(owner, repo)
	if err != nil {
		return rec, err
	}
	if err := readJSON(path, &rec); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return rec, fmt.Errorf("%w: repository %s/%s", ErrNotFound, owner, repo)
		}
		return rec, err
	}
	return rec, nil
}

// EachRepo calls fn for every readable repository record, owner by owner in
// name order. Unreadable files are logged and skipped.
func (s *Store) EachRepo(ctx context.Context, fn func(model.RepositoryRecord) error) error {
	owners, err := os.ReadDir(filepath.Join(s.root, reposDir))
	if err != nil {
		return fmt.Errorf("list owners: %w", err)
	}
	for _, owner := range owners {
		if !owner.IsDir() {
			continue
		}
		ownerDir := filepath.Join(s.root, reposDir, owner.Name())
		err := s.eachFile(ownerDir, func(path string) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var rec model.RepositoryRecord
			if err := readJSON(path, &rec); err != nil {
				s.logger.Warn("Skipping unreadable backup record", "path", path, "error", err)
				return nil
			}
			return fn(rec)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// ListRepos returns all readable repository records.
func (s *Store) ListRepos(ctx context.Context) ([]model.RepositoryRecord, error) {
	var repos []model.RepositoryRecord
	err := s.EachRepo(ctx, func(rec model.RepositoryRecord) error {
		repos = append(repos, rec)
		return nil
	})
	return repos, err
}

// LanguageExists checks both the current and the legacy file name.
func (s *Store) LanguageExists(name string) (bool, error) {
	ok, err := exists(s.languagePath(name))
	if ok || err != nil {
		return ok, err
	}
	return exists(filepath.Join(s.root, langsDir, legacyLanguageFile(name)))
}

// WriteLanguage stores a language the first time it is observed.
func (s *Store) WriteLanguage(rec model.LanguageRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	return createJSON(s.languagePath(rec.Name), rec, "language", rec.Name)
}

// ListLanguages returns all readable language records.
func (s *Store) ListLanguages(ctx context.Context) ([]model.LanguageRecord, error) {
	var langs []model.LanguageRecord
	err := s.eachFile(filepath.Join(s.root, langsDir), func(path string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		var rec model.LanguageRecord
		if err := readJSON(path, &rec); err != nil {
			s.logger.Warn("Skipping unreadable language record", "path", path, "error", err)
			return nil
		}
		langs = append(langs, rec)
		return nil
	})
	return langs, err
}

// LicenseExists reports whether a license key is already stored.
func (s *Store) LicenseExists(key string) (bool, error) {
	if err := model.ValidateKey(key); err != nil {
		return false, &apperrors.ErrInvalidRecord{Kind: "license", Key: key, Reason: err.Error()}
	}
	return exists(filepath.Join(s.root, licensesDir, key+ext))
}

// WriteLicense stores a license the first time it is observed.
func (s *Store) WriteLicense(rec model.LicenseRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	return createJSON(filepath.Join(s.root, licensesDir, rec.Key+ext), rec, "license", rec.Key)
}

// ListLicenses returns all readable license records.
func (s *Store) ListLicenses(ctx context.Context) ([]model.LicenseRecord, error) {
	var licenses []model.LicenseRecord
	err := s.eachFile(filepath.Join(s.root, licensesDir), func(path string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		var rec model.LicenseRecord
		if err := readJSON(path, &rec); err != nil {
			s.logger.Warn("Skipping unreadable license record", "path", path, "error", err)
			return nil
		}
		licenses = append(licenses, rec)
		return nil
	})
	return licenses, err
}

// LoadCursor returns the persisted harvest cursor, if any.
func (s *Store) LoadCursor() (model.Cursor, bool, error) {
	var c model.Cursor
	err := readJSON(s.cursorPath(), &c)
	if errors.Is(err, fs.ErrNotExist) {
		return c, false, nil
	}
	if err != nil {
		return c, false, fmt.Errorf("read cursor: %w", err)
	}
	return c, true, nil
}

// SaveCursor persists the harvest cursor.
func (s *Store) SaveCursor(c model.Cursor) error {
	return replaceJSON(s.cursorPath(), c)
}

// Counts holds the number of records of each kind.
type Counts struct {
	Owners       int `json:"owners"`
	Repositories int `json:"repositories"`
	Languages    int `json:"languages"`
	Licenses     int `json:"licenses"`
}

// Count walks the backup without decoding records.
func (s *Store) Count() (Counts, error) {
	var c Counts
	owners, err := os.ReadDir(filepath.Join(s.root, reposDir))
	if err != nil {
		return c, err
	}
	for _, owner := range owners {
		if !owner.IsDir() {
			continue
		}
		c.Owners++
		n, err := countFiles(filepath.Join(s.root, reposDir, owner.Name()))
		if err != nil {
			return c, err
		}
		c.Repositories += n
	}
	if c.Languages, err = countFiles(filepath.Join(s.root, langsDir)); err != nil {
		return c, err
	}
	if c.Licenses, err = countFiles(filepath.Join(s.root, licensesDir)); err != nil {
		return c, err
	}
	return c, nil
}

func (s *Store) repoPath(owner, repo string) (string, error) {
	if err := model.ValidateKey(owner); err != nil {
		return "", &apperrors.ErrInvalidRecord{Kind: "repository", Key: owner + "/" + repo, Reason: err.Error()}
	}
	if err := model.ValidateKey(repo); err != nil {
		return "", &apperrors.ErrInvalidRecord{Kind: "repository", Key: owner + "/" + repo, Reason: err.Error()}
	}
	return filepath.Join(s.root, reposDir, owner, repo+ext), nil
}

func (s *Store) languagePath(name string) string {
	return filepath.Join(s.root, langsDir, EncodeLanguageKey(name)+ext)
}

func (s *Store) cursorPath() string {
	return filepath.Join(s.root, stateDir, "cursor"+ext)
}

// eachFile visits the record files of dir in name order.
func (s *Store) eachFile(dir string, fn func(path string) error) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("list %s: %w", dir, err)
	}
	for _, entry := range entries {
		if !isRecordFile(entry) {
			continue
		}
		if err := fn(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

// EncodeLanguageKey turns a language name ("C++", "Objective-C/C++") into a
// file-name-safe key. The encoding is reversible with DecodeLanguageKey.
func EncodeLanguageKey(name string) string {
	return base64.URLEncoding.EncodeToString([]byte(name))
}

// DecodeLanguageKey reverses EncodeLanguageKey.
func DecodeLanguageKey(key string) (string, error) {
	b, err := base64.URLEncoding.DecodeString(key)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// legacyLanguageFile is the name early backups used: the printed form of a
// byte string, b'<base64>'.json.
func legacyLanguageFile(name string) string {
	return "b'" + EncodeLanguageKey(name) + "'" + ext
}

// isRecordFile accepts regular .json files. Temp files end in .tmp~ and so
// never match, whatever the record is called.
func isRecordFile(entry fs.DirEntry) bool {
	return entry.Type().IsRegular() && strings.HasSuffix(entry.Name(), ext)
}

func countFiles(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, entry := range entries {
		if isRecordFile(entry) {
			n++
		}
	}
	return n, nil
}

func exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func createJSON(path string, v any, kind, key string) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s %q: %w", kind, key, err)
	}
	return createFile(path, data, kind, key)
}

func replaceJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	tmp, err := writeTemp(filepath.Dir(path), data)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
