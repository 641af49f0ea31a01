// internal/backup/archive.go
package backup

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	apperrors "github-repo-harvester/internal/errors"
	"github-repo-harvester/internal/model"
)

var archiveHeader = []string{"dir", "file", "json"}

// Pack writes every repository file as a dir,file,json CSV row. File
// contents are copied verbatim, including records that fail to parse.
func (s *Store) Pack(ctx context.Context, w io.Writer) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(archiveHeader); err != nil {
		return 0, err
	}

	owners, err := os.ReadDir(filepath.Join(s.root, reposDir))
	if err != nil {
		return 0, fmt.Errorf("list owners: %w", err)
	}
	packed := 0
	for _, owner := range owners {
		if !owner.IsDir() {
			continue
		}
		err := s.eachFile(filepath.Join(s.root, reposDir, owner.Name()), func(path string) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			packed++
			return cw.Write([]string{owner.Name(), filepath.Base(path), string(data)})
		})
		if err != nil {
			return packed, err
		}
	}
	cw.Flush()
	return packed, cw.Error()
}

// UnpackResult summarises an Unpack run.
type UnpackResult struct {
	Written int
	Skipped int
	Invalid int
}

// Unpack restores repository files from a Pack archive. Files that already
// exist are left untouched.
func (s *Store) Unpack(ctx context.Context, r io.Reader) (UnpackResult, error) {
	var res UnpackResult
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return res, fmt.Errorf("read archive header: %w", err)
	}
	if strings.Join(header, ",") != strings.Join(archiveHeader, ",") {
		return res, fmt.Errorf("unexpected archive header %v", header)
	}

	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return res, nil
		}
		if err != nil {
			return res, fmt.Errorf("read archive row: %w", err)
		}

		owner, file, body := row[0], row[1], row[2]
		repo := strings.TrimSuffix(file, ext)
		if model.ValidateKey(owner) != nil || model.ValidateKey(repo) != nil || !strings.HasSuffix(file, ext) || !json.Valid([]byte(body)) {
			s.logger.Warn("Skipping invalid archive row", "dir", owner, "file", file)
			res.Invalid++
			continue
		}

		path, _ := s.repoPath(owner, repo)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return res, fmt.Errorf("create owner directory: %w", err)
		}
		err = createFile(path, []byte(body), "repository", owner+"/"+repo)
		var existsErr *apperrors.ErrRecordExists
		switch {
		case errors.As(err, &existsErr):
			res.Skipped++
		case err != nil:
			return res, err
		default:
			res.Written++
		}
	}
}
