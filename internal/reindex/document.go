// internal/reindex/document.go
package reindex

import (
	"sort"

	"github-repo-harvester/internal/model"
)

// LanguageRef names a language and its classification inside a document.
type LanguageRef struct {
	Name           string `json:"name"`
	Classification string `json:"type"`
}

// LanguageEntry is one element of RepositoryDocument.Languages.
type LanguageEntry struct {
	Language LanguageRef `json:"language"`
	Files    int64       `json:"files"`
	Blank    int64       `json:"blank"`
	Comment  int64       `json:"comment"`
	Code     int64       `json:"code"`
}

// RepositoryDocument is the indexed form of a RepositoryRecord. Languages is
// a list rather than a map so the index mapping stays fixed.
type RepositoryDocument struct {
	Owner      string          `json:"owner"`
	Repo       string          `json:"repo"`
	FullName   string          `json:"full_name"`
	URL        string          `json:"url"`
	CloneURL   string          `json:"clone_url"`
	Size       int64           `json:"size"`
	Forks      int             `json:"forks"`
	Stargazers int             `json:"stargazers"`
	Watchers   int             `json:"watchers"`
	PushedAt   model.Timestamp `json:"pushed_at"`
	CreatedAt  model.Timestamp `json:"created_at"`
	UpdatedAt  model.Timestamp `json:"updated_at"`
	LicenseKey string          `json:"license_key"`
	Language   *string         `json:"language"`
	Languages  []LanguageEntry `json:"languages"`
}

// NewRepositoryDocument reshapes rec, classifying languages through table.
func NewRepositoryDocument(rec model.RepositoryRecord, table LanguageTable, defaultClassification string) RepositoryDocument {
	names := make([]string, 0, len(rec.Languages))
	for name := range rec.Languages {
		names = append(names, name)
	}
	sort.Strings(names)

	languages := make([]LanguageEntry, 0, len(names))
	for _, name := range names {
		s := rec.Languages[name]
		languages = append(languages, LanguageEntry{
			Language: LanguageRef{Name: name, Classification: table.Classify(name, defaultClassification)},
			Files:    s.Files,
			Blank:    s.Blank,
			Comment:  s.Comment,
			Code:     s.Code,
		})
	}

	return RepositoryDocument{
		Owner:      rec.Owner,
		Repo:       rec.Repo,
		FullName:   rec.FullName,
		URL:        rec.URL,
		CloneURL:   rec.CloneURL,
		Size:       rec.Size,
		Forks:      rec.Forks,
		Stargazers: rec.Stargazers,
		Watchers:   rec.Watchers,
		PushedAt:   rec.PushedAt,
		CreatedAt:  rec.CreatedAt,
		UpdatedAt:  rec.UpdatedAt,
		LicenseKey: rec.LicenseKey,
		Language:   rec.Language,
		Languages:  languages,
	}
}
