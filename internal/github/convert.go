// internal/github/convert.go
package github

import (
	"github.com/google/go-github/v62/github"

	"github-repo-harvester/internal/model"
)

// License extends github.License with the node_id the API returns.
type License struct {
	github.License
	NodeID string `json:"node_id,omitempty"`
}

// Repository is a github.Repository whose license keeps its node_id.
// The shallower License field shadows the embedded one when decoding.
type Repository struct {
	github.Repository
	License *License `json:"license,omitempty"`
}

// SearchResult is one page of GET /search/repositories.
type SearchResult struct {
	Total             int           `json:"total_count"`
	IncompleteResults bool          `json:"incomplete_results"`
	Items             []*Repository `json:"items"`
}

// ToRepositoryRecord translates a Repository and its analyzed languages
// into our backup record.
func ToRepositoryRecord(r *Repository, languages map[string]model.LanguageStats) model.RepositoryRecord {
	if languages == nil {
		languages = map[string]model.LanguageStats{}
	}
	licenseKey := model.NoLicense
	if r.License != nil && r.License.GetKey() != "" {
		licenseKey = r.License.GetKey()
	}
	return model.RepositoryRecord{
		Owner:      r.GetOwner().GetLogin(),
		Repo:       r.GetName(),
		FullName:   r.GetFullName(),
		URL:        r.GetHTMLURL(),
		CloneURL:   r.GetCloneURL(),
		Size:       int64(r.GetSize()),
		Forks:      r.GetForksCount(),
		Stargazers: r.GetStargazersCount(),
		Watchers:   r.GetWatchersCount(),
		PushedAt:   toTimestamp(r.PushedAt),
		CreatedAt:  toTimestamp(r.CreatedAt),
		UpdatedAt:  toTimestamp(r.UpdatedAt),
		LicenseKey: licenseKey,
		Language:   r.Language,
		Languages:  languages,
	}
}

// ToLicenseRecord translates the license attached to a repository.
func ToLicenseRecord(l *License) model.LicenseRecord {
	return model.LicenseRecord{
		Key:    l.GetKey(),
		Name:   l.GetName(),
		SPDXID: l.GetSPDXID(),
		URL:    l.GetURL(),
		NodeID: l.NodeID,
	}
}

// ApplyTimestamps copies the three date fields of r onto rec.
func ApplyTimestamps(rec *model.RepositoryRecord, r *Repository) {
	rec.PushedAt = toTimestamp(r.PushedAt)
	rec.CreatedAt = toTimestamp(r.CreatedAt)
	rec.UpdatedAt = toTimestamp(r.UpdatedAt)
}

func toTimestamp(ts *github.Timestamp) model.Timestamp {
	if ts == nil {
		return model.Timestamp{}
	}
	return model.NewTimestamp(ts.Time)
}
