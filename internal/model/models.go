// internal/model/models.go
package model

import (
	"fmt"
	"strings"

	apperrors "github-repo-harvester/internal/errors"
)

// NoLicense is stored as the license key of repositories without a license.
const NoLicense = "No license"

// RepositoryRecord is the backed-up metadata of one GitHub repository.
type RepositoryRecord struct {
	Owner      string                   `json:"owner"`
	Repo       string                   `json:"repo"`
	FullName   string                   `json:"full_name"`
	URL        string                   `json:"url"`
	CloneURL   string                   `json:"clone_url"`
	Size       int64                    `json:"size"`
	Forks      int                      `json:"forks"`
	Stargazers int                      `json:"stargazers"`
	Watchers   int                      `json:"watchers"`
	PushedAt   Timestamp                `json:"pushed_at"`
	CreatedAt  Timestamp                `json:"created_at"`
	UpdatedAt  Timestamp                `json:"updated_at"`
	LicenseKey string                   `json:"license_key"`
	Language   *string                  `json:"language"`
	Languages  map[string]LanguageStats `json:"languages"`
}

// ID returns the natural key of the record.
func (r RepositoryRecord) ID() RepoID {
	return RepoID{Owner: r.Owner, Repo: r.Repo}
}

// HasValidTimestamps reports whether all three timestamp fields hold parseable date strings.
func (r RepositoryRecord) HasValidTimestamps() bool {
	return r.PushedAt.Valid() && r.CreatedAt.Valid() && r.UpdatedAt.Valid()
}

// Validate checks identity and counters. Timestamps are not checked here so
// that records captured with malformed timestamps can still be repaired.
func (r RepositoryRecord) Validate() error {
	invalid := func(reason string) error {
		return &apperrors.ErrInvalidRecord{Kind: "repository", Key: r.Owner + "/" + r.Repo, Reason: reason}
	}
	if err := ValidateKey(r.Owner); err != nil {
		return invalid("owner: " + err.Error())
	}
	if err := ValidateKey(r.Repo); err != nil {
		return invalid("repo: " + err.Error())
	}
	if r.FullName == "" {
		return invalid("empty full name")
	}
	if r.Size < 0 || r.Forks < 0 || r.Stargazers < 0 || r.Watchers < 0 {
		return invalid("negative counter")
	}
	for name, stats := range r.Languages {
		if name == "" {
			return invalid("empty language name")
		}
		if err := stats.Validate(); err != nil {
			return invalid(fmt.Sprintf("language %q: %v", name, err))
		}
	}
	return nil
}

// LanguageRecord is a language observed in at least one repository.
type LanguageRecord struct {
	Name           string `json:"name"`
	Classification string `json:"type"`
}

func (l LanguageRecord) Validate() error {
	if l.Name == "" {
		return &apperrors.ErrInvalidRecord{Kind: "language", Reason: "empty name"}
	}
	return nil
}

// LicenseRecord mirrors the license object returned by the GitHub API.
type LicenseRecord struct {
	Key    string `json:"key"`
	Name   string `json:"name"`
	SPDXID string `json:"spdx_id"`
	URL    string `json:"url"`
	NodeID string `json:"node_id"`
}

func (l LicenseRecord) Validate() error {
	if err := ValidateKey(l.Key); err != nil {
		return &apperrors.ErrInvalidRecord{Kind: "license", Key: l.Key, Reason: err.Error()}
	}
	return nil
}

// RepoID identifies a repository by owner and name.
type RepoID struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
}

func (id RepoID) String() string {
	return id.Owner + "/" + id.Repo
}

// ParseRepoID parses an 'owner/name' string.
func ParseRepoID(s string) (RepoID, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return RepoID{}, &apperrors.ErrInvalidRepoFormat{Repo: s}
	}
	return RepoID{Owner: parts[0], Repo: parts[1]}, nil
}

// Cursor is the harvest position in the partitioned search space.
type Cursor struct {
	Partition int `json:"partition"`
	Page      int `json:"page"`
}

// ValidateKey rejects keys that cannot be used verbatim as a single path element.
func ValidateKey(key string) error {
	switch {
	case key == "":
		return fmt.Errorf("empty key")
	case key == "." || key == "..":
		return fmt.Errorf("reserved key %q", key)
	case strings.ContainsAny(key, `/\`):
		return fmt.Errorf("key %q contains a path separator", key)
	case strings.ContainsRune(key, 0):
		return fmt.Errorf("key contains a NUL byte")
	}
	return nil
}
