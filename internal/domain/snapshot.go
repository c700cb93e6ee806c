// Package domain contains the core data structures and domain logic for the application.
package domain

import (
	"strings"
	"time"
)

// UnknownLanguage is used when the hosting API reports no primary language.
const UnknownLanguage = "Unknown"

// RepositoryMetadata is the subset of repository metadata the dashboard uses.
type RepositoryMetadata struct {
	Stars     int
	Forks     int
	Watchers  int
	Language  string
	SizeKB    int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RepositorySnapshot holds the aggregated counters for a single repository at fetch time.
// It is the core domain entity of this application.
type RepositorySnapshot struct {
	Repository     string    `json:"repository"`
	Stars          int       `json:"stars"`
	Forks          int       `json:"forks"`
	Watchers       int       `json:"watchers"`
	OpenPRs        int       `json:"open_prs"`
	ClosedPRs      int       `json:"closed_prs"`
	OpenIssues     int       `json:"open_issues"`
	ClosedIssues   int       `json:"closed_issues"`
	TotalPRs       int       `json:"total_prs"`
	TotalIssues    int       `json:"total_issues"`
	Language       string    `json:"language"`
	SizeKB         int       `json:"size_kb"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	FetchTimestamp time.Time `json:"fetch_timestamp"`
}

// NewSnapshot builds a snapshot row from metadata and listing counts, deriving the totals.
func NewSnapshot(repo string, meta RepositoryMetadata, openPRs, closedPRs, openIssues, closedIssues int, fetchedAt time.Time) RepositorySnapshot {
	lang := meta.Language
	if lang == "" {
		lang = UnknownLanguage
	}
	return RepositorySnapshot{
		Repository:     repo,
		Stars:          meta.Stars,
		Forks:          meta.Forks,
		Watchers:       meta.Watchers,
		OpenPRs:        openPRs,
		ClosedPRs:      closedPRs,
		OpenIssues:     openIssues,
		ClosedIssues:   closedIssues,
		TotalPRs:       openPRs + closedPRs,
		TotalIssues:    openIssues + closedIssues,
		Language:       lang,
		SizeKB:         meta.SizeKB,
		CreatedAt:      meta.CreatedAt,
		UpdatedAt:      meta.UpdatedAt,
		FetchTimestamp: fetchedAt,
	}
}

// ShortName returns the name part of an "owner/name" identifier.
func (s RepositorySnapshot) ShortName() string {
	if i := strings.LastIndex(s.Repository, "/"); i >= 0 {
		return s.Repository[i+1:]
	}
	return s.Repository
}

// SizeMB returns the repository size in megabytes.
func (s RepositorySnapshot) SizeMB() float64 {
	return float64(s.SizeKB) / 1024
}

// Table is the ordered handoff between fetching and rendering, one row per
// repository in configuration order. It is not modified after collection.
type Table []RepositorySnapshot

// SplitIdentifier splits "owner/name" into its parts.
func SplitIdentifier(repo string) (owner, name string, ok bool) {
	owner, name, found := strings.Cut(repo, "/")
	if !found || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", false
	}
	return owner, name, true
}
