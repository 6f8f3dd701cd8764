// Package enrichment fills in missing book metadata from external
// bibliographic sources and merges the results under a fixed precedence rule.
package enrichment

import (
	"context"
	"errors"
)

var (
	// ErrNoTitle is returned when a lookup is attempted without a title.
	ErrNoTitle = errors.New("title is required")

	// ErrAPIUnavailable is returned when an external source cannot be reached.
	ErrAPIUnavailable = errors.New("API unavailable")
)

// Source defines the interface for fetching book information from one
// external bibliographic service. Each implementation handles its own rate
// limiting, caching, and data transformation to the common SourceRecord
// format.
type Source interface {
	// Name returns the human-readable name of the source (e.g., "Open Library").
	Name() string

	// Tag returns the provenance tag written to catalog records enriched
	// from this source.
	Tag() string

	// Priority returns the priority when merging data. Lower values indicate
	// higher precedence.
	Priority() int

	// Ping tests the connection to the source.
	Ping(ctx context.Context) error

	// Search retrieves book information by title and optional author.
	// Returns nil, nil when no match was found (allows the other source to
	// contribute). Returns nil, error only for actual failures.
	Search(ctx context.Context, title, author string) (*SourceRecord, error)
}

// SourceRecord is a best-effort normalized record from a single source.
// Empty string and zero mean "absent".
type SourceRecord struct {
	Title           string `json:"title,omitempty"`
	Author          string `json:"author,omitempty"`
	Summary         string `json:"summary,omitempty"`
	CoverURL        string `json:"cover_url,omitempty"`
	PublicationYear int    `json:"publication_year,omitempty"`
	Publisher       string `json:"publisher,omitempty"`
	PageCount       int    `json:"page_count,omitempty"`
	SourceTag       string `json:"source_tag"`
}

// Empty reports whether the record carries no usable fields at all.
func (r *SourceRecord) Empty() bool {
	if r == nil {
		return true
	}
	return r.Title == "" && r.Author == "" && r.Summary == "" &&
		r.CoverURL == "" && r.PublicationYear == 0 && r.Publisher == "" &&
		r.PageCount == 0
}
