// Package catalog owns the persistent book catalog: records, enrichment
// attempt logs, and reader reviews, backed by SQLite.
package catalog

import "time"

// Source provenance values for a book record. A record whose Source is empty
// has never been through an enrichment pass; every pass ends by setting it to
// a terminal value, even when no fields changed.
const (
	SourceNotFound    = "not_found"
	SourceOpenLibrary = "openlibrary"
	SourceGoogleBooks = "googlebooks"
	SourceHybrid      = "hybrid"
)

// PlaceholderSummary is the generic summary assigned to imported books that
// arrived without one. It is treated as "absent" by the enrichment pipeline
// and is the one value that fetched data may overwrite without a force flag.
const PlaceholderSummary = "A captivating romance novel."

// Heat level classifications, mildest first.
const (
	HeatSweet     = "sweet"
	HeatWarm      = "warm"
	HeatHot       = "hot"
	HeatScorching = "scorching"
)

// Enrichment attempt outcomes.
const (
	AttemptSuccess = "success"
	AttemptPartial = "partial"
	AttemptSkipped = "skipped"
	AttemptError   = "error"
)

// Book is a catalog record. Zero values ("" and 0) mean "absent" for the
// optional descriptive fields.
type Book struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Author          string    `json:"author"`
	Summary         string    `json:"summary,omitempty"`
	CoverURL        string    `json:"cover_url,omitempty"`
	Genre           string    `json:"genre,omitempty"`
	Mood            string    `json:"mood,omitempty"`
	Trope           string    `json:"trope,omitempty"`
	HeatLevel       string    `json:"heat_level,omitempty"`
	Source          string    `json:"source,omitempty"`
	PublicationYear int       `json:"publication_year,omitempty"`
	Publisher       string    `json:"publisher,omitempty"`
	PageCount       int       `json:"page_count,omitempty"`
	ISBN            string    `json:"isbn,omitempty"`
	ISBN13          string    `json:"isbn13,omitempty"`
	Rating          float64   `json:"rating,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// EnrichmentAttempt is an append-only log row recording the outcome of one
// orchestrator pass over one book. Never read back into business logic.
type EnrichmentAttempt struct {
	ID            int64     `json:"id"`
	BookID        string    `json:"book_id"`
	Status        string    `json:"status"`
	FieldsUpdated []string  `json:"fields_updated,omitempty"`
	Source        string    `json:"source,omitempty"`
	ErrorMessage  string    `json:"error_message,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Review is a reader review of a book.
type Review struct {
	ID        string    `json:"id"`
	BookID    string    `json:"book_id"`
	Reviewer  string    `json:"reviewer"`
	Rating    int       `json:"rating"`
	Text      string    `json:"text"`
	ClientIP  string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}
