package enrichment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ekarhu/tropeshelf/internal/catalog"
	"github.com/ekarhu/tropeshelf/internal/ratelimit"
)

// Orchestrator runs the per-record enrichment state machine over batches of
// catalog books: needs-enrichment → fetch → merge → decide-update → persist
// → log. Records are processed sequentially with a fixed pause between them
// to stay polite toward the external APIs.
type Orchestrator struct {
	store       *catalog.Store
	openLibrary Source
	googleBooks Source
	pacer       *ratelimit.Limiter
}

// NewOrchestrator creates an Orchestrator over the given store and sources.
// delay is the pause enforced between consecutive records in a batch.
func NewOrchestrator(store *catalog.Store, openLibrary, googleBooks Source, delay time.Duration) *Orchestrator {
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	return &Orchestrator{
		store:       store,
		openLibrary: openLibrary,
		googleBooks: googleBooks,
		pacer:       ratelimit.NewEvery("EnrichBatch", delay),
	}
}

// BatchOptions controls one orchestrator pass.
type BatchOptions struct {
	// Limit caps the number of records processed this pass.
	Limit int
	// Offset skips records, for callers paging through the catalog.
	Offset int
	// Force re-enriches records that already carry a source tag and allows
	// fetched data to overwrite existing fields.
	Force bool
}

// BatchResult summarizes one orchestrator pass.
type BatchResult struct {
	Processed int  `json:"processed"`
	Updated   int  `json:"updated"`
	Skipped   int  `json:"skipped"`
	Errors    int  `json:"errors"`
	Exhausted bool `json:"exhausted"`
}

// defaultBatchLimit matches the store's page size when the caller passes no
// limit of its own.
const defaultBatchLimit = 20

// Run processes one page of the catalog in stable creation order. Records
// that no longer need enrichment are logged as skipped attempts, so a caller
// paging with an advancing offset visits every record exactly once.
// Exhausted is set when the page came back short, signaling the caller to
// stop paging.
func (o *Orchestrator) Run(ctx context.Context, opts BatchOptions) (BatchResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultBatchLimit
	}

	books, err := o.store.ListEnrichmentBatch(ctx, limit, opts.Offset)
	if err != nil {
		return BatchResult{}, fmt.Errorf("listing enrichment batch: %w", err)
	}

	result, err := o.EnrichBooks(ctx, books, opts.Force)
	result.Exhausted = len(books) < limit
	return result, err
}

// EnrichBooks runs the state machine over the given records sequentially
// with a fixed pause between them. Each record's outcome is independent: a
// failure is logged as an attempt with status error and the loop continues.
func (o *Orchestrator) EnrichBooks(ctx context.Context, books []catalog.Book, force bool) (BatchResult, error) {
	var result BatchResult

	for i := range books {
		if i > 0 {
			if err := o.pacer.Wait(ctx); err != nil {
				return result, err
			}
		}

		book := &books[i]
		attempt := o.EnrichOne(ctx, book, force)
		result.Processed++

		switch attempt.Status {
		case catalog.AttemptSuccess:
			result.Updated++
		case catalog.AttemptSkipped:
			result.Skipped++
		case catalog.AttemptError:
			result.Errors++
		}

		if err := o.store.LogAttempt(ctx, attempt); err != nil {
			slog.Warn("Failed to log enrichment attempt", "book_id", book.ID, "error", err)
		}
	}

	return result, nil
}

// EnrichOne runs the state machine for a single book and returns the attempt
// record describing the outcome. It never returns an error: failures are
// captured in the attempt with status error.
func (o *Orchestrator) EnrichOne(ctx context.Context, book *catalog.Book, force bool) *catalog.EnrichmentAttempt {
	attempt := &catalog.EnrichmentAttempt{BookID: book.ID}

	if !NeedsEnrichment(book, force) {
		attempt.Status = catalog.AttemptSkipped
		attempt.Source = book.Source
		slog.Debug("Book already enriched, skipping", "book_id", book.ID, "title", book.Title)
		return attempt
	}

	olRecord, olErr := o.search(ctx, o.openLibrary, book)
	gbRecord, gbErr := o.search(ctx, o.googleBooks, book)

	merged := Merge(olRecord, gbRecord)
	updated := applyMerged(book, merged, force)

	// The source tag is always written, even when nothing else changed:
	// it marks the record as attempted so it is not retried without force.
	book.Source = merged.Source

	if err := o.store.UpdateBook(ctx, book); err != nil {
		attempt.Status = catalog.AttemptError
		attempt.ErrorMessage = err.Error()
		slog.Error("Failed to persist enrichment", "book_id", book.ID, "error", err)
		return attempt
	}

	attempt.Source = merged.Source
	attempt.FieldsUpdated = updated
	switch {
	case olErr != nil && gbErr != nil:
		// Every source errored out, as opposed to answering "no match".
		attempt.Status = catalog.AttemptError
		attempt.ErrorMessage = fmt.Sprintf("all sources failed: %v; %v", olErr, gbErr)
	case len(updated) > 0:
		attempt.Status = catalog.AttemptSuccess
	default:
		attempt.Status = catalog.AttemptPartial
	}

	slog.Info("Enriched book", "book_id", book.ID, "title", book.Title,
		"source", merged.Source, "fields", updated)
	return attempt
}

// search queries one source with the book's title and author, isolating
// failures: an error contributes nothing and the pipeline proceeds with
// whatever the other source returned.
func (o *Orchestrator) search(ctx context.Context, src Source, book *catalog.Book) (*SourceRecord, error) {
	record, err := src.Search(ctx, book.Title, book.Author)
	if err != nil {
		slog.Warn("Source lookup failed", "source", src.Name(), "title", book.Title, "error", err)
		return nil, err
	}
	if record == nil {
		slog.Debug("No match from source", "source", src.Name(), "title", book.Title)
	}
	return record, nil
}

// NeedsEnrichment reports whether a book qualifies for an enrichment pass.
// A non-empty source tag is terminal: the record was already attempted,
// even when that attempt found nothing, and is not retried without force.
func NeedsEnrichment(book *catalog.Book, force bool) bool {
	if force {
		return true
	}
	return book.Source == ""
}

// applyMerged copies merged fields onto the book using set-if-absent
// semantics and returns the names of the fields that changed. An existing
// value is only replaced when it is the placeholder summary or when force
// is set.
func applyMerged(book *catalog.Book, m Merged, force bool) []string {
	var updated []string

	setString := func(name string, dst *string, val string) {
		if val == "" {
			return
		}
		if *dst != "" && !force {
			return
		}
		if *dst == val {
			return
		}
		*dst = val
		updated = append(updated, name)
	}
	setInt := func(name string, dst *int, val int) {
		if val == 0 {
			return
		}
		if *dst != 0 && !force {
			return
		}
		if *dst == val {
			return
		}
		*dst = val
		updated = append(updated, name)
	}

	// The placeholder summary counts as absent, but is kept when the
	// sources have nothing better to offer.
	if book.Summary == catalog.PlaceholderSummary && m.Summary != "" {
		book.Summary = ""
	}

	setString("summary", &book.Summary, m.Summary)
	setString("cover_url", &book.CoverURL, m.CoverURL)
	setString("author", &book.Author, m.Author)
	setString("publisher", &book.Publisher, m.Publisher)
	setInt("publication_year", &book.PublicationYear, m.PublicationYear)
	setInt("page_count", &book.PageCount, m.PageCount)

	return updated
}
