// Package importer loads books from CSV exports into the catalog,
// optionally enriching them against external sources on the way in.
package importer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/ekarhu/tropeshelf/internal/catalog"
	"github.com/ekarhu/tropeshelf/internal/config"
	"github.com/ekarhu/tropeshelf/internal/covers"
	"github.com/ekarhu/tropeshelf/internal/enrichment"
	"github.com/ekarhu/tropeshelf/internal/tui"
)

// Options configures one import run.
type Options struct {
	Input          string
	CatalogDB      string
	Enrich         bool
	Interactive    bool
	DownloadCovers bool
}

const candidateLimit = 5

// Run imports the CSV file into the catalog. Books already present (same
// title and author) are skipped. With Interactive set, ambiguous external
// matches are resolved through a terminal picker before the record is
// created.
func Run(opts Options) error {
	rows, err := loadCSV(opts.Input)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("no importable rows in %s", opts.Input)
	}

	store, err := catalog.Open(opts.CatalogDB)
	if err != nil {
		return fmt.Errorf("opening catalog: %w", err)
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	openLibrary := enrichment.NewOpenLibrarySource()

	var imported []catalog.Book
	var created, skipped int
	for _, row := range rows {
		existing, err := store.FindByTitleAuthor(ctx, row.Title, row.Author)
		if err != nil {
			return fmt.Errorf("duplicate check for %q: %w", row.Title, err)
		}
		if existing != nil {
			slog.Debug("Book already in catalog, skipping", "title", row.Title, "author", row.Author)
			skipped++
			continue
		}

		book := &catalog.Book{
			ID:        uuid.NewString(),
			Title:     row.Title,
			Author:    row.Author,
			Summary:   catalog.PlaceholderSummary,
			Genre:     row.Genre,
			Mood:      row.Mood,
			Trope:     row.Trope,
			HeatLevel: row.HeatLevel,
			ISBN:      row.ISBN,
		}

		if opts.Interactive {
			stop, err := resolveInteractively(ctx, openLibrary, book)
			if err != nil {
				return err
			}
			if stop {
				slog.Info("Import stopped by user", "created", created, "skipped", skipped)
				return nil
			}
		}

		if err := store.CreateBook(ctx, book); err != nil {
			return fmt.Errorf("creating %q: %w", book.Title, err)
		}
		created++
		imported = append(imported, *book)

		if opts.DownloadCovers && book.CoverURL != "" {
			if _, err := covers.Download(ctx, covers.DownloadOptions{
				URL:       book.CoverURL,
				OutputDir: config.CoverDir,
				Filename:  covers.BuildFilename(book.Title),
			}); err != nil {
				slog.Warn("Cover download failed", "title", book.Title, "error", err)
			}
		}
	}

	slog.Info("Import complete", "created", created, "skipped", skipped)

	if opts.Enrich && len(imported) > 0 {
		orchestrator := enrichment.NewOrchestrator(store,
			openLibrary,
			enrichment.NewGoogleBooksSource(),
			config.EnrichDelay)

		result, err := orchestrator.EnrichBooks(ctx, imported, config.ForceRefresh)
		if err != nil {
			return err
		}
		slog.Info("Post-import enrichment complete",
			"processed", result.Processed,
			"updated", result.Updated,
			"errors", result.Errors)
	}

	return nil
}

// resolveInteractively searches Open Library for the book and, when more
// than one match comes back, lets the user pick the right edition. The
// selected record fills in metadata the CSV row did not carry. Returns
// true when the user chose to stop the whole import.
func resolveInteractively(ctx context.Context, src *enrichment.OpenLibrarySource, book *catalog.Book) (bool, error) {
	candidates, err := src.SearchCandidates(ctx, book.Title, book.Author, candidateLimit)
	if err != nil {
		slog.Warn("Candidate search failed", "title", book.Title, "error", err)
		return false, nil
	}

	var selected *enrichment.SourceRecord
	switch len(candidates) {
	case 0:
		return false, nil
	case 1:
		selected = &candidates[0]
	default:
		result, err := tui.Select(book.Title, candidates)
		if err != nil {
			return false, fmt.Errorf("selection failed for %q: %w", book.Title, err)
		}
		switch result.Action {
		case tui.ActionStopped:
			return true, nil
		case tui.ActionSelected:
			selected = result.Selection
		default:
			return false, nil
		}
	}

	applyRecord(book, selected)
	return false, nil
}

// applyRecord fills empty book fields from an external record. Provenance
// stays unset so the enrichment pipeline still treats the book as fresh.
func applyRecord(book *catalog.Book, rec *enrichment.SourceRecord) {
	if rec == nil {
		return
	}
	if book.CoverURL == "" {
		book.CoverURL = rec.CoverURL
	}
	if book.PublicationYear == 0 {
		book.PublicationYear = rec.PublicationYear
	}
	if book.Publisher == "" {
		book.Publisher = rec.Publisher
	}
	if book.PageCount == 0 {
		book.PageCount = rec.PageCount
	}
}
