package recommend

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ekarhu/tropeshelf/internal/catalog"
	"github.com/ekarhu/tropeshelf/internal/enrichment"
)

// Lineage values for a candidate's origin.
const (
	LineageDatabase    = "database"
	LineageOpenLibrary = "openlibrary"
)

// minLocalCandidates is the threshold below which category requests fall
// back to external search. The similar-books feature (book context) only
// ever queries locally.
const minLocalCandidates = 3

// Candidate is a book augmented with a generated promotional blurb and a
// lineage tag. Candidates are ephemeral: constructed per request, never
// persisted.
type Candidate struct {
	Book    catalog.Book `json:"book"`
	Blurb   string       `json:"blurb"`
	Lineage string       `json:"lineage"`
}

// Request anchors a recommendation to a context.
type Request struct {
	// ContextType is one of "book", "genre", or "mood".
	ContextType string `json:"context_type"`
	// ContextID is the book id, genre name, or mood name.
	ContextID string `json:"context_id"`
	// ContextData optionally overrides the category value looked up
	// (e.g. a display name differing from the id).
	ContextData string `json:"context_data,omitempty"`
	// Limit caps the number of candidates returned.
	Limit int `json:"limit"`
}

// SubjectSearcher fills category recommendations from an external catalog
// when the local one comes up short.
type SubjectSearcher interface {
	SearchBySubject(ctx context.Context, subject string, limit int) ([]enrichment.SourceRecord, error)
}

// Assembler builds ordered candidate lists for a recommendation context.
type Assembler struct {
	store    *catalog.Store
	blurbs   *BlurbClient
	external SubjectSearcher
	cache    SessionCache
}

// NewAssembler creates an Assembler. external may be nil to disable the
// external fallback; cache may be nil to disable session caching.
func NewAssembler(store *catalog.Store, blurbs *BlurbClient, external SubjectSearcher, cache SessionCache) *Assembler {
	return &Assembler{
		store:    store,
		blurbs:   blurbs,
		external: external,
		cache:    cache,
	}
}

// Assemble returns an ordered list of candidates for the request, at most
// req.Limit long. Results are cached per session and context; a cache hit
// skips candidate selection and blurb generation entirely.
func (a *Assembler) Assemble(ctx context.Context, sessionID string, req Request) ([]Candidate, error) {
	if req.Limit <= 0 || req.Limit > 20 {
		req.Limit = 6
	}

	key := ContextKey{Type: req.ContextType, ID: req.ContextID}
	if a.cache != nil && sessionID != "" {
		if cached, ok := a.cache.Get(sessionID, key); ok {
			slog.Debug("Recommendation cache hit", "session", sessionID,
				"context_type", req.ContextType, "context_id", req.ContextID)
			return cached, nil
		}
	}

	var candidates []Candidate
	var err error
	switch req.ContextType {
	case "book":
		candidates, err = a.similarBooks(ctx, req)
	case "genre", "mood":
		candidates, err = a.categoryBooks(ctx, req)
	default:
		return nil, fmt.Errorf("unknown context type: %s", req.ContextType)
	}
	if err != nil {
		return nil, err
	}

	a.generateBlurbs(ctx, candidates)

	if a.cache != nil && sessionID != "" {
		a.cache.Set(sessionID, key, candidates)
	}
	return candidates, nil
}

// similarBooks selects candidates for a book context through four tiers,
// each appending only books not already selected, stopping early once the
// limit is reached:
//
//	tier 1: exact trope match, excluding the book itself
//	tier 2: same mood and same heat level
//	tier 3: same genre
//	tier 4: OR-query across mood, trope and genre
func (a *Assembler) similarBooks(ctx context.Context, req Request) ([]Candidate, error) {
	book, err := a.store.GetBook(ctx, req.ContextID)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{book.ID: true}
	var candidates []Candidate

	appendTier := func(books []catalog.Book, tierErr error) error {
		if tierErr != nil {
			return tierErr
		}
		for i := range books {
			if len(candidates) >= req.Limit {
				return nil
			}
			if seen[books[i].ID] {
				continue
			}
			seen[books[i].ID] = true
			candidates = append(candidates, Candidate{Book: books[i], Lineage: LineageDatabase})
		}
		return nil
	}

	if book.Trope != "" && len(candidates) < req.Limit {
		books, err := a.store.CandidatesByTrope(ctx, book.Trope, book.ID, req.Limit)
		if err := appendTier(books, err); err != nil {
			return nil, err
		}
	}
	if book.Mood != "" && book.HeatLevel != "" && len(candidates) < req.Limit {
		books, err := a.store.CandidatesByMoodAndHeat(ctx, book.Mood, book.HeatLevel, book.ID, req.Limit)
		if err := appendTier(books, err); err != nil {
			return nil, err
		}
	}
	if book.Genre != "" && len(candidates) < req.Limit {
		books, err := a.store.CandidatesByGenre(ctx, book.Genre, book.ID, req.Limit)
		if err := appendTier(books, err); err != nil {
			return nil, err
		}
	}
	if len(candidates) < req.Limit {
		books, err := a.store.CandidatesByAny(ctx, book.Mood, book.Trope, book.Genre, book.ID, req.Limit)
		if err := appendTier(books, err); err != nil {
			return nil, err
		}
	}

	return candidates, nil
}

// categoryBooks serves genre and mood contexts with a single direct-match
// query, falling back to external subject search when the local catalog
// yields fewer than minLocalCandidates.
func (a *Assembler) categoryBooks(ctx context.Context, req Request) ([]Candidate, error) {
	value := req.ContextData
	if value == "" {
		value = req.ContextID
	}

	books, err := a.store.CandidatesByCategory(ctx, req.ContextType, value, req.Limit)
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, req.Limit)
	seen := make(map[string]bool)
	for i := range books {
		if len(candidates) >= req.Limit {
			break
		}
		if seen[books[i].ID] {
			continue
		}
		seen[books[i].ID] = true
		candidates = append(candidates, Candidate{Book: books[i], Lineage: LineageDatabase})
	}

	if len(candidates) < minLocalCandidates && a.external != nil {
		remainder := req.Limit - len(candidates)
		records, err := a.external.SearchBySubject(ctx, value+" romance", remainder)
		if err != nil {
			// External fallback is best-effort; the local candidates stand.
			slog.Warn("External recommendation fallback failed", "subject", value, "error", err)
			return candidates, nil
		}
		for i := range records {
			if len(candidates) >= req.Limit {
				break
			}
			// Rating and heat level stay unset for external candidates.
			candidates = append(candidates, Candidate{
				Book: catalog.Book{
					Title:           records[i].Title,
					Author:          records[i].Author,
					Summary:         records[i].Summary,
					CoverURL:        records[i].CoverURL,
					PublicationYear: records[i].PublicationYear,
					Publisher:       records[i].Publisher,
					PageCount:       records[i].PageCount,
					Genre:           value,
				},
				Lineage: LineageOpenLibrary,
			})
		}
	}

	return candidates, nil
}

// generateBlurbs fills in every candidate's blurb. The calls run
// concurrently and settle individually: one failure degrades that candidate
// to the fallback sentence without affecting the rest.
func (a *Assembler) generateBlurbs(ctx context.Context, candidates []Candidate) {
	if a.blurbs == nil {
		for i := range candidates {
			candidates[i].Blurb = FallbackBlurb
		}
		return
	}

	var wg sync.WaitGroup
	for i := range candidates {
		wg.Add(1)
		go func(c *Candidate) {
			defer wg.Done()
			c.Blurb = a.blurbs.Blurb(ctx, &c.Book)
		}(&candidates[i])
	}
	wg.Wait()
}
