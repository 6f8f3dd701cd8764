package enrichment

import "github.com/ekarhu/tropeshelf/internal/catalog"

// Merged is the outcome of combining both source adapters' results for one
// book. Source is always set to a terminal provenance value.
type Merged struct {
	Title           string
	Author          string
	Summary         string
	CoverURL        string
	PublicationYear int
	Publisher       string
	PageCount       int
	Source          string
}

// Merge combines the Open Library result (a) and the Google Books result (b)
// under the fixed precedence rules. It is a pure function with no side
// effects. The rules apply in order:
//
//  1. Neither source resolved: Source = not_found.
//  2. Base fields come from whichever source resolved first; Open Library
//     takes precedence when both matched.
//  3. The free-text summary is always preferred from Google Books when it
//     returned one. When that combines fields from two sources, Source is
//     upgraded to hybrid.
//  4. A missing cover, or a cover that came from Open Library while Google
//     Books has one, is overwritten by the Google Books cover.
func Merge(a, b *SourceRecord) Merged {
	aEmpty := a.Empty()
	bEmpty := b.Empty()

	if aEmpty && bEmpty {
		return Merged{Source: catalog.SourceNotFound}
	}

	var m Merged
	base := a
	if aEmpty {
		base = b
	}

	m.Title = base.Title
	m.Author = base.Author
	m.Summary = base.Summary
	m.CoverURL = base.CoverURL
	m.PublicationYear = base.PublicationYear
	m.Publisher = base.Publisher
	m.PageCount = base.PageCount
	m.Source = base.SourceTag

	if !bEmpty && b.Summary != "" {
		m.Summary = b.Summary
		if base == a {
			m.Source = catalog.SourceHybrid
		}
	}

	if !bEmpty && b.CoverURL != "" {
		if m.CoverURL == "" || base == a {
			m.CoverURL = b.CoverURL
		}
	}

	return m
}
