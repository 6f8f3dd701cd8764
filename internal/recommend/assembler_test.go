package recommend

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ekarhu/tropeshelf/internal/catalog"
	"github.com/ekarhu/tropeshelf/internal/enrichment"
)

type fakeSearcher struct {
	records []enrichment.SourceRecord
	err     error
	calls   int
	subject string
}

func (f *fakeSearcher) SearchBySubject(_ context.Context, subject string, _ int) ([]enrichment.SourceRecord, error) {
	f.calls++
	f.subject = subject
	return f.records, f.err
}

func newTestStore(t *testing.T) *catalog.Store {
	t.Helper()
	store, err := catalog.Open(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedBook(t *testing.T, store *catalog.Store, mutate func(*catalog.Book)) *catalog.Book {
	t.Helper()
	book := &catalog.Book{
		ID:        uuid.NewString(),
		Title:     "Anchor",
		Author:    "Author",
		Genre:     "contemporary",
		Mood:      "cozy",
		Trope:     "grumpy-sunshine",
		HeatLevel: catalog.HeatHot,
	}
	if mutate != nil {
		mutate(book)
	}
	require.NoError(t, store.CreateBook(context.Background(), book))
	return book
}

func TestAssembleSimilarBooks(t *testing.T) {
	store := newTestStore(t)
	anchor := seedBook(t, store, nil)
	tropeMatch := seedBook(t, store, func(b *catalog.Book) {
		b.ID = uuid.NewString()
		b.Title = "Trope Match"
		b.Rating = 4.9
	})
	genreMatch := seedBook(t, store, func(b *catalog.Book) {
		b.ID = uuid.NewString()
		b.Title = "Genre Match"
		b.Trope = "second-chance"
		b.Mood = "angsty"
		b.HeatLevel = catalog.HeatSweet
	})

	a := NewAssembler(store, nil, nil, nil)
	candidates, err := a.Assemble(context.Background(), "", Request{
		ContextType: "book",
		ContextID:   anchor.ID,
		Limit:       10,
	})
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	// The trope tier fills first, the anchor itself never appears, and the
	// genre tier contributes the rest without duplicating earlier picks.
	require.Equal(t, tropeMatch.ID, candidates[0].Book.ID)
	require.Equal(t, genreMatch.ID, candidates[1].Book.ID)
	for _, c := range candidates {
		require.NotEqual(t, anchor.ID, c.Book.ID)
		require.Equal(t, LineageDatabase, c.Lineage)
		require.Equal(t, FallbackBlurb, c.Blurb)
	}
}

func TestAssembleUnknownBook(t *testing.T) {
	store := newTestStore(t)
	a := NewAssembler(store, nil, nil, nil)

	_, err := a.Assemble(context.Background(), "", Request{
		ContextType: "book",
		ContextID:   uuid.NewString(),
	})
	require.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestAssembleUnknownContextType(t *testing.T) {
	store := newTestStore(t)
	a := NewAssembler(store, nil, nil, nil)

	_, err := a.Assemble(context.Background(), "", Request{
		ContextType: "author",
		ContextID:   "whoever",
	})
	require.Error(t, err)
}

func TestAssembleLimitBounds(t *testing.T) {
	store := newTestStore(t)
	for i := 0; i < 8; i++ {
		seedBook(t, store, func(b *catalog.Book) {
			b.ID = uuid.NewString()
			b.Title = uuid.NewString()
		})
	}

	a := NewAssembler(store, nil, nil, nil)

	// Zero and out-of-range limits fall back to the default of six.
	for _, limit := range []int{0, -1, 21} {
		candidates, err := a.Assemble(context.Background(), "", Request{
			ContextType: "genre",
			ContextID:   "contemporary",
			Limit:       limit,
		})
		require.NoError(t, err)
		require.Len(t, candidates, 6)
	}
}

func TestAssembleCategoryExternalFallback(t *testing.T) {
	store := newTestStore(t)
	seedBook(t, store, nil) // one local candidate, below the threshold

	external := &fakeSearcher{records: []enrichment.SourceRecord{
		{Title: "External One", Author: "Someone", CoverURL: "https://covers.example/1.jpg"},
		{Title: "External Two"},
	}}

	a := NewAssembler(store, nil, external, nil)
	candidates, err := a.Assemble(context.Background(), "", Request{
		ContextType: "genre",
		ContextID:   "contemporary",
		Limit:       6,
	})
	require.NoError(t, err)
	require.Equal(t, 1, external.calls)
	require.Equal(t, "contemporary romance", external.subject)
	require.Len(t, candidates, 3)

	require.Equal(t, LineageDatabase, candidates[0].Lineage)
	require.Equal(t, LineageOpenLibrary, candidates[1].Lineage)
	require.Equal(t, "External One", candidates[1].Book.Title)
	// External candidates inherit the requested category and carry no rating.
	require.Equal(t, "contemporary", candidates[1].Book.Genre)
	require.Zero(t, candidates[1].Book.Rating)
	require.Empty(t, candidates[1].Book.HeatLevel)
}

func TestAssembleCategoryExternalFailureSoft(t *testing.T) {
	store := newTestStore(t)
	local := seedBook(t, store, nil)

	external := &fakeSearcher{err: errors.New("upstream down")}

	a := NewAssembler(store, nil, external, nil)
	candidates, err := a.Assemble(context.Background(), "", Request{
		ContextType: "genre",
		ContextID:   "contemporary",
	})
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	require.Equal(t, local.ID, candidates[0].Book.ID)
}

func TestAssembleNoExternalFallbackWhenEnoughLocal(t *testing.T) {
	store := newTestStore(t)
	for i := 0; i < 3; i++ {
		seedBook(t, store, func(b *catalog.Book) {
			b.ID = uuid.NewString()
			b.Title = uuid.NewString()
		})
	}

	external := &fakeSearcher{records: []enrichment.SourceRecord{{Title: "Should Not Appear"}}}

	a := NewAssembler(store, nil, external, nil)
	candidates, err := a.Assemble(context.Background(), "", Request{
		ContextType: "genre",
		ContextID:   "contemporary",
		Limit:       6,
	})
	require.NoError(t, err)
	require.Len(t, candidates, 3)
	require.Zero(t, external.calls)
}

func TestAssembleSessionCaching(t *testing.T) {
	store := newTestStore(t)
	anchor := seedBook(t, store, nil)
	seedBook(t, store, func(b *catalog.Book) {
		b.ID = uuid.NewString()
		b.Title = "Similar"
	})

	cache := NewMemorySessionCache()
	a := NewAssembler(store, nil, nil, cache)

	req := Request{ContextType: "book", ContextID: anchor.ID, Limit: 6}

	first, err := a.Assemble(context.Background(), "session-1", req)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// A new matching book appears, but the cached result is served.
	seedBook(t, store, func(b *catalog.Book) {
		b.ID = uuid.NewString()
		b.Title = "Newcomer"
	})

	second, err := a.Assemble(context.Background(), "session-1", req)
	require.NoError(t, err)
	require.Len(t, second, 1)
	require.Equal(t, first[0].Book.ID, second[0].Book.ID)

	// A different session sees the fresh catalog.
	third, err := a.Assemble(context.Background(), "session-2", req)
	require.NoError(t, err)
	require.Len(t, third, 2)

	// Ending the first session clears its entries.
	cache.EndSession("session-1")
	fourth, err := a.Assemble(context.Background(), "session-1", req)
	require.NoError(t, err)
	require.Len(t, fourth, 2)
}
