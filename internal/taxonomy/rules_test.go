package taxonomy

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ekarhu/tropeshelf/internal/catalog"
)

func TestApplyFillsMissingOnly(t *testing.T) {
	book := &catalog.Book{
		Title:   "The Unhoneymooners",
		Summary: "Sworn enemies end up on a honeymoon together.",
		Mood:    "whimsical",
	}

	changed := DefaultRules.Apply(book)
	require.True(t, changed)
	require.Equal(t, "enemies-to-lovers", book.Trope)
	// The existing mood is never overwritten.
	require.Equal(t, "whimsical", book.Mood)
}

func TestApplyFirstMatchWins(t *testing.T) {
	book := &catalog.Book{
		Title:   "Snowed In",
		Summary: "Enemies stranded in a cabin with one bed.",
	}

	changed := DefaultRules.Apply(book)
	require.True(t, changed)
	// The enemies rule comes first and fills both fields.
	require.Equal(t, "enemies-to-lovers", book.Trope)
	require.Equal(t, "angsty", book.Mood)
}

func TestApplyNoMatch(t *testing.T) {
	book := &catalog.Book{Title: "Untitled", Summary: "Nothing notable."}
	require.False(t, DefaultRules.Apply(book))
	require.Empty(t, book.Mood)
	require.Empty(t, book.Trope)
}

func TestApplyFullyClassifiedNoop(t *testing.T) {
	book := &catalog.Book{
		Title:   "Enemies Forever",
		Summary: "enemies everywhere",
		Mood:    "dark",
		Trope:   "second-chance",
	}
	require.False(t, DefaultRules.Apply(book))
}

func TestLoadRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
rules:
  - keywords: ["bodyguard", "protector"]
    trope: forced-proximity
    mood: dark
`), 0o644))

	rs, err := LoadRules(path)
	require.NoError(t, err)
	require.Len(t, rs.Rules, 1)

	book := &catalog.Book{Title: "Her Bodyguard"}
	require.True(t, rs.Apply(book))
	require.Equal(t, "forced-proximity", book.Trope)
	require.Equal(t, "dark", book.Mood)
}

func TestLoadRulesErrors(t *testing.T) {
	_, err := LoadRules(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	empty := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("rules: []\n"), 0o644))
	_, err = LoadRules(empty)
	require.Error(t, err)
}

func TestRecategorizerRun(t *testing.T) {
	store, err := catalog.Open(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()

	unclassified := &catalog.Book{
		ID:      uuid.NewString(),
		Title:   "Faking It",
		Author:  "A",
		Summary: "A fake dating arrangement gets complicated.",
	}
	require.NoError(t, store.CreateBook(ctx, unclassified))

	hopeless := &catalog.Book{
		ID:      uuid.NewString(),
		Title:   "Opaque",
		Author:  "B",
		Summary: "No recognizable keywords here.",
	}
	require.NoError(t, store.CreateBook(ctx, hopeless))

	classified := &catalog.Book{
		ID:     uuid.NewString(),
		Title:  "Done Already",
		Author: "C",
		Mood:   "cozy",
		Trope:  "small-town",
	}
	require.NoError(t, store.CreateBook(ctx, classified))

	result, err := NewRecategorizer(store, nil).Run(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, 2, result.Scanned)
	require.Equal(t, 1, result.Updated)

	got, err := store.GetBook(ctx, unclassified.ID)
	require.NoError(t, err)
	require.Equal(t, "fake-dating", got.Trope)
	require.Equal(t, "whimsical", got.Mood)
}

func TestVocabularies(t *testing.T) {
	require.True(t, ValidMood("cozy"))
	require.False(t, ValidMood("melancholy"))
	require.True(t, ValidGenre("fantasy"))
	require.False(t, ValidGenre("cookbook"))
	require.True(t, ValidTrope("fake-dating"))
	require.False(t, ValidTrope("love-triangle"))
	require.True(t, ValidHeatLevel(catalog.HeatScorching))
	require.False(t, ValidHeatLevel("volcanic"))
}
