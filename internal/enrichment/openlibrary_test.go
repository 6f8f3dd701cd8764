package enrichment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/ekarhu/tropeshelf/internal/cache"
	"github.com/ekarhu/tropeshelf/internal/catalog"
)

// setupTestCache points the global lookup cache at a fresh temp database so
// tests never share cached entries.
func setupTestCache(t *testing.T) {
	t.Helper()
	require.NoError(t, cache.ResetGlobalCache())
	viper.Set("cache.dbfile", filepath.Join(t.TempDir(), "cache.db"))
	t.Cleanup(func() {
		_ = cache.ResetGlobalCache()
		viper.Set("cache.dbfile", "")
	})
}

func setupOpenLibraryServer(t *testing.T, handler http.Handler) *OpenLibrarySource {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	orig := openLibraryBaseURL
	openLibraryBaseURL = server.URL
	t.Cleanup(func() { openLibraryBaseURL = orig })

	return NewOpenLibrarySource()
}

const openLibraryMatch = `{
	"numFound": 1,
	"docs": [{
		"title": "The Hating Game",
		"author_name": ["Sally Thorne"],
		"first_publish_year": 2016,
		"publisher": ["William Morrow"],
		"number_of_pages_median": 384,
		"cover_i": 8231856
	}]
}`

func TestOpenLibrarySearch(t *testing.T) {
	setupTestCache(t)

	var requests int
	src := setupOpenLibraryServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		require.Equal(t, "The Hating Game", r.URL.Query().Get("title"))
		require.Equal(t, "Sally Thorne", r.URL.Query().Get("author"))
		require.Equal(t, "1", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(openLibraryMatch))
	}))

	record, err := src.Search(context.Background(), "The Hating Game", "Sally Thorne")
	require.NoError(t, err)
	require.NotNil(t, record)
	require.Equal(t, "The Hating Game", record.Title)
	require.Equal(t, "Sally Thorne", record.Author)
	require.Equal(t, 2016, record.PublicationYear)
	require.Equal(t, "William Morrow", record.Publisher)
	require.Equal(t, 384, record.PageCount)
	require.Equal(t, "https://covers.openlibrary.org/b/id/8231856-L.jpg", record.CoverURL)
	require.Equal(t, catalog.SourceOpenLibrary, record.SourceTag)

	// Second lookup is served from cache.
	record, err = src.Search(context.Background(), "The Hating Game", "Sally Thorne")
	require.NoError(t, err)
	require.NotNil(t, record)
	require.Equal(t, 1, requests)
}

func TestOpenLibrarySearchNotFound(t *testing.T) {
	setupTestCache(t)

	src := setupOpenLibraryServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"numFound": 0, "docs": []}`))
	}))

	record, err := src.Search(context.Background(), "Nonexistent", "")
	require.NoError(t, err)
	require.Nil(t, record)
}

func TestOpenLibrarySearchRequiresTitle(t *testing.T) {
	src := NewOpenLibrarySource()
	_, err := src.Search(context.Background(), "", "Someone")
	require.ErrorIs(t, err, ErrNoTitle)
}

func TestOpenLibrarySearchServerError(t *testing.T) {
	setupTestCache(t)

	src := setupOpenLibraryServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))

	_, err := src.Search(context.Background(), "Anything", "")
	require.Error(t, err)
}

func TestOpenLibrarySearchCandidates(t *testing.T) {
	setupTestCache(t)

	src := setupOpenLibraryServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "5", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{
			"numFound": 2,
			"docs": [
				{"title": "Book One", "author_name": ["A"], "cover_i": 1},
				{"title": "Book Two", "author_name": ["B"]}
			]
		}`))
	}))

	records, err := src.SearchCandidates(context.Background(), "Book", "", 5)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "Book One", records[0].Title)
	require.Equal(t, "https://covers.openlibrary.org/b/id/1-L.jpg", records[0].CoverURL)
	require.Empty(t, records[1].CoverURL)
}

func TestOpenLibrarySearchBySubject(t *testing.T) {
	setupTestCache(t)

	var requests int
	src := setupOpenLibraryServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		require.Equal(t, "cozy romance", r.URL.Query().Get("subject"))
		_, _ = w.Write([]byte(openLibraryMatch))
	}))

	records, err := src.SearchBySubject(context.Background(), "cozy romance", 3)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "The Hating Game", records[0].Title)

	// Cached on repeat.
	_, err = src.SearchBySubject(context.Background(), "cozy romance", 3)
	require.NoError(t, err)
	require.Equal(t, 1, requests)
}

func TestOpenLibraryPing(t *testing.T) {
	src := setupOpenLibraryServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	require.NoError(t, src.Ping(context.Background()))
}

func TestOpenLibraryMetadata(t *testing.T) {
	src := NewOpenLibrarySource()
	require.Equal(t, "Open Library", src.Name())
	require.Equal(t, catalog.SourceOpenLibrary, src.Tag())
	require.Equal(t, 1, src.Priority())
}
