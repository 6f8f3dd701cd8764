package enrichment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ekarhu/tropeshelf/internal/catalog"
)

func setupGoogleBooksServer(t *testing.T, handler http.Handler) *GoogleBooksSource {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	orig := googleBooksBaseURL
	googleBooksBaseURL = server.URL
	t.Cleanup(func() { googleBooksBaseURL = orig })

	return NewGoogleBooksSource()
}

const googleBooksMatch = `{
	"totalItems": 1,
	"items": [{
		"volumeInfo": {
			"title": "Beach Read",
			"authors": ["Emily Henry"],
			"publisher": "Berkley",
			"publishedDate": "2020-05-19",
			"description": "Two rival writers swap genres for a summer.",
			"pageCount": 361,
			"imageLinks": {
				"thumbnail": "http://books.google.com/thumb.jpg",
				"smallThumbnail": "http://books.google.com/small.jpg"
			}
		}
	}]
}`

func TestGoogleBooksSearch(t *testing.T) {
	setupTestCache(t)

	src := setupGoogleBooksServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		require.Contains(t, q, `intitle:"Beach Read"`)
		require.Contains(t, q, `inauthor:"Emily Henry"`)
		_, _ = w.Write([]byte(googleBooksMatch))
	}))

	record, err := src.Search(context.Background(), "Beach Read", "Emily Henry")
	require.NoError(t, err)
	require.NotNil(t, record)
	require.Equal(t, "Beach Read", record.Title)
	require.Equal(t, "Emily Henry", record.Author)
	require.Equal(t, "Two rival writers swap genres for a summer.", record.Summary)
	require.Equal(t, "Berkley", record.Publisher)
	require.Equal(t, 361, record.PageCount)
	require.Equal(t, 2020, record.PublicationYear)
	require.Equal(t, catalog.SourceGoogleBooks, record.SourceTag)
}

func TestGoogleBooksCoverLadder(t *testing.T) {
	setupTestCache(t)

	src := setupGoogleBooksServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"totalItems": 1,
			"items": [{
				"volumeInfo": {
					"title": "Covered",
					"imageLinks": {
						"large": "http://books.google.com/large.jpg",
						"thumbnail": "http://books.google.com/thumb.jpg"
					}
				}
			}]
		}`))
	}))

	record, err := src.Search(context.Background(), "Covered", "")
	require.NoError(t, err)
	require.NotNil(t, record)
	// The largest available resolution wins, rewritten to https.
	require.Equal(t, "https://books.google.com/large.jpg", record.CoverURL)
}

func TestGoogleBooksSearchNotFound(t *testing.T) {
	setupTestCache(t)

	src := setupGoogleBooksServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"totalItems": 0}`))
	}))

	record, err := src.Search(context.Background(), "Nothing Here", "")
	require.NoError(t, err)
	require.Nil(t, record)
}

func TestGoogleBooksSearchRequiresTitle(t *testing.T) {
	src := NewGoogleBooksSource()
	_, err := src.Search(context.Background(), "", "")
	require.ErrorIs(t, err, ErrNoTitle)
}

func TestGoogleBooksMetadata(t *testing.T) {
	src := NewGoogleBooksSource()
	require.Equal(t, "Google Books", src.Name())
	require.Equal(t, catalog.SourceGoogleBooks, src.Tag())
	require.Equal(t, 2, src.Priority())
}

func TestParseYear(t *testing.T) {
	tests := []struct {
		date string
		want int
	}{
		{"2020-05-19", 2020},
		{"2016", 2016},
		{"1999-01", 1999},
		{"", 0},
		{"abc", 0},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, parseYear(tt.date), "date %q", tt.date)
	}
}

func TestSecureURL(t *testing.T) {
	require.Equal(t, "https://x.com/a.jpg", secureURL("http://x.com/a.jpg"))
	require.Equal(t, "https://x.com/a.jpg", secureURL("https://x.com/a.jpg"))
}
