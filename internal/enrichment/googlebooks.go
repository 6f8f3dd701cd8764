package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ekarhu/tropeshelf/internal/cache"
	"github.com/ekarhu/tropeshelf/internal/catalog"
	"github.com/ekarhu/tropeshelf/internal/config"
	"github.com/ekarhu/tropeshelf/internal/ratelimit"
)

const googleBooksPriority = 2

var googleBooksBaseURL = "https://www.googleapis.com/books/v1"

// GoogleBooksSource implements the Source interface for the Google Books
// API. It is queried second, primarily for its superior free-text
// descriptions and multi-resolution cover images.
type GoogleBooksSource struct {
	httpClient  *http.Client
	rateLimiter *ratelimit.Limiter
	clientOnce  sync.Once
	limiterOnce sync.Once
}

// Compile-time check that GoogleBooksSource implements Source.
var _ Source = (*GoogleBooksSource)(nil)

// NewGoogleBooksSource creates a new Google Books source adapter.
func NewGoogleBooksSource() *GoogleBooksSource {
	return &GoogleBooksSource{}
}

// Name returns the human-readable name of this source.
func (s *GoogleBooksSource) Name() string {
	return "Google Books"
}

// Tag returns the provenance tag for records enriched from this source.
func (s *GoogleBooksSource) Tag() string {
	return catalog.SourceGoogleBooks
}

// Priority returns the priority for merging data (lower = higher precedence).
func (s *GoogleBooksSource) Priority() int {
	return googleBooksPriority
}

// Ping tests the connection to the Google Books API.
func (s *GoogleBooksSource) Ping(ctx context.Context) error {
	pingURL := fmt.Sprintf("%s/volumes?q=intitle:pride&maxResults=1", googleBooksBaseURL)

	client := s.getHTTPClient()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pingURL, nil)
	if err != nil {
		return fmt.Errorf("creating ping request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("google books ping failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("google books returned status %d", resp.StatusCode)
	}

	return nil
}

// cachedGoogleBooksResult wraps a SourceRecord with metadata for caching.
type cachedGoogleBooksResult struct {
	Record   *SourceRecord `json:"record"`
	NotFound bool          `json:"not_found"`
}

// googleBooksResponse matches the Google Books API response structure.
type googleBooksResponse struct {
	TotalItems int `json:"totalItems"`
	Items      []struct {
		VolumeInfo struct {
			Title         string   `json:"title"`
			Authors       []string `json:"authors"`
			Publisher     string   `json:"publisher"`
			PublishedDate string   `json:"publishedDate"`
			Description   string   `json:"description"`
			PageCount     int      `json:"pageCount"`
			ImageLinks    struct {
				ExtraLarge     string `json:"extraLarge"`
				Large          string `json:"large"`
				Medium         string `json:"medium"`
				Thumbnail      string `json:"thumbnail"`
				SmallThumbnail string `json:"smallThumbnail"`
			} `json:"imageLinks"`
		} `json:"volumeInfo"`
	} `json:"items"`
}

// Search fetches book data from the Google Books API by title and optional
// author.
func (s *GoogleBooksSource) Search(ctx context.Context, title, author string) (*SourceRecord, error) {
	if title == "" {
		return nil, ErrNoTitle
	}

	key := lookupKey(title, author)
	cached, _, err := cache.GetOrFetchWithTTL("googlebooks_cache", key, func() (*cachedGoogleBooksResult, error) {
		return s.fetchFromAPI(ctx, title, author)
	}, cache.SelectNegativeCacheTTL(func(r *cachedGoogleBooksResult) bool {
		return r.NotFound
	}))

	if err != nil {
		return nil, err
	}

	if cached.NotFound {
		return nil, nil
	}

	return cached.Record, nil
}

func (s *GoogleBooksSource) fetchFromAPI(ctx context.Context, title, author string) (*cachedGoogleBooksResult, error) {
	limiter := s.getRateLimiter()
	if err := limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	client := s.getHTTPClient()

	query := fmt.Sprintf("intitle:%q", title)
	if author != "" {
		query += fmt.Sprintf(" inauthor:%q", author)
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("maxResults", "1")
	if config.GoogleBooksAPIKey != "" {
		params.Set("key", config.GoogleBooksAPIKey)
	}
	searchURL := fmt.Sprintf("%s/volumes?%s", googleBooksBaseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var result googleBooksResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if result.TotalItems == 0 || len(result.Items) == 0 {
		return &cachedGoogleBooksResult{NotFound: true}, nil
	}

	// Use first item (best match)
	vol := result.Items[0].VolumeInfo

	record := &SourceRecord{
		Title:     vol.Title,
		Summary:   vol.Description,
		Publisher: vol.Publisher,
		PageCount: vol.PageCount,
		SourceTag: catalog.SourceGoogleBooks,
	}

	if len(vol.Authors) > 0 {
		record.Author = vol.Authors[0]
	}
	record.PublicationYear = parseYear(vol.PublishedDate)

	// Covers come at multiple resolutions; take the best available.
	for _, candidate := range []string{
		vol.ImageLinks.ExtraLarge,
		vol.ImageLinks.Large,
		vol.ImageLinks.Medium,
		vol.ImageLinks.Thumbnail,
		vol.ImageLinks.SmallThumbnail,
	} {
		if candidate != "" {
			record.CoverURL = secureURL(candidate)
			break
		}
	}

	return &cachedGoogleBooksResult{Record: record}, nil
}

func (s *GoogleBooksSource) getHTTPClient() *http.Client {
	s.clientOnce.Do(func() {
		s.httpClient = &http.Client{Timeout: 10 * time.Second}
	})
	return s.httpClient
}

func (s *GoogleBooksSource) getRateLimiter() *ratelimit.Limiter {
	s.limiterOnce.Do(func() {
		s.rateLimiter = ratelimit.New("GoogleBooks", 1)
	})
	return s.rateLimiter
}

// secureURL rewrites plain-http image links to https.
func secureURL(raw string) string {
	if strings.HasPrefix(raw, "http://") {
		return "https://" + strings.TrimPrefix(raw, "http://")
	}
	return raw
}

// parseYear extracts the year from a publishedDate, which Google Books
// returns as "2006", "2006-01" or "2006-01-02".
func parseYear(date string) int {
	if len(date) < 4 {
		return 0
	}
	var year int
	if _, err := fmt.Sscanf(date[:4], "%d", &year); err != nil {
		return 0
	}
	return year
}
