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
	"github.com/ekarhu/tropeshelf/internal/ratelimit"
)

const (
	openLibraryPriority = 1
	openLibraryCoverFmt = "https://covers.openlibrary.org/b/id/%d-L.jpg"
)

var openLibraryBaseURL = "https://openlibrary.org"

// OpenLibrarySource implements the Source interface for Open Library.
// It is queried first: its structured fields (publication year, page count)
// are cleaner, and its cover identifiers are usable when present.
type OpenLibrarySource struct {
	httpClient  *http.Client
	rateLimiter *ratelimit.Limiter
	clientOnce  sync.Once
	limiterOnce sync.Once
}

// Compile-time check that OpenLibrarySource implements Source.
var _ Source = (*OpenLibrarySource)(nil)

// NewOpenLibrarySource creates a new Open Library source adapter.
func NewOpenLibrarySource() *OpenLibrarySource {
	return &OpenLibrarySource{}
}

// Name returns the human-readable name of this source.
func (s *OpenLibrarySource) Name() string {
	return "Open Library"
}

// Tag returns the provenance tag for records enriched from this source.
func (s *OpenLibrarySource) Tag() string {
	return catalog.SourceOpenLibrary
}

// Priority returns the priority for merging data (lower = higher precedence).
func (s *OpenLibrarySource) Priority() int {
	return openLibraryPriority
}

// Ping tests the connection to Open Library.
func (s *OpenLibrarySource) Ping(ctx context.Context) error {
	client := s.getHTTPClient()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, openLibraryBaseURL, nil)
	if err != nil {
		return fmt.Errorf("creating ping request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("open library ping failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("open library returned status %d", resp.StatusCode)
	}

	return nil
}

// cachedOpenLibraryResult wraps a SourceRecord with metadata for caching.
type cachedOpenLibraryResult struct {
	Record   *SourceRecord `json:"record"`
	NotFound bool          `json:"not_found"`
}

// openLibrarySearchResponse matches the /search.json response structure.
type openLibrarySearchResponse struct {
	NumFound int              `json:"numFound"`
	Docs     []openLibraryDoc `json:"docs"`
}

type openLibraryDoc struct {
	Title               string   `json:"title"`
	AuthorName          []string `json:"author_name"`
	FirstPublishYear    int      `json:"first_publish_year"`
	Publisher           []string `json:"publisher"`
	NumberOfPagesMedian int      `json:"number_of_pages_median"`
	CoverID             int      `json:"cover_i"`
}

func docToRecord(doc openLibraryDoc) SourceRecord {
	record := SourceRecord{
		Title:           doc.Title,
		PublicationYear: doc.FirstPublishYear,
		PageCount:       doc.NumberOfPagesMedian,
		SourceTag:       catalog.SourceOpenLibrary,
	}
	if len(doc.AuthorName) > 0 {
		record.Author = doc.AuthorName[0]
	}
	if len(doc.Publisher) > 0 {
		record.Publisher = doc.Publisher[0]
	}
	if doc.CoverID > 0 {
		record.CoverURL = fmt.Sprintf(openLibraryCoverFmt, doc.CoverID)
	}
	return record
}

// Search fetches book data from Open Library by title and optional author.
func (s *OpenLibrarySource) Search(ctx context.Context, title, author string) (*SourceRecord, error) {
	if title == "" {
		return nil, ErrNoTitle
	}

	key := lookupKey(title, author)
	cached, _, err := cache.GetOrFetchWithTTL("openlibrary_cache", key, func() (*cachedOpenLibraryResult, error) {
		return s.fetchFromAPI(ctx, title, author)
	}, cache.SelectNegativeCacheTTL(func(r *cachedOpenLibraryResult) bool {
		return r.NotFound
	}))

	if err != nil {
		return nil, err
	}

	if cached.NotFound {
		return nil, nil // not found is not an error, the other source may still match
	}

	return cached.Record, nil
}

func (s *OpenLibrarySource) fetchFromAPI(ctx context.Context, title, author string) (*cachedOpenLibraryResult, error) {
	limiter := s.getRateLimiter()
	if err := limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	client := s.getHTTPClient()

	params := url.Values{}
	params.Set("title", title)
	if author != "" {
		params.Set("author", author)
	}
	params.Set("limit", "1")
	searchURL := fmt.Sprintf("%s/search.json?%s", openLibraryBaseURL, params.Encode())

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

	var result openLibrarySearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if result.NumFound == 0 || len(result.Docs) == 0 {
		return &cachedOpenLibraryResult{NotFound: true}, nil
	}

	record := docToRecord(result.Docs[0])
	return &cachedOpenLibraryResult{Record: &record}, nil
}

// SearchCandidates returns up to limit title/author matches without
// consulting the lookup cache. Used by the interactive importer when a
// title is ambiguous and the user should pick the right edition.
func (s *OpenLibrarySource) SearchCandidates(ctx context.Context, title, author string, limit int) ([]SourceRecord, error) {
	if title == "" {
		return nil, ErrNoTitle
	}
	if limit <= 0 {
		limit = 5
	}

	limiter := s.getRateLimiter()
	if err := limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	client := s.getHTTPClient()

	params := url.Values{}
	params.Set("title", title)
	if author != "" {
		params.Set("author", author)
	}
	params.Set("limit", fmt.Sprintf("%d", limit))
	searchURL := fmt.Sprintf("%s/search.json?%s", openLibraryBaseURL, params.Encode())

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

	var result openLibrarySearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	records := make([]SourceRecord, 0, len(result.Docs))
	for _, doc := range result.Docs {
		records = append(records, docToRecord(doc))
	}
	return records, nil
}

// SearchBySubject returns up to limit records matching a subject term.
// Used by the recommendation assembler when the local catalog comes up
// short for a category request.
func (s *OpenLibrarySource) SearchBySubject(ctx context.Context, subject string, limit int) ([]SourceRecord, error) {
	if subject == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 5
	}

	key := fmt.Sprintf("%s|%d", strings.ToLower(subject), limit)
	cached, _, err := cache.GetOrFetchWithTTL("subject_search_cache", key, func() ([]SourceRecord, error) {
		return s.fetchSubject(ctx, subject, limit)
	}, cache.SelectNegativeCacheTTL(func(r []SourceRecord) bool {
		return len(r) == 0
	}))
	if err != nil {
		return nil, err
	}
	return cached, nil
}

func (s *OpenLibrarySource) fetchSubject(ctx context.Context, subject string, limit int) ([]SourceRecord, error) {
	limiter := s.getRateLimiter()
	if err := limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	client := s.getHTTPClient()

	params := url.Values{}
	params.Set("subject", subject)
	params.Set("limit", fmt.Sprintf("%d", limit))
	searchURL := fmt.Sprintf("%s/search.json?%s", openLibraryBaseURL, params.Encode())

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

	var result openLibrarySearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	records := make([]SourceRecord, 0, len(result.Docs))
	for _, doc := range result.Docs {
		records = append(records, docToRecord(doc))
	}
	return records, nil
}

func (s *OpenLibrarySource) getHTTPClient() *http.Client {
	s.clientOnce.Do(func() {
		s.httpClient = &http.Client{Timeout: 10 * time.Second}
	})
	return s.httpClient
}

func (s *OpenLibrarySource) getRateLimiter() *ratelimit.Limiter {
	s.limiterOnce.Do(func() {
		s.rateLimiter = ratelimit.New("OpenLibrary", 1)
	})
	return s.rateLimiter
}

// lookupKey builds a stable cache key from a title and optional author.
func lookupKey(title, author string) string {
	key := strings.ToLower(strings.TrimSpace(title))
	if author != "" {
		key += "|" + strings.ToLower(strings.TrimSpace(author))
	}
	return key
}
