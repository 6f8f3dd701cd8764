package cache

// SQL schemas for lookup cache tables.
// All cache tables use "cache_key" as the primary key column for consistency.

// OpenLibraryCacheSchema defines the schema for Open Library search result cache
const OpenLibraryCacheSchema = `
CREATE TABLE IF NOT EXISTS openlibrary_cache (
	cache_key TEXT PRIMARY KEY NOT NULL,
	data TEXT NOT NULL,
	cached_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_openlibrary_cached_at ON openlibrary_cache(cached_at);
`

// GoogleBooksCacheSchema defines the schema for Google Books search result cache
const GoogleBooksCacheSchema = `
CREATE TABLE IF NOT EXISTS googlebooks_cache (
	cache_key TEXT PRIMARY KEY NOT NULL,
	data TEXT NOT NULL,
	cached_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_googlebooks_cached_at ON googlebooks_cache(cached_at);
`

// SubjectSearchCacheSchema defines the schema for Open Library subject search cache,
// used when recommendation requests fall back to external search.
const SubjectSearchCacheSchema = `
CREATE TABLE IF NOT EXISTS subject_search_cache (
	cache_key TEXT PRIMARY KEY NOT NULL,
	data TEXT NOT NULL,
	cached_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_subject_search_cached_at ON subject_search_cache(cached_at);
`

// AllCacheSchemas contains all cache table schemas for easy initialization
var AllCacheSchemas = []string{
	OpenLibraryCacheSchema,
	GoogleBooksCacheSchema,
	SubjectSearchCacheSchema,
}

// ValidCacheTableNames is the whitelist of allowed cache table names.
// Used to prevent SQL injection when interpolating table names.
var ValidCacheTableNames = map[string]bool{
	"openlibrary_cache":    true,
	"googlebooks_cache":    true,
	"subject_search_cache": true,
}
