package recommend

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// ContextKey identifies one recommendation context within a session.
type ContextKey struct {
	Type string
	ID   string
}

// SessionCache prevents redundant recommendation requests for the same
// context within a browsing session. Entries are scoped to a session and
// never shared across visitors.
type SessionCache interface {
	// Get returns the cached candidates for the key, or a miss.
	Get(sessionID string, key ContextKey) ([]Candidate, bool)
	// Set stores candidates for the key, overwriting any previous entry.
	Set(sessionID string, key ContextKey, candidates []Candidate)
	// EndSession drops all entries for a session.
	EndSession(sessionID string)
}

type cacheEntry struct {
	Data      []byte
	CreatedAt time.Time
}

// MemorySessionCache is a flat in-memory key-value store keyed by
// (session, context). Entries live until the session ends; there is no
// eviction beyond overwrite-on-set. A stored entry that fails to decode is
// removed and reported as a miss.
type MemorySessionCache struct {
	mu       sync.RWMutex
	sessions map[string]map[ContextKey]cacheEntry
}

// Compile-time check that MemorySessionCache implements SessionCache.
var _ SessionCache = (*MemorySessionCache)(nil)

// NewMemorySessionCache creates an empty session cache.
func NewMemorySessionCache() *MemorySessionCache {
	return &MemorySessionCache{
		sessions: make(map[string]map[ContextKey]cacheEntry),
	}
}

// Get returns the cached candidates for the key, or a miss.
func (c *MemorySessionCache) Get(sessionID string, key ContextKey) ([]Candidate, bool) {
	c.mu.RLock()
	entry, ok := c.sessions[sessionID][key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	var candidates []Candidate
	if err := json.Unmarshal(entry.Data, &candidates); err != nil {
		// Malformed entries are treated as a miss and removed.
		slog.Warn("Dropping malformed session cache entry", "session", sessionID,
			"context_type", key.Type, "context_id", key.ID, "error", err)
		c.mu.Lock()
		delete(c.sessions[sessionID], key)
		c.mu.Unlock()
		return nil, false
	}
	return candidates, true
}

// Set stores candidates for the key, overwriting any previous entry.
func (c *MemorySessionCache) Set(sessionID string, key ContextKey, candidates []Candidate) {
	data, err := json.Marshal(candidates)
	if err != nil {
		slog.Warn("Failed to marshal candidates for session cache", "error", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sessions[sessionID] == nil {
		c.sessions[sessionID] = make(map[ContextKey]cacheEntry)
	}
	c.sessions[sessionID][key] = cacheEntry{Data: data, CreatedAt: time.Now()}
}

// EndSession drops all entries for a session.
func (c *MemorySessionCache) EndSession(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, sessionID)
}
