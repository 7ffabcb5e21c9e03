package llm

import (
	"sync"
	"time"

	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/normalize"
)

// DefaultCacheTTL is how long a suggestion is reused for an identical description.
const DefaultCacheTTL = 15 * time.Minute

// cacheEntry represents a cached classification suggestion.
type cacheEntry struct {
	expiry     time.Time
	suggestion model.ClassificationSuggestion
}

// suggestionCache remembers suggestions by cleaned description and direction
// so repeated merchants are sent to the provider once. Expired entries are
// dropped on read.
type suggestionCache struct {
	entries map[string]cacheEntry
	now     func() time.Time
	ttl     time.Duration
	mu      sync.Mutex
}

// newSuggestionCache creates a cache with the given TTL. A negative TTL
// disables caching; zero selects DefaultCacheTTL.
func newSuggestionCache(ttl time.Duration) *suggestionCache {
	if ttl < 0 {
		return nil
	}
	if ttl == 0 {
		ttl = DefaultCacheTTL
	}
	return &suggestionCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// cacheKey identifies transactions that should share a suggestion. Blank
// descriptions get no key and are never shared.
func cacheKey(txn model.Transaction) string {
	cleaned := normalize.Fold(normalize.Description(txn.Description))
	if cleaned == "" {
		return ""
	}
	return string(txn.Type) + "|" + cleaned
}

// get returns the cached suggestion for key. A nil cache never hits.
func (c *suggestionCache) get(key string) (model.ClassificationSuggestion, bool) {
	if c == nil {
		return model.ClassificationSuggestion{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return model.ClassificationSuggestion{}, false
	}
	if c.now().After(entry.expiry) {
		delete(c.entries, key)
		return model.ClassificationSuggestion{}, false
	}
	return entry.suggestion, true
}

// set stores a suggestion. Fallbacks are never cached so a later run can retry them.
func (c *suggestionCache) set(key string, suggestion model.ClassificationSuggestion) {
	if c == nil || suggestion.ConfidenceScore == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{suggestion: suggestion, expiry: c.now().Add(c.ttl)}
}

// size returns the number of entries, expired or not.
func (c *suggestionCache) size() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
