package market

import (
	"sync"
	"time"
)

// QuestionCache is a TTL cache of market ID -> question text. Bet history only
// carries market IDs on Manifold, so resolving questions would otherwise cost
// one API call per bet.
type QuestionCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

type cacheEntry struct {
	question  string
	fetchedAt time.Time
}

func NewQuestionCache(ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *QuestionCache) Get(id string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[id]
	if !ok || c.now().Sub(entry.fetchedAt) > c.ttl {
		return "", false
	}
	return entry.question, true
}

func (c *QuestionCache) Set(id, question string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[id] = cacheEntry{
		question:  question,
		fetchedAt: c.now(),
	}
}

// SetAll seeds the cache from a market listing.
func (c *QuestionCache) SetAll(markets []Market) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for _, m := range markets {
		c.entries[m.ID] = cacheEntry{question: m.Question, fetchedAt: now}
	}
}

// Len returns the number of non-expired entries.
func (c *QuestionCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.now()
	n := 0
	for _, entry := range c.entries {
		if now.Sub(entry.fetchedAt) <= c.ttl {
			n++
		}
	}
	return n
}
