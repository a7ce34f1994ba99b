package completion

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// Cache is an LRU of successful completions with a fixed time to live.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]*list.Element
	order      *list.List
	maxEntries int
	ttl        time.Duration
	now        func() time.Time
}

type cacheEntry struct {
	key        string
	completion string
	expiresAt  time.Time
}

// NewCache returns nil when caching is disabled; a nil *Cache is a valid
// no-op cache.
func NewCache(maxEntries int, ttl time.Duration) *Cache {
	if maxEntries <= 0 || ttl <= 0 {
		return nil
	}

	return &Cache{
		entries:    make(map[string]*list.Element, maxEntries),
		order:      list.New(),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
	}
}

func cacheKey(provider string, prompt string) string {
	if prompt == "" {
		return ""
	}

	h := sha256.New()
	h.Write([]byte(provider))
	h.Write([]byte{0})
	h.Write([]byte(prompt))

	return hex.EncodeToString(h.Sum(nil))
}

func (c *Cache) get(key string) (string, bool) {
	if c == nil || key == "" {
		return "", false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return "", false
	}

	entry, ok := elem.Value.(*cacheEntry)
	if !ok {
		return "", false
	}

	if c.now().After(entry.expiresAt) {
		c.removeElement(elem)

		return "", false
	}

	c.order.MoveToFront(elem)

	return entry.completion, true
}

func (c *Cache) set(key string, completion string) {
	if c == nil || key == "" || completion == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	expiresAt := now.Add(c.ttl)

	if elem, ok := c.entries[key]; ok {
		entry, castOk := elem.Value.(*cacheEntry)
		if !castOk {
			return
		}

		entry.completion = completion
		entry.expiresAt = expiresAt
		c.order.MoveToFront(elem)

		return
	}

	elem := c.order.PushFront(&cacheEntry{
		key:        key,
		completion: completion,
		expiresAt:  expiresAt,
	})
	c.entries[key] = elem

	c.evictExpiredLocked(now)
	c.enforceSizeLimitLocked()
}

func (c *Cache) Len() int {
	if c == nil {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

func (c *Cache) evictExpiredLocked(now time.Time) {
	for elem := c.order.Back(); elem != nil; {
		prev := elem.Prev()

		entry, ok := elem.Value.(*cacheEntry)
		if ok && now.After(entry.expiresAt) {
			c.removeElement(elem)
		}

		elem = prev
	}
}

func (c *Cache) enforceSizeLimitLocked() {
	for len(c.entries) > c.maxEntries {
		elem := c.order.Back()
		if elem == nil {
			return
		}
		c.removeElement(elem)
	}
}

func (c *Cache) removeElement(elem *list.Element) {
	entry, ok := elem.Value.(*cacheEntry)
	if !ok {
		return
	}

	delete(c.entries, entry.key)
	c.order.Remove(elem)
}

type cachingClient struct {
	next  Client
	cache *Cache
	name  string
}

// WithCache serves repeated prompts for the provider name from cache. It is
// a no-op when cache is nil.
func WithCache(next Client, cache *Cache, name string) Client {
	if cache == nil {
		return next
	}

	return &cachingClient{next: next, cache: cache, name: name}
}

func (c *cachingClient) Complete(ctx context.Context, prompt string) (string, error) {
	key := cacheKey(c.name, prompt)

	if completion, ok := c.cache.get(key); ok {
		return completion, nil
	}

	completion, err := c.next.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}

	c.cache.set(key, completion)

	return completion, nil
}
