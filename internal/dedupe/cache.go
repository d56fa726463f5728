// ABOUTME: TTL cache of recently redeemed OAuth authorization codes
// ABOUTME: Lets the callback handler refuse a replayed code without contacting Miro again

package dedupe

import (
	"container/list"
	"crypto/sha256"
	"sync"
	"time"
)

// Defaults used by the gateway. Miro codes expire within minutes.
const (
	DefaultTTL     = 10 * time.Minute
	DefaultMaxSize = 1024
)

// digest keeps raw authorization codes out of memory.
type digest [sha256.Size]byte

func digestOf(key string) digest {
	return digest(sha256.Sum256([]byte(key)))
}

type cacheEntry struct {
	claimed time.Time
	element *list.Element
}

// Cache remembers claimed keys for a fixed TTL, bounded in size. The oldest
// claim is evicted first when full. Safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	seen    map[digest]*cacheEntry
	order   *list.List // claim order, oldest at front
	ttl     time.Duration
	maxSize int
	now     func() time.Time
	done    chan struct{}
	closed  bool
}

// New creates a cache and starts its background sweeper.
func New(ttl time.Duration, maxSize int) *Cache {
	if maxSize < 1 {
		maxSize = 1
	}
	c := &Cache{
		seen:    make(map[digest]*cacheEntry),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go c.sweep()
	return c
}

// Claim marks key as in use. It returns false if key was already claimed
// within the TTL. Check and mark happen under one lock, so of several
// concurrent callers exactly one wins.
func (c *Cache) Claim(key string) bool {
	d := digestOf(key)

	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.seen[d]; ok {
		if c.now().Sub(entry.claimed) < c.ttl {
			return false
		}
		c.removeLocked(d, entry)
	}

	if len(c.seen) >= c.maxSize {
		c.evictOldest()
	}
	c.seen[d] = &cacheEntry{claimed: c.now(), element: c.order.PushBack(d)}
	return true
}

// Release forgets key so it can be claimed again, e.g. after a transient failure.
func (c *Cache) Release(key string) {
	d := digestOf(key)

	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.seen[d]; ok {
		c.removeLocked(d, entry)
	}
}

// Len returns the number of tracked keys, including expired ones not yet swept.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

// removeLocked must be called with mu held.
func (c *Cache) removeLocked(d digest, entry *cacheEntry) {
	c.order.Remove(entry.element)
	delete(c.seen, d)
}

// evictOldest must be called with mu held.
func (c *Cache) evictOldest() {
	front := c.order.Front()
	if front == nil {
		return
	}
	c.order.Remove(front)
	delete(c.seen, front.Value.(digest))
}

func (c *Cache) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.removeExpired()
		case <-c.done:
			return
		}
	}
}

// removeExpired drops every entry older than the TTL. Entries are in claim
// order, so it stops at the first live one.
func (c *Cache) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for front := c.order.Front(); front != nil; front = c.order.Front() {
		d := front.Value.(digest)
		entry, ok := c.seen[d]
		if !ok {
			c.order.Remove(front)
			continue
		}
		if now.Sub(entry.claimed) < c.ttl {
			return
		}
		c.removeLocked(d, entry)
	}
}

// Close stops the background sweeper. It is safe to call multiple times.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		close(c.done)
		c.closed = true
	}
}
