// ABOUTME: Thread-safe TTL cache keyed by any comparable type
// ABOUTME: Debounces repeated signals, e.g. one discovery notice per conversation per window

package dedupe

import (
	"container/list"
	"sync"
	"time"
)

type entry[K comparable] struct {
	marked  time.Time
	element *list.Element
}

// Cache remembers keys for a TTL, bounded to maxSize entries. The oldest
// entry is evicted first.
type Cache[K comparable] struct {
	mu      sync.Mutex
	seen    map[K]*entry[K]
	order   *list.List // keys, oldest at front
	ttl     time.Duration
	maxSize int
	now     func() time.Time
	done    chan struct{}
	closed  bool
}

// Option customizes a Cache.
type Option[K comparable] func(*Cache[K])

// WithClock replaces time.Now, for tests.
func WithClock[K comparable](now func() time.Time) Option[K] {
	return func(c *Cache[K]) { c.now = now }
}

// New creates a cache and starts a goroutine that sweeps expired entries
// once per ttl (at least once a second). Call Close to stop it.
func New[K comparable](ttl time.Duration, maxSize int, opts ...Option[K]) *Cache[K] {
	if maxSize <= 0 {
		maxSize = 1
	}
	c := &Cache[K]{
		seen:    make(map[K]*entry[K]),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.sweep(max(ttl, time.Second))
	return c
}

// check reports whether key was marked within the TTL.
func (c *Cache[K]) check(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.liveLocked(key)
}

// CheckAndMark reports whether key was already marked within the TTL and,
// if not, marks it. The check and the mark are atomic.
func (c *Cache[K]) CheckAndMark(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.liveLocked(key) {
		return true
	}
	c.markLocked(key)
	return false
}

// mark records key now, refreshing its TTL if already present.
func (c *Cache[K]) mark(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.markLocked(key)
}

// Forget removes key so the next CheckAndMark reports it as new.
func (c *Cache[K]) Forget(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.seen[key]; ok {
		c.order.Remove(e.element)
		delete(c.seen, key)
	}
}

// size returns the number of stored entries, expired or not.
func (c *Cache[K]) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

func (c *Cache[K]) liveLocked(key K) bool {
	e, ok := c.seen[key]
	return ok && c.now().Sub(e.marked) < c.ttl
}

// markLocked must be called with mu held.
func (c *Cache[K]) markLocked(key K) {
	now := c.now()

	if e, ok := c.seen[key]; ok {
		e.marked = now
		c.order.MoveToBack(e.element)
		return
	}

	if len(c.seen) >= c.maxSize {
		if front := c.order.Front(); front != nil {
			oldest, _ := front.Value.(K)
			c.order.Remove(front)
			delete(c.seen, oldest)
		}
	}

	c.seen[key] = &entry[K]{marked: now, element: c.order.PushBack(key)}
}

func (c *Cache[K]) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
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

func (c *Cache[K]) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, e := range c.seen {
		if now.Sub(e.marked) >= c.ttl {
			c.order.Remove(e.element)
			delete(c.seen, key)
		}
	}
}

// Close stops the sweeper. It is safe to call multiple times.
func (c *Cache[K]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		close(c.done)
		c.closed = true
	}
}
