package cache

import (
	"sync"
	"time"
)

// LRU is a bounded memo. Beyond capacity the least recently read entry goes;
// entries older than ttl are dropped when touched or swept.
type LRU[T any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	entries  map[string]*entry[T]
	// head is the most recently used entry, tail the least.
	head, tail *entry[T]
	stats      Stats
	now        func() time.Time
}

var _ Cache[int] = (*LRU[int])(nil)

type entry[T any] struct {
	key        string
	value      T
	storedAt   time.Time
	prev, next *entry[T]
}

// NewLRU returns an empty memo. A capacity below 1 is treated as 1; a ttl of
// 0 disables expiry.
func NewLRU[T any](capacity int, ttl time.Duration) *LRU[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &LRU[T]{
		capacity: capacity,
		ttl:      ttl,
		entries:  make(map[string]*entry[T], capacity),
		now:      time.Now,
	}
}

func (c *LRU[T]) expired(e *entry[T], now time.Time) bool {
	return c.ttl > 0 && now.Sub(e.storedAt) > c.ttl
}

func (c *LRU[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		var zero T
		return zero, false
	}
	if c.expired(e, c.now()) {
		c.remove(e)
		c.stats.Expired++
		c.stats.Misses++
		var zero T
		return zero, false
	}
	c.moveToFront(e)
	c.stats.Hits++
	return e.value, true
}

func (c *LRU[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		e.storedAt = c.now()
		c.moveToFront(e)
		return
	}

	e := &entry[T]{key: key, value: value, storedAt: c.now()}
	c.entries[key] = e
	c.pushFront(e)
	for len(c.entries) > c.capacity {
		c.remove(c.tail)
		c.stats.Evictions++
	}
}

func (c *LRU[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		c.remove(e)
	}
}

func (c *LRU[T]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry[T], c.capacity)
	c.head, c.tail = nil, nil
}

func (c *LRU[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Sweep drops every expired entry and returns how many went.
func (c *LRU[T]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	n := 0
	// Oldest entries sit at the tail, but a Set refreshes storedAt without
	// reordering by age, so the whole list is walked.
	for e := c.tail; e != nil; {
		prev := e.prev
		if c.expired(e, now) {
			c.remove(e)
			n++
		}
		e = prev
	}
	c.stats.Expired += int64(n)
	return n
}

// Stats returns a snapshot of the counters.
func (c *LRU[T]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Size = len(c.entries)
	return s
}

func (c *LRU[T]) pushFront(e *entry[T]) {
	e.prev = nil
	e.next = c.head
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *LRU[T]) unlink(e *entry[T]) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
	e.prev, e.next = nil, nil
}

func (c *LRU[T]) moveToFront(e *entry[T]) {
	if c.head == e {
		return
	}
	c.unlink(e)
	c.pushFront(e)
}

func (c *LRU[T]) remove(e *entry[T]) {
	c.unlink(e)
	delete(c.entries, e.key)
}
