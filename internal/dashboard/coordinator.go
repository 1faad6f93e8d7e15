package dashboard

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

// Ticket identifies one load started for a key
type Ticket struct {
	Key string
	seq uint64
}

type coordinatorEntry[T any] struct {
	latest      uint64
	value       T
	hasValue    bool
	committedAt time.Time
	touchedAt   time.Time
}

// Coordinator keeps, per key, the result of the most recently started load.
// A load that finishes after a newer one for the same key was started is discarded,
// whatever the order the results arrive in.
// With a ttl, committed values stop being visible after ttl and idle keys are dropped.
type Coordinator[T any] struct {
	mu         sync.Mutex
	seq        uint64
	entries    map[string]*coordinatorEntry[T]
	closed     bool
	ttl        time.Duration
	now        func() time.Time
	lastPruned time.Time
	discarded  prometheus.Counter
}

// NewCoordinator creates a coordinator, a zero ttl keeps committed values until replaced
func NewCoordinator[T any](ttl time.Duration, discarded prometheus.Counter) *Coordinator[T] {
	return &Coordinator[T]{
		entries:   make(map[string]*coordinatorEntry[T]),
		ttl:       ttl,
		now:       time.Now,
		discarded: discarded,
	}
}

func (c *Coordinator[T]) WithClock(now func() time.Time) *Coordinator[T] {
	c.now = now
	return c
}

// Begin starts a load for key, superseding every earlier ticket of that key
func (c *Coordinator[T]) Begin(key string) Ticket {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.prune(now)

	entry, ok := c.entries[key]
	if !ok {
		entry = &coordinatorEntry[T]{}
		c.entries[key] = entry
	}
	c.seq++
	entry.latest = c.seq
	entry.touchedAt = now
	return Ticket{Key: key, seq: c.seq}
}

// Commit makes value visible if ticket is still the latest of its key.
// It returns false when the value was discarded.
func (c *Coordinator[T]) Commit(ticket Ticket, value T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		log.Debugf("coordinator closed, dropping load %d for %s", ticket.seq, ticket.Key)
		c.discard()
		return false
	}
	entry, ok := c.entries[ticket.Key]
	if !ok || entry.latest != ticket.seq {
		log.Debugf("load %d for %s superseded", ticket.seq, ticket.Key)
		c.discard()
		return false
	}

	now := c.now()
	entry.value = value
	entry.hasValue = true
	entry.committedAt = now
	entry.touchedAt = now
	return true
}

// Visible returns the last committed value of key while it is fresh
func (c *Coordinator[T]) Visible(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	entry, ok := c.entries[key]
	if !ok || !entry.hasValue {
		return zero, false
	}
	if c.expired(entry.committedAt, c.now()) {
		return zero, false
	}
	return entry.value, true
}

// Invalidate hides the visible value of key and supersedes its loads in flight
func (c *Coordinator[T]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return
	}
	c.seq++
	entry.latest = c.seq
	entry.hasValue = false
	var zero T
	entry.value = zero
}

// Close tears the coordinator down, every later commit is discarded
func (c *Coordinator[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	clear(c.entries)
}

// Len is the number of keys tracked
func (c *Coordinator[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Coordinator[T]) expired(at, now time.Time) bool {
	return c.ttl > 0 && now.Sub(at) >= c.ttl
}

// prune drops keys idle for longer than ttl, at most once per ttl
func (c *Coordinator[T]) prune(now time.Time) {
	if c.ttl <= 0 || now.Sub(c.lastPruned) < c.ttl {
		return
	}
	c.lastPruned = now
	for key, entry := range c.entries {
		if c.expired(entry.touchedAt, now) {
			delete(c.entries, key)
		}
	}
}

func (c *Coordinator[T]) discard() {
	if c.discarded != nil {
		c.discarded.Inc()
	}
}
