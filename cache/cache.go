// Package cache provides a TTL and capacity bounded key/value store with
// optional blob persistence per namespace.
package cache

import (
	"encoding/json"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"
)

// Entry wraps a stored value with its insertion time and time-to-live. An
// entry is logically absent once now - StoredAt > TTL.
type Entry[V any] struct {
	Value    V             `json:"value"`
	StoredAt time.Time     `json:"stored_at"`
	TTL      time.Duration `json:"ttl"`
}

func (e Entry[V]) expired(now time.Time) bool {
	return now.Sub(e.StoredAt) > e.TTL
}

// Cache is a capacity-bounded store of string keys to values of type V.
// When an insert would exceed capacity, the oldest 20% of entries by
// insertion time are evicted in one batch.
type Cache[V any] struct {
	mu         sync.Mutex
	maxSize    int
	defaultTTL time.Duration
	entries    map[string]Entry[V]

	namespace string
	store     Store
	persistOK bool

	now func() time.Time
}

// New builds a cache with the given capacity and default TTL. A nil store
// disables persistence. If the store holds a previously saved blob for the
// namespace, it is loaded; expired entries are dropped on load.
func New[V any](namespace string, maxSize int, defaultTTL time.Duration, store Store) *Cache[V] {
	if maxSize <= 0 {
		maxSize = 100
	}
	c := &Cache[V]{
		maxSize:    maxSize,
		defaultTTL: defaultTTL,
		entries:    make(map[string]Entry[V]),
		namespace:  namespace,
		store:      store,
		persistOK:  store != nil,
		now:        time.Now,
	}
	c.load()
	return c
}

// Get returns the value for key, or false if missing or expired. An expired
// entry is removed as a side effect.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if entry.expired(c.now()) {
		delete(c.entries, key)
		c.persistLocked()
		var zero V
		return zero, false
	}
	return entry.Value, true
}

// Set stores value under key with the default TTL.
func (c *Cache[V]) Set(key string, value V) {
	c.SetTTL(key, value, c.defaultTTL)
}

// SetTTL stores value under key with an explicit TTL, evicting the oldest
// batch of entries first if the cache is at capacity.
func (c *Cache[V]) SetTTL(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		c.evictOldestLocked()
	}

	c.entries[key] = Entry[V]{Value: value, StoredAt: c.now(), TTL: ttl}
	c.persistLocked()
}

// Has reports whether key holds a non-expired entry.
func (c *Cache[V]) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Delete removes key.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	c.persistLocked()
}

// GetAll returns a snapshot of all non-expired entries.
func (c *Cache[V]) GetAll() map[string]V {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	out := make(map[string]V, len(c.entries))
	for key, entry := range c.entries {
		if entry.expired(now) {
			continue
		}
		out[key] = entry.Value
	}
	return out
}

// Cleanup purges expired entries, or everything when force is true.
func (c *Cache[V]) Cleanup(force bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanupLocked(force)
	c.persistLocked()
}

func (c *Cache[V]) cleanupLocked(force bool) {
	if force {
		c.entries = make(map[string]Entry[V])
		return
	}
	now := c.now()
	for key, entry := range c.entries {
		if entry.expired(now) {
			delete(c.entries, key)
		}
	}
}

// Clear removes all entries.
func (c *Cache[V]) Clear() {
	c.Cleanup(true)
}

// Size returns the number of physically stored entries, expired or not.
func (c *Cache[V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// evictOldestLocked removes the oldest ceil(maxSize*0.2) entries by
// insertion time.
func (c *Cache[V]) evictOldestLocked() {
	count := int(math.Ceil(float64(c.maxSize) * 0.2))
	if count < 1 {
		count = 1
	}

	type aged struct {
		key      string
		storedAt time.Time
	}
	all := make([]aged, 0, len(c.entries))
	for key, entry := range c.entries {
		all = append(all, aged{key: key, storedAt: entry.StoredAt})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].storedAt.Before(all[j].storedAt) })

	if count > len(all) {
		count = len(all)
	}
	for _, victim := range all[:count] {
		delete(c.entries, victim.key)
	}
}

// persistLocked serializes the namespace to the store. A write failure
// triggers a forced cleanup and one retry; a second failure disables
// persistence for the lifetime of the cache. Callers never see the error.
func (c *Cache[V]) persistLocked() {
	if c.store == nil || !c.persistOK {
		return
	}

	blob, err := json.Marshal(c.entries)
	if err != nil {
		slog.Warn("cache serialize failed", slog.String("namespace", c.namespace), slog.Any("error", err))
		return
	}

	if err := c.store.Save(c.namespace, blob); err == nil {
		return
	}

	c.cleanupLocked(true)
	blob, _ = json.Marshal(c.entries)
	if err := c.store.Save(c.namespace, blob); err != nil {
		c.persistOK = false
		slog.Warn("cache persistence disabled",
			slog.String("namespace", c.namespace),
			slog.Any("error", err),
		)
	}
}

func (c *Cache[V]) load() {
	if c.store == nil {
		return
	}
	blob, err := c.store.Load(c.namespace)
	if err != nil || len(blob) == 0 {
		return
	}
	var entries map[string]Entry[V]
	if err := json.Unmarshal(blob, &entries); err != nil {
		slog.Warn("cache blob unreadable, starting empty", slog.String("namespace", c.namespace))
		return
	}
	now := c.now()
	for key, entry := range entries {
		if entry.expired(now) {
			continue
		}
		c.entries[key] = entry
	}
}
