// Package cache implements the version-keyed, LRU-evicting,
// TTL-expiring kernel cache (spec §4.4) and its per-accelerator
// registry (spec §4.5). The core data structure — container/list plus
// a map, atomic counters, a short-held-lock latency ring — is the same
// shape as NornicDB's query plan cache, generalized from caching parsed
// Cypher plans to caching compiled GPU kernels with version invalidation
// added.
package cache

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"
)

// KernelCache is a concurrent, version-checked, LRU/TTL cache of
// compiled-kernel artifacts. Lookup is the hot path and never
// serializes with other lookups beyond the brief critical sections
// needed to move an LRU element and touch an entry's atomics.
type KernelCache struct {
	opts Options

	mu    sync.RWMutex
	list  *list.List
	items map[Key]*list.Element

	hits      uint64
	misses    uint64
	evictions uint64
	latency   *latencyRing

	disposed atomic.Bool

	index *badgerIndex // optional fast metadata index, nil if unused

	maintCancel context.CancelFunc
	maintDone   chan struct{}

	instruments *telemetryInstruments // nil if opts.Meter is nil
}

type listEntry struct {
	entry *Entry
}

// New constructs a KernelCache with the given options, starting its
// background maintenance loop if EnableAutomaticMaintenance is set and
// preloading persisted entries if persistence is enabled.
func New(opts Options) *KernelCache {
	opts = opts.withDefaults()
	c := &KernelCache{
		opts:    opts,
		list:    list.New(),
		items:   make(map[Key]*list.Element, opts.MaxSize),
		latency: newLatencyRing(1000),
	}

	if opts.Meter != nil {
		c.instruments = newTelemetryInstruments(opts.Meter)
	}

	if opts.EnablePersistentCache && opts.CacheDirectory != "" {
		idx, err := openBadgerIndex(opts.CacheDirectory)
		if err != nil {
			opts.Logger.Error(err, "cache: failed to open metadata index, continuing without it")
		} else {
			c.index = idx
		}
		c.preload()
	}

	if opts.EnableAutomaticMaintenance {
		ctx, cancel := context.WithCancel(context.Background())
		c.maintCancel = cancel
		c.maintDone = make(chan struct{})
		go c.maintenanceLoop(ctx)
	}

	return c
}

// TryGet looks up key, returning the entry only if present, version
// matches expectedVersion, and it has not expired. A version mismatch
// or expiry both remove the stale entry and count as a miss — spec
// §4.4's exact wording.
func (c *KernelCache) TryGet(key Key, expectedVersion string) (*Entry, bool, error) {
	if c.disposed.Load() {
		return nil, false, ErrCacheDisposed
	}

	start := time.Now()
	defer func() { c.latency.record(time.Since(start)) }()

	c.mu.RLock()
	elem, ok := c.items[key]
	c.mu.RUnlock()

	if !ok {
		c.recordMiss()
		return nil, false, nil
	}

	le := elem.Value.(*listEntry)
	now := time.Now()

	if le.entry.Version != expectedVersion || le.entry.expired(now, c.opts.DefaultTTL) {
		c.mu.Lock()
		c.removeElementLocked(elem)
		c.mu.Unlock()
		c.recordMiss()
		return nil, false, nil
	}

	le.entry.touch(now)

	c.mu.Lock()
	c.list.MoveToFront(elem)
	c.mu.Unlock()

	atomic.AddUint64(&c.hits, 1)
	if c.instruments != nil {
		c.instruments.recordHit(context.Background())
	}
	return le.entry, true, nil
}

// Put inserts or overwrites the entry for key. If the cache is at or
// above max_size × eviction_threshold, LRU eviction runs before
// insertion. Insertion is atomic: a concurrent TryGet never observes a
// partially-constructed entry.
func (c *KernelCache) Put(key Key, payload interface{}, version string, metadata map[string]string) error {
	if c.disposed.Load() {
		return ErrCacheDisposed
	}

	now := time.Now()
	entry := newEntry(key, payload, version, metadata, now)

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		elem.Value = &listEntry{entry: entry}
		c.list.MoveToFront(elem)
		return nil
	}

	threshold := int(float64(c.opts.MaxSize) * c.opts.EvictionThreshold)
	if c.list.Len() >= threshold {
		c.evictLocked(0.7)
	}

	elem := c.list.PushFront(&listEntry{entry: entry})
	c.items[key] = elem
	if c.instruments != nil {
		c.instruments.addSize(context.Background(), 1)
	}
	return nil
}

// Remove deletes key's entry, if present.
func (c *KernelCache) Remove(key Key) error {
	if c.disposed.Load() {
		return ErrCacheDisposed
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.items[key]; ok {
		c.removeElementLocked(elem)
	}
	return nil
}

// Clear empties the cache entirely.
func (c *KernelCache) Clear() error {
	if c.disposed.Load() {
		return ErrCacheDisposed
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.instruments != nil {
		c.instruments.addSize(context.Background(), -int64(c.list.Len()))
	}
	c.list.Init()
	c.items = make(map[Key]*list.Element, c.opts.MaxSize)
	return nil
}

// InvalidateVersion removes every entry whose version equals v,
// returning the count removed. Each removal is atomic per entry — a
// concurrent lookup never observes a partially-removed entry.
func (c *KernelCache) InvalidateVersion(v string) (int, error) {
	if c.disposed.Load() {
		return 0, ErrCacheDisposed
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	var toRemove []*list.Element
	for e := c.list.Front(); e != nil; e = e.Next() {
		if e.Value.(*listEntry).entry.Version == v {
			toRemove = append(toRemove, e)
		}
	}
	for _, e := range toRemove {
		c.removeElementLocked(e)
	}
	return len(toRemove), nil
}

// PerformMaintenance removes expired entries, then — if the cache is
// still over max_size — runs LRU eviction down to 70% of max. Returns
// the total count removed. Invariant: current_size ≤ max_size once this
// returns.
func (c *KernelCache) PerformMaintenance() (int, error) {
	if c.disposed.Load() {
		return 0, ErrCacheDisposed
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0

	var expired []*list.Element
	for e := c.list.Front(); e != nil; e = e.Next() {
		if e.Value.(*listEntry).entry.expired(now, c.opts.DefaultTTL) {
			expired = append(expired, e)
		}
	}
	for _, e := range expired {
		c.removeElementLocked(e)
		removed++
	}

	if c.list.Len() > c.opts.MaxSize {
		before := c.list.Len()
		c.evictLocked(0.7)
		removed += before - c.list.Len()
	}

	return removed, nil
}

// evictLocked removes the least-recently-used entries until the list's
// length is at most targetFraction × MaxSize, truncated toward zero
// (0.7 × 4 gives 2). Caller must hold c.mu. The victim is always the
// back of the list; list order is a strict recency order, so access
// counts are not consulted, and never-accessed entries leave in
// insertion order.
func (c *KernelCache) evictLocked(targetFraction float64) {
	target := int(targetFraction * float64(c.opts.MaxSize))
	if target < 0 {
		target = 0
	}

	for c.list.Len() > target {
		// container/list keeps strict recency order via MoveToFront, so
		// the back element is always the least-recently-used candidate;
		// ties among never-touched entries resolve to insertion order
		// for free, since PushFront never reorders untouched siblings.
		back := c.list.Back()
		if back == nil {
			break
		}
		c.removeElementLocked(back)
		atomic.AddUint64(&c.evictions, 1)
		if c.instruments != nil {
			c.instruments.recordEviction(context.Background())
		}
	}
}

// removeElementLocked removes elem from both the list and the map.
// Caller must hold c.mu.
func (c *KernelCache) removeElementLocked(elem *list.Element) {
	c.list.Remove(elem)
	le := elem.Value.(*listEntry)
	delete(c.items, le.entry.Key)
	if c.instruments != nil {
		c.instruments.addSize(context.Background(), -1)
	}
}

func (c *KernelCache) recordMiss() {
	atomic.AddUint64(&c.misses, 1)
	if c.instruments != nil {
		c.instruments.recordMiss(context.Background())
	}
}

// GetStatistics returns a point-in-time snapshot of cumulative counters
// and the rolling lookup-latency average.
func (c *KernelCache) GetStatistics() Statistics {
	c.mu.RLock()
	size := c.list.Len()
	c.mu.RUnlock()

	return Statistics{
		Hits:             atomic.LoadUint64(&c.hits),
		Misses:           atomic.LoadUint64(&c.misses),
		Evictions:        atomic.LoadUint64(&c.evictions),
		CurrentSize:      size,
		MaxSize:          c.opts.MaxSize,
		AvgLookupLatency: c.latency.average(),
	}
}

// Close tears the cache down: stops the maintenance loop, flushes a
// best-effort persist, and marks the cache disposed so further
// operations return ErrCacheDisposed.
func (c *KernelCache) Close() error {
	if !c.disposed.CompareAndSwap(false, true) {
		return nil
	}
	if c.maintCancel != nil {
		c.maintCancel()
		<-c.maintDone
	}
	if c.opts.EnablePersistentCache && c.opts.CacheDirectory != "" {
		c.persist()
	}
	if c.index != nil {
		if err := c.index.Close(); err != nil {
			c.opts.Logger.Error(err, "cache: failed to close metadata index")
		}
	}
	return nil
}

func (c *KernelCache) maintenanceLoop(ctx context.Context) {
	defer close(c.maintDone)
	ticker := time.NewTicker(c.opts.MaintenanceInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := c.PerformMaintenance(); err != nil {
				return
			} else if n > 0 {
				c.opts.Logger.V(1).Info("cache: maintenance removed entries", "count", n)
			}
		}
	}
}

// logger exposes the cache's configured logger for sibling files
// (persistence.go, compression.go, encryption.go) in this package.
func (c *KernelCache) logger() logr.Logger { return c.opts.Logger }
