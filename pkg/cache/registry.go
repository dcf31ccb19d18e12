package cache

import (
	"sync"
	"time"

	"github.com/orneryd/gpurt/pkg/gputypes"
)

// Registry is a process-wide map from Accelerator to its KernelCache.
// Per the design notes on cyclic accelerator/cache ownership, the
// registry exclusively owns caches; an Accelerator itself holds no
// reference to its cache or to the registry, which sidesteps the
// reference cycle the original source has.
type Registry struct {
	mu     sync.Mutex
	caches map[*gputypes.Accelerator]*KernelCache
}

// NewRegistry constructs an empty registry. Most callers use the
// process-wide singleton via GlobalRegistry instead of constructing
// their own, but tests that need isolation should call this directly.
func NewRegistry() *Registry {
	return &Registry{caches: make(map[*gputypes.Accelerator]*KernelCache)}
}

// GetOrCreateCache returns the cache bound to accelerator, creating one
// with opts on first call. Subsequent calls for the same accelerator
// ignore opts and return the existing cache.
func (r *Registry) GetOrCreateCache(accelerator *gputypes.Accelerator, opts Options) *KernelCache {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.caches[accelerator]; ok {
		return c
	}
	c := New(opts)
	r.caches[accelerator] = c
	return c
}

// AggregateStatistics sums statistics across every cache the registry
// currently holds.
func (r *Registry) AggregateStatistics() Statistics {
	r.mu.Lock()
	caches := make([]*KernelCache, 0, len(r.caches))
	for _, c := range r.caches {
		caches = append(caches, c)
	}
	r.mu.Unlock()

	var agg Statistics
	for _, c := range caches {
		s := c.GetStatistics()
		agg.Hits += s.Hits
		agg.Misses += s.Misses
		agg.Evictions += s.Evictions
		agg.CurrentSize += s.CurrentSize
		agg.MaxSize += s.MaxSize
	}
	return agg
}

// ClearAll clears every registered cache.
func (r *Registry) ClearAll() {
	r.mu.Lock()
	caches := make([]*KernelCache, 0, len(r.caches))
	for _, c := range r.caches {
		caches = append(caches, c)
	}
	r.mu.Unlock()

	for _, c := range caches {
		_ = c.Clear()
	}
}

// Shutdown empties the registry and closes every cache it held
// concurrently (each Close runs a best-effort persist). Per spec §4.5,
// the aggregate budget is 10 seconds across all contained caches; once
// it runs out, Shutdown returns without waiting for caches still
// closing.
func (r *Registry) Shutdown() {
	const budget = 10 * time.Second

	r.mu.Lock()
	caches := make([]*KernelCache, 0, len(r.caches))
	for _, c := range r.caches {
		caches = append(caches, c)
	}
	r.caches = make(map[*gputypes.Accelerator]*KernelCache)
	r.mu.Unlock()

	if len(caches) == 0 {
		return
	}
	perCache := budget / time.Duration(len(caches))

	done := make(chan struct{}, len(caches))
	for _, c := range caches {
		go func(c *KernelCache) {
			_ = c.Close()
			done <- struct{}{}
		}(c)
	}

	timeout := time.After(perCache * time.Duration(len(caches)))
	for range caches {
		select {
		case <-done:
		case <-timeout:
			return
		}
	}
}

var (
	globalRegistryOnce sync.Once
	globalRegistry     *Registry
)

// GlobalRegistry returns the process-wide Registry singleton, lazily
// initialized on first call.
func GlobalRegistry() *Registry {
	globalRegistryOnce.Do(func() {
		globalRegistry = NewRegistry()
	})
	return globalRegistry
}

// ResetGlobalRegistry tears down and discards the process-wide
// singleton. Exists purely for test isolation, per the design notes'
// explicit call for a shutdown() hook on the global mutable registry.
func ResetGlobalRegistry() {
	if globalRegistry != nil {
		globalRegistry.Shutdown()
	}
	globalRegistryOnce = sync.Once{}
	globalRegistry = nil
}
