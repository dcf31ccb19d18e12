package cache

import (
	"sync/atomic"
	"time"
)

// Entry holds one cached artifact: a version string, bookkeeping
// timestamps, an access counter, and a free-form metadata map. Payload
// is an interface{} by design — the cache stores either a
// *kernel.Compiled or a bound Launcher depending on what the loader
// chooses to cache, and the cache itself never interprets the payload.
type Entry struct {
	Key       Key
	Payload   interface{}
	Version   string
	CreatedAt time.Time
	Metadata  map[string]string

	lastAccess int64 // unix nanos, accessed atomically
	accessCount uint64
}

func newEntry(key Key, payload interface{}, version string, metadata map[string]string, now time.Time) *Entry {
	e := &Entry{
		Key:       key,
		Payload:   payload,
		Version:   version,
		CreatedAt: now,
		Metadata:  metadata,
	}
	atomic.StoreInt64(&e.lastAccess, now.UnixNano())
	return e
}

// LastAccess returns the entry's last-access timestamp.
func (e *Entry) LastAccess() time.Time {
	return time.Unix(0, atomic.LoadInt64(&e.lastAccess))
}

// AccessCount returns the entry's monotonic access counter.
func (e *Entry) AccessCount() uint64 {
	return atomic.LoadUint64(&e.accessCount)
}

// touch marks the entry accessed at now and increments its counter.
// Called by TryGet without the cache lock held; both fields are atomics
// so concurrent touches from parallel lookups never race.
func (e *Entry) touch(now time.Time) {
	atomic.StoreInt64(&e.lastAccess, now.UnixNano())
	atomic.AddUint64(&e.accessCount, 1)
}

// expired reports whether the entry's age exceeds ttl as of now. A
// zero ttl means "never expires."
func (e *Entry) expired(now time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	return now.Sub(e.CreatedAt) > ttl
}
