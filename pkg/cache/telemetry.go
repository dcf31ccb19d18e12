package cache

import (
	"context"

	"go.opentelemetry.io/otel/metric"
)

// telemetryInstruments bundles the otel metric instruments the cache
// updates on its hot paths. Grounded on DataDog's kernelCacheTelemetry
// struct (pkg/gpu/cuda/kernel_cache.go in the retrieval pack): a small
// set of counters plus a size gauge, constructed once from a Meter and
// never touched again except via Add/Record calls.
type telemetryInstruments struct {
	hits      metric.Int64Counter
	misses    metric.Int64Counter
	evictions metric.Int64Counter
	size      metric.Int64UpDownCounter
}

func newTelemetryInstruments(meter metric.Meter) *telemetryInstruments {
	hits, _ := meter.Int64Counter("gpurt.kernel_cache.hits")
	misses, _ := meter.Int64Counter("gpurt.kernel_cache.misses")
	evictions, _ := meter.Int64Counter("gpurt.kernel_cache.evictions")
	size, _ := meter.Int64UpDownCounter("gpurt.kernel_cache.size")
	return &telemetryInstruments{hits: hits, misses: misses, evictions: evictions, size: size}
}

func (t *telemetryInstruments) recordHit(ctx context.Context) {
	if t.hits != nil {
		t.hits.Add(ctx, 1)
	}
}

func (t *telemetryInstruments) recordMiss(ctx context.Context) {
	if t.misses != nil {
		t.misses.Add(ctx, 1)
	}
}

func (t *telemetryInstruments) recordEviction(ctx context.Context) {
	if t.evictions != nil {
		t.evictions.Add(ctx, 1)
	}
}

// addSize applies a signed delta to the current-size up/down counter:
// +1 on insertion, -1 on removal/eviction.
func (t *telemetryInstruments) addSize(ctx context.Context, delta int64) {
	if t.size != nil {
		t.size.Add(ctx, delta)
	}
}
