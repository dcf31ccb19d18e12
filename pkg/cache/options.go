package cache

import (
	"time"

	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel/metric"
)

// Options configures a KernelCache. A zero MaxSize, DefaultTTL,
// EvictionThreshold or MaintenanceInterval, and an unset Logger, fall
// back to the values in DefaultOptions; the boolean switches are used
// as given.
type Options struct {
	MaxSize               int
	DefaultTTL            time.Duration
	EvictionThreshold     float64
	EnablePersistentCache bool
	CacheDirectory        string
	MaintenanceInterval   time.Duration
	EnableAutomaticMaintenance bool
	EnableCompression     bool
	EnableEncryption      bool
	// EncryptionKey is the 32-byte chacha20poly1305 key used when
	// EnableEncryption is set. Required in that case; never logged.
	EncryptionKey []byte

	// Logger receives structured log points for persistence and
	// metadata-index failures and for the number of entries each
	// background maintenance pass removes. Defaults to logr.Discard().
	Logger logr.Logger
	// Meter, when non-nil, is used to register otel instruments for
	// hit/miss/eviction counters and a current-size up/down counter.
	// Lookup latency is not exported as an instrument; its rolling
	// average is available only through GetStatistics.
	Meter metric.Meter
}

// DefaultOptions returns the spec §6 configuration defaults.
func DefaultOptions() Options {
	return Options{
		MaxSize:                    1000,
		DefaultTTL:                 24 * time.Hour,
		EvictionThreshold:          0.8,
		EnablePersistentCache:      true,
		MaintenanceInterval:        1 * time.Hour,
		EnableAutomaticMaintenance: true,
		EnableCompression:          true,
		EnableEncryption:           false,
		Logger:                     logr.Discard(),
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxSize <= 0 {
		o.MaxSize = d.MaxSize
	}
	if o.DefaultTTL <= 0 {
		o.DefaultTTL = d.DefaultTTL
	}
	if o.EvictionThreshold <= 0 {
		o.EvictionThreshold = d.EvictionThreshold
	}
	if o.MaintenanceInterval <= 0 {
		o.MaintenanceInterval = d.MaintenanceInterval
	}
	if o.Logger.GetSink() == nil {
		o.Logger = d.Logger
	}
	return o
}
