// Package config loads the RuntimeConfig that parameterizes a
// KernelCache from YAML. The runtime core never depends on this
// package — it accepts a typed cache.Options directly — this is purely
// the CLI-facing loader, the same split the teacher draws between its
// library packages and the concrete config parsing its cmd/ binaries do.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/orneryd/gpurt/pkg/cache"
)

// RuntimeConfig is the on-disk shape of cache tuning knobs. Durations
// are expressed as Go duration strings ("1h", "30m") for readability.
type RuntimeConfig struct {
	MaxSize               int    `yaml:"max_size"`
	DefaultTTL            string `yaml:"default_ttl"`
	EvictionThreshold     float64 `yaml:"eviction_threshold"`
	EnablePersistentCache bool   `yaml:"enable_persistent_cache"`
	CacheDirectory        string `yaml:"cache_directory"`
	MaintenanceInterval   string `yaml:"maintenance_interval"`
	EnableAutomaticMaintenance bool `yaml:"enable_automatic_maintenance"`
	EnableCompression     bool   `yaml:"enable_compression"`
	EnableEncryption      bool   `yaml:"enable_encryption"`
	// EncryptionKeyFile, when set, names a file whose raw bytes are the
	// 32-byte chacha20poly1305 key. The key itself never lives in the
	// YAML document.
	EncryptionKeyFile string `yaml:"encryption_key_file"`
}

// Load reads and parses a RuntimeConfig from path.
func Load(path string) (RuntimeConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RuntimeConfig{}, fmt.Errorf("config: reading %s: %w", path, err)
	}
	var rc RuntimeConfig
	if err := yaml.Unmarshal(data, &rc); err != nil {
		return RuntimeConfig{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return rc, nil
}

// ToCacheOptions converts the parsed YAML document into the typed
// cache.Options the runtime core actually consumes, parsing duration
// strings and loading the encryption key file if configured.
func (rc RuntimeConfig) ToCacheOptions() (cache.Options, error) {
	opts := cache.Options{
		MaxSize:                    rc.MaxSize,
		EvictionThreshold:          rc.EvictionThreshold,
		EnablePersistentCache:      rc.EnablePersistentCache,
		CacheDirectory:             rc.CacheDirectory,
		EnableAutomaticMaintenance: rc.EnableAutomaticMaintenance,
		EnableCompression:          rc.EnableCompression,
		EnableEncryption:           rc.EnableEncryption,
	}

	if rc.DefaultTTL != "" {
		d, err := time.ParseDuration(rc.DefaultTTL)
		if err != nil {
			return cache.Options{}, fmt.Errorf("config: parsing default_ttl %q: %w", rc.DefaultTTL, err)
		}
		opts.DefaultTTL = d
	}
	if rc.MaintenanceInterval != "" {
		d, err := time.ParseDuration(rc.MaintenanceInterval)
		if err != nil {
			return cache.Options{}, fmt.Errorf("config: parsing maintenance_interval %q: %w", rc.MaintenanceInterval, err)
		}
		opts.MaintenanceInterval = d
	}
	if rc.EnableEncryption {
		if rc.EncryptionKeyFile == "" {
			return cache.Options{}, fmt.Errorf("config: enable_encryption is set but encryption_key_file is empty")
		}
		key, err := os.ReadFile(rc.EncryptionKeyFile)
		if err != nil {
			return cache.Options{}, fmt.Errorf("config: reading encryption key file %s: %w", rc.EncryptionKeyFile, err)
		}
		opts.EncryptionKey = key
	}

	return opts, nil
}
