package cache

import (
	"fmt"
	"strings"
)

// Key is the canonical string uniquely identifying a (kernel,
// accelerator, parameter shape, specialization) tuple:
// "<kernel_id>|<backend>|<device_fingerprint>|<param_type_fingerprint>|<specialization_hash>".
// Collisions are treated as identity — this is a plain string comparison
// throughout the cache, never a numeric hash of the fields.
type Key string

// BuildKey assembles a Key from its five components.
func BuildKey(kernelID, backend, deviceFingerprint, paramTypeFingerprint, specializationHash string) Key {
	return Key(fmt.Sprintf("%s|%s|%s|%s|%s", kernelID, backend, deviceFingerprint, paramTypeFingerprint, specializationHash))
}

// SanitizedFileName returns the form of k safe to use as a filename
// component for the persisted cache layout (one file per entry under
// <cache_dir>/<sanitized_cache_key>.cache).
func (k Key) SanitizedFileName() string {
	replacer := strings.NewReplacer("|", "_", "/", "_", "\\", "_", ":", "_", " ", "_")
	return replacer.Replace(string(k)) + ".cache"
}
