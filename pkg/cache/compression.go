package cache

import (
	"github.com/klauspost/compress/s2"
)

// compressPayload compresses data with S2 (a faster, block-compatible
// Snappy variant) when enabled is true; otherwise it returns data
// unchanged. Used by persist() before writing the payload bytes to
// disk, implementing the enable_compression config option.
func compressPayload(data []byte, enabled bool) []byte {
	if !enabled {
		return data
	}
	return s2.Encode(nil, data)
}

// decompressPayload reverses compressPayload. It is a no-op when
// enabled is false; when true and the bytes were not actually S2-framed
// (e.g. a file written before compression was enabled), s2.Decode
// returns an error that preload() treats as a corrupt-file skip, per
// spec §6's "missing or corrupt files are skipped silently."
func decompressPayload(data []byte, enabled bool) ([]byte, error) {
	if !enabled {
		return data, nil
	}
	return s2.Decode(nil, data)
}
