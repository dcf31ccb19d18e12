package cache

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// cacheFileVersion gates the on-disk header format itself (distinct
// from an entry's own Version string, which gates code-emitter
// compatibility). Bumping this invalidates every previously persisted
// file across an upgrade, by design — see DESIGN.md open question 2.
const cacheFileVersion = 1

// fileHeader is the gob-encoded header written at the front of each
// persisted <cache_dir>/<sanitized_cache_key>.cache file, followed by
// the opaque (optionally compressed/encrypted) kernel payload bytes.
type fileHeader struct {
	FileVersion   int
	Key           Key
	Version       string
	CreatedAt     time.Time
	Metadata      map[string]string
	PayloadLength int64
}

// Persistable is implemented by cache payloads that can be written to
// and read back from the persisted cache layout. Payloads that do not
// implement it (e.g. a bound Launcher closure, which cannot be
// serialized) are simply skipped by persist — persistence is always
// best-effort per spec §4.4.
type Persistable interface {
	MarshalPayload() ([]byte, error)
}

// persist writes every persistable entry to <cache_dir>/<key>.cache.
// Best-effort: any single-entry failure is logged and skipped, never
// propagated. It runs synchronously on the calling goroutine (Close);
// there is no background persist.
func (c *KernelCache) persist() {
	dir := c.opts.CacheDirectory
	if dir == "" {
		return
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		c.opts.Logger.Error(err, "cache: persist: failed to create cache directory", "dir", dir)
		return
	}

	c.mu.RLock()
	entries := make([]*Entry, 0, c.list.Len())
	for e := c.list.Front(); e != nil; e = e.Next() {
		entries = append(entries, e.Value.(*listEntry).entry)
	}
	c.mu.RUnlock()

	for _, entry := range entries {
		if err := c.persistOne(dir, entry); err != nil {
			c.opts.Logger.V(1).Info("cache: persist: skipping entry", "key", string(entry.Key), "reason", err.Error())
		}
	}
}

func (c *KernelCache) persistOne(dir string, entry *Entry) error {
	persistable, ok := entry.Payload.(Persistable)
	if !ok {
		return fmt.Errorf("payload does not implement cache.Persistable")
	}
	raw, err := persistable.MarshalPayload()
	if err != nil {
		return fmt.Errorf("marshalling payload: %w", err)
	}

	payload := compressPayload(raw, c.opts.EnableCompression)
	payload, err = sealPayload(payload, c.opts.EncryptionKey, c.opts.EnableEncryption)
	if err != nil {
		return fmt.Errorf("sealing payload: %w", err)
	}

	header := fileHeader{
		FileVersion:   cacheFileVersion,
		Key:           entry.Key,
		Version:       entry.Version,
		CreatedAt:     entry.CreatedAt,
		Metadata:      entry.Metadata,
		PayloadLength: int64(len(payload)),
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(header); err != nil {
		return fmt.Errorf("encoding header: %w", err)
	}
	buf.Write(payload)

	path := filepath.Join(dir, entry.Key.SanitizedFileName())
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("renaming into place: %w", err)
	}

	if c.index != nil {
		_ = c.index.put(entry.Key, indexRecord{Version: entry.Version, CreatedAt: entry.CreatedAt, Size: header.PayloadLength})
	}
	return nil
}

// preload reads every *.cache file under the configured cache directory
// and repopulates the in-memory LRU with raw (decompressed, decrypted)
// payload bytes. Entries whose file version differs from
// cacheFileVersion, or whose file is missing/corrupt/undecryptable, are
// discarded silently — never an error, per spec §6.
func (c *KernelCache) preload() {
	dir := c.opts.CacheDirectory
	if dir == "" {
		return
	}
	matches, err := filepath.Glob(filepath.Join(dir, "*.cache"))
	if err != nil {
		c.opts.Logger.V(1).Info("cache: preload: glob failed", "dir", dir, "error", err.Error())
		return
	}

	for _, path := range matches {
		key, payload, header, ok := c.preloadOne(path)
		if !ok {
			continue
		}
		entry := newEntry(key, payload, header.Version, header.Metadata, header.CreatedAt)
		elem := c.list.PushBack(&listEntry{entry: entry})
		c.items[key] = elem
		if c.instruments != nil {
			c.instruments.addSize(context.Background(), 1)
		}
	}
}

func (c *KernelCache) preloadOne(path string) (Key, []byte, fileHeader, bool) {
	f, err := os.Open(path)
	if err != nil {
		return "", nil, fileHeader{}, false
	}
	defer f.Close()

	dec := gob.NewDecoder(f)
	var header fileHeader
	if err := dec.Decode(&header); err != nil {
		return "", nil, fileHeader{}, false
	}
	if header.FileVersion != cacheFileVersion {
		return "", nil, fileHeader{}, false
	}

	rest, err := io.ReadAll(f)
	if err != nil || int64(len(rest)) != header.PayloadLength {
		return "", nil, fileHeader{}, false
	}

	payload, err := openPayload(rest, c.opts.EncryptionKey, c.opts.EnableEncryption)
	if err != nil {
		return "", nil, fileHeader{}, false
	}
	payload, err = decompressPayload(payload, c.opts.EnableCompression)
	if err != nil {
		return "", nil, fileHeader{}, false
	}

	return header.Key, payload, header, true
}
