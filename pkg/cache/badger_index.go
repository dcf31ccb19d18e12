package cache

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"path/filepath"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

// indexRecord is the metadata badgerIndex stores per cache key: just
// enough to validate a persisted entry's version and freshness without
// opening its payload file. gob-encoded, matching the teacher's
// pkg/storage/badger_serialization.go convention of gob for on-disk
// metadata records.
type indexRecord struct {
	Version   string
	CreatedAt time.Time
	Size      int64
}

// badgerIndex is an optional, best-effort metadata index kept beside the
// persisted files: persistOne records each written entry's version,
// creation time and payload size in it. preload() does not consult it;
// preload opens and parses every .cache file's header itself. The .cache
// files on disk remain the durable source of truth, and the index is
// never required for correctness.
type badgerIndex struct {
	db *badger.DB
}

func openBadgerIndex(cacheDir string) (*badgerIndex, error) {
	opts := badger.DefaultOptions(filepath.Join(cacheDir, "_index")).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("cache: opening badger metadata index: %w", err)
	}
	return &badgerIndex{db: db}, nil
}

func (idx *badgerIndex) put(key Key, rec indexRecord) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(rec); err != nil {
		return fmt.Errorf("cache: encoding index record: %w", err)
	}
	return idx.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), buf.Bytes())
	})
}

func (idx *badgerIndex) get(key Key) (indexRecord, bool, error) {
	var rec indexRecord
	found := false
	err := idx.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return gob.NewDecoder(bytes.NewReader(val)).Decode(&rec)
		})
	})
	if err != nil {
		return indexRecord{}, false, fmt.Errorf("cache: reading index record: %w", err)
	}
	return rec, found, nil
}

// all returns every (key, record) pair currently in the index, skipping
// records that fail to decode.
func (idx *badgerIndex) all() (map[Key]indexRecord, error) {
	out := make(map[Key]indexRecord)
	err := idx.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			var rec indexRecord
			err := item.Value(func(val []byte) error {
				return gob.NewDecoder(bytes.NewReader(val)).Decode(&rec)
			})
			if err != nil {
				continue // corrupt index record: skip silently, matches file-level policy
			}
			out[Key(item.KeyCopy(nil))] = rec
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cache: scanning index: %w", err)
	}
	return out, nil
}

func (idx *badgerIndex) delete(key Key) error {
	return idx.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

func (idx *badgerIndex) Close() error {
	return idx.db.Close()
}
