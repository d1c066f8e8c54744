package backup

import (
	"encoding/json"
	"fmt"

	"github.com/boltdb/bolt"
)

// IndexEntry is one row of the backup index: which cid holds the
// ciphertext for a given committed height, and when it was taken.
type IndexEntry struct {
	Cid         string `json:"cid"`
	Height      uint64 `json:"height"`
	TimestampMs int64  `json:"timestamp_ms"`
}

// IndexStore is the external key-value store spec §6 names abstractly,
// holding the append-only list of backup entries.
type IndexStore interface {
	Append(entry IndexEntry) error
	Latest() (IndexEntry, bool, error)
	Oldest() (IndexEntry, bool, error)
	Count() (int, error)
	Remove(cid string) error
}

var bucketName = []byte("backups")

// BoltIndex stores IndexEntry rows in a single boltdb bucket, keyed by
// zero-padded sequence number so iteration order matches insertion order.
type BoltIndex struct {
	db *bolt.DB
}

// OpenBoltIndex opens (creating if needed) a boltdb file at path.
func OpenBoltIndex(path string) (*BoltIndex, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("backup: open bolt index: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltIndex{db: db}, nil
}

func (b *BoltIndex) Close() error { return b.db.Close() }

func (b *BoltIndex) Append(entry IndexEntry) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketName)
		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		return bucket.Put(seqKey(seq), data)
	})
}

func (b *BoltIndex) Latest() (IndexEntry, bool, error) {
	var entry IndexEntry
	found := false
	err := b.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketName).Cursor()
		k, v := c.Last()
		if k == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &entry)
	})
	return entry, found, err
}

func (b *BoltIndex) Oldest() (IndexEntry, bool, error) {
	var entry IndexEntry
	found := false
	err := b.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketName).Cursor()
		k, v := c.First()
		if k == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &entry)
	})
	return entry, found, err
}

func (b *BoltIndex) Count() (int, error) {
	n := 0
	err := b.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(bucketName).Stats().KeyN
		return nil
	})
	return n, err
}

// Remove deletes the oldest entry whose cid matches. Entries are
// immutable and removed only by the TTL eviction path, so a linear scan
// bounded by ttl+1 is cheap.
func (b *BoltIndex) Remove(cid string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketName).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var entry IndexEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return err
			}
			if entry.Cid == cid {
				return c.Delete()
			}
		}
		return nil
	})
}

func seqKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("%020d", seq))
}
