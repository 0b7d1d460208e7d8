package kv

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

const (
	dbFilename    = "gatewayd.db"
	defaultBucket = "gatewayd"
)

// Bolt is a Store backed by a bbolt file. Each namespace is its own bucket.
type Bolt struct {
	db *bbolt.DB
}

// OpenBolt opens (creating if needed) the database below dataDir.
func OpenBolt(dataDir string) (*Bolt, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("could not create data dir %s: %w", dataDir, err)
	}

	path := filepath.Join(dataDir, dbFilename)
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("could not open %s: %w", path, err)
	}

	return &Bolt{db: db}, nil
}

func (b *Bolt) Get(key string) (string, bool, error) {
	return b.bucket(defaultBucket).Get(key)
}

func (b *Bolt) Put(key string, value string) error {
	return b.bucket(defaultBucket).Put(key, value)
}

func (b *Bolt) Remove(key string) error {
	return b.bucket(defaultBucket).Remove(key)
}

// Namespace returns a Store backed by the bucket named prefix.
func (b *Bolt) Namespace(prefix string) (Store, error) {
	if prefix == "" || prefix == defaultBucket {
		return nil, fmt.Errorf("namespace %q: %w", prefix, ErrInvalidKey)
	}
	return b.bucket(prefix), nil
}

// Close releases the database file lock.
func (b *Bolt) Close() error {
	return b.db.Close()
}

func (b *Bolt) bucket(name string) *boltBucket {
	return &boltBucket{db: b.db, name: []byte(name)}
}

type boltBucket struct {
	db   *bbolt.DB
	name []byte
}

func (b *boltBucket) Get(key string) (string, bool, error) {
	if err := checkKey(key); err != nil {
		return "", false, err
	}

	var (
		value string
		found bool
	)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(b.name)
		if bucket == nil {
			return nil
		}
		// Bytes are only valid for the life of the transaction.
		if v := bucket.Get([]byte(key)); v != nil {
			value = string(v)
			found = true
		}
		return nil
	})
	if err != nil {
		return "", false, fmt.Errorf("could not read %s/%s: %w", b.name, key, err)
	}
	return value, found, nil
}

func (b *boltBucket) Put(key string, value string) error {
	if err := checkKey(key); err != nil {
		return err
	}

	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(b.name)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(key), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("could not write %s/%s: %w", b.name, key, err)
	}
	return nil
}

func (b *boltBucket) Remove(key string) error {
	if err := checkKey(key); err != nil {
		return err
	}

	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(b.name)
		if bucket == nil {
			return nil
		}
		return bucket.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("could not remove %s/%s: %w", b.name, key, err)
	}
	return nil
}
