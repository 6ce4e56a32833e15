// Package filekv keeps the durable tier in a single bbolt file inside the
// data directory.
//
// Every Put runs in one bbolt write transaction, so either all of its entries
// land or none do. bbolt takes an exclusive file lock: a second process
// opening the same directory waits up to LockTimeout and then fails.
package filekv

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dalemusser/exposite/internal/app/store/kv"
	bolt "go.etcd.io/bbolt"
)

// FileName is the database file created inside the data directory.
const FileName = "exposite.bolt"

// LockTimeout bounds the wait for another process's file lock.
const LockTimeout = 2 * time.Second

var bucket = []byte("kv")

type Store struct {
	dir string
	db  *bolt.DB
}

var _ kv.Durable = (*Store)(nil)

// New opens (creating if needed) the store in dir. Close releases the file.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("filekv: directory required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("filekv: create %s: %w", dir, err)
	}
	path := filepath.Join(dir, FileName)
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: LockTimeout})
	if err != nil {
		return nil, fmt.Errorf("filekv: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("filekv: init %s: %w", path, err)
	}
	return &Store{dir: dir, db: db}, nil
}

// Dir returns the backing directory.
func (s *Store) Dir() string { return s.dir }

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		k, v := tx.Bucket(bucket).Cursor().Seek([]byte(key))
		if k == nil || !bytes.Equal(k, []byte(key)) {
			return kv.ErrNotFound
		}
		// v is only valid inside the transaction.
		out = append([]byte{}, v...)
		return nil
	})
	if errors.Is(err, kv.ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("filekv: read %q: %w", key, err)
	}
	return out, nil
}

func (s *Store) Put(ctx context.Context, entries ...kv.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		for _, e := range entries {
			val := e.Value
			if val == nil {
				val = []byte{}
			}
			if err := b.Put([]byte(e.Key), val); err != nil {
				return fmt.Errorf("filekv: put %q: %w", e.Key, err)
			}
		}
		return nil
	})
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		for _, k := range keys {
			if err := b.Delete([]byte(k)); err != nil {
				return fmt.Errorf("filekv: delete %q: %w", k, err)
			}
		}
		return nil
	})
}

// Close releases the database file and its lock.
func (s *Store) Close() error {
	return s.db.Close()
}
