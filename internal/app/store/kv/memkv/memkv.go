// Package memkv is an in-process map backing for both storage tiers.
package memkv

import (
	"context"
	"sync"

	"github.com/dalemusser/exposite/internal/app/store/kv"
)

// Store is safe for concurrent use. Values are copied on the way in and out.
type Store struct {
	mu sync.RWMutex
	m  map[string][]byte
}

var (
	_ kv.Durable   = (*Store)(nil)
	_ kv.Ephemeral = (*Store)(nil)
	_ kv.Purger    = (*Store)(nil)
)

func New() *Store {
	return &Store{m: make(map[string][]byte)}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	if !ok {
		return nil, kv.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// Put writes all entries under one lock.
func (s *Store) Put(ctx context.Context, entries ...kv.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		s.m[e.Key] = append([]byte(nil), e.Value...)
	}
	return nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.Put(ctx, kv.Entry{Key: key, Value: value})
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.m, k)
	}
	return nil
}

// Purge drops every key.
func (s *Store) Purge(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m = make(map[string][]byte)
	return nil
}

// Len returns the number of stored keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}
