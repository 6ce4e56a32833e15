// Package rediskv keeps the ephemeral tier in Redis. Each tab gets its own
// key prefix and every key expires after the tab TTL, so abandoned tabs
// clean themselves up.
package rediskv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/exposite/internal/app/store/kv"
	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "exposite:tab:"

type Store struct {
	rdb    goredis.UniversalClient
	prefix string
	ttl    time.Duration
}

var (
	_ kv.Ephemeral = (*Store)(nil)
	_ kv.Purger    = (*Store)(nil)
)

// New returns the store for one tab scope. A ttl <= 0 means keys never
// expire on their own.
func New(rdb goredis.UniversalClient, scope string, ttl time.Duration) *Store {
	return &Store{rdb: rdb, prefix: keyPrefix + scope + ":", ttl: ttl}
}

func (s *Store) key(k string) string { return s.prefix + k }

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, kv.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("rediskv: get %q: %w", key, err)
	}
	return b, nil
}

// Set writes value and refreshes the key's expiry.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	ttl := s.ttl
	if ttl < 0 {
		ttl = 0
	}
	if err := s.rdb.Set(ctx, s.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("rediskv: set %q: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.key(k)
	}
	if err := s.rdb.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("rediskv: delete: %w", err)
	}
	return nil
}

// Purge deletes every key in this tab's scope.
func (s *Store) Purge(ctx context.Context) error {
	var keys []string
	iter := s.rdb.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("rediskv: scan: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("rediskv: purge: %w", err)
	}
	return nil
}
