// Package kv defines the two storage tiers Exposite persists to.
//
// Durable holds the classroom tables and outlives the process. Ephemeral
// holds presentation sessions and lives only as long as the tab that owns
// it. Backings live in sub-packages (memkv, filekv, sqlkv, mongokv,
// rediskv, sealedkv) so callers choose one per tier at bootstrap.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key holds no value.
var ErrNotFound = errors.New("kv: key not found")

// Entry is one key/value pair written by Durable.Put.
type Entry struct {
	Key   string
	Value []byte
}

// Durable is the long-lived tier.
//
// Put writes every entry or none of them when the backing supports it
// (memory, file within one directory, sqlite, mongo replica sets). A
// standalone mongo server falls back to an ordered write.
type Durable interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, entries ...Entry) error
	Delete(ctx context.Context, keys ...string) error
}

// Ephemeral is the tab-scoped tier. Implementations are created per tab.
type Ephemeral interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
}

// Purger is implemented by ephemeral backings that can drop every key of
// their scope at once (called when a tab closes).
type Purger interface {
	Purge(ctx context.Context) error
}
