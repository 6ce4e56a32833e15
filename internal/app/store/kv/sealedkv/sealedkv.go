// Package sealedkv wraps an ephemeral store so every value is authenticated,
// encrypted and stamped with a maximum age (gorilla/securecookie). A record
// that was tampered with, moved to another key, or outlived the tab TTL
// reads as missing.
package sealedkv

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dalemusser/exposite/internal/app/store/kv"
	"github.com/gorilla/securecookie"
	"golang.org/x/crypto/hkdf"
)

// MinKeyLen is the shortest secret New accepts.
const MinKeyLen = 32

var ErrShortKey = fmt.Errorf("sealedkv: key must be at least %d bytes", MinKeyLen)

type Store struct {
	inner kv.Ephemeral
	codec *securecookie.SecureCookie
}

var _ kv.Ephemeral = (*Store)(nil)

// New wraps inner. maxAge <= 0 disables the age check.
func New(inner kv.Ephemeral, secret []byte, maxAge time.Duration) (*Store, error) {
	if len(secret) < MinKeyLen {
		return nil, ErrShortKey
	}
	hashKey, blockKey, err := deriveKeys(secret)
	if err != nil {
		return nil, err
	}
	codec := securecookie.New(hashKey, blockKey)
	codec.MaxLength(0)
	codec.MaxAge(int(maxAge / time.Second))
	return &Store{inner: inner, codec: codec}, nil
}

// deriveKeys expands secret into a 64-byte HMAC key and an AES-256 key.
func deriveKeys(secret []byte) (hashKey, blockKey []byte, err error) {
	r := hkdf.New(sha256.New, secret, nil, []byte("exposite tab sessions"))
	hashKey = make([]byte, 64)
	blockKey = make([]byte, 32)
	if _, err := io.ReadFull(r, hashKey); err != nil {
		return nil, nil, fmt.Errorf("sealedkv: derive keys: %w", err)
	}
	if _, err := io.ReadFull(r, blockKey); err != nil {
		return nil, nil, fmt.Errorf("sealedkv: derive keys: %w", err)
	}
	return hashKey, blockKey, nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	raw, err := s.inner.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var value []byte
	if err := s.codec.Decode(key, string(raw), &value); err != nil {
		var scErr securecookie.Error
		if errors.As(err, &scErr) && scErr.IsDecode() {
			return nil, kv.ErrNotFound
		}
		return nil, fmt.Errorf("sealedkv: open %q: %w", key, err)
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	sealed, err := s.codec.Encode(key, value)
	if err != nil {
		return fmt.Errorf("sealedkv: seal %q: %w", key, err)
	}
	return s.inner.Set(ctx, key, []byte(sealed))
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	return s.inner.Delete(ctx, keys...)
}

// Purge forwards to the wrapped store when it supports purging.
func (s *Store) Purge(ctx context.Context) error {
	if p, ok := s.inner.(kv.Purger); ok {
		return p.Purge(ctx)
	}
	return nil
}
