package rediskv_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dalemusser/exposite/internal/app/store/kv"
	"github.com/dalemusser/exposite/internal/app/store/kv/kvtest"
	"github.com/dalemusser/exposite/internal/app/store/kv/rediskv"
	goredis "github.com/redis/go-redis/v9"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestStore_Ephemeral(t *testing.T) {
	_, rdb := newClient(t)
	kvtest.RunEphemeral(t, rediskv.New(rdb, "tab-a", time.Hour))
}

func TestStore_ScopesAreIsolated(t *testing.T) {
	_, rdb := newClient(t)
	ctx := context.Background()
	a := rediskv.New(rdb, "tab-a", time.Hour)
	b := rediskv.New(rdb, "tab-b", time.Hour)

	if err := a.Set(ctx, "pres_session_1", []byte("a")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, err := b.Get(ctx, "pres_session_1"); !errors.Is(err, kv.ErrNotFound) {
		t.Errorf("tab-b saw tab-a's key: err = %v", err)
	}
}

func TestStore_Expires(t *testing.T) {
	mr, rdb := newClient(t)
	ctx := context.Background()
	s := rediskv.New(rdb, "tab-a", time.Minute)

	if err := s.Set(ctx, "pres_session_1", []byte("x")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if _, err := s.Get(ctx, "pres_session_1"); !errors.Is(err, kv.ErrNotFound) {
		t.Errorf("expected key to expire, err = %v", err)
	}
}

func TestStore_Purge(t *testing.T) {
	mr, rdb := newClient(t)
	ctx := context.Background()
	a := rediskv.New(rdb, "tab-a", time.Hour)
	b := rediskv.New(rdb, "tab-b", time.Hour)

	_ = a.Set(ctx, "pres_session_1", []byte("1"))
	_ = a.Set(ctx, "pres_session_2", []byte("2"))
	_ = b.Set(ctx, "pres_session_1", []byte("3"))

	if err := a.Purge(ctx); err != nil {
		t.Fatalf("Purge failed: %v", err)
	}
	if keys := mr.Keys(); len(keys) != 1 || keys[0] != "exposite:tab:tab-b:pres_session_1" {
		t.Errorf("keys after purge = %v", keys)
	}
}
