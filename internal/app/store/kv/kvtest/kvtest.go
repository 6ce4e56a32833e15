// Package kvtest holds conformance checks shared by every kv backing's tests.
package kvtest

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dalemusser/exposite/internal/app/store/kv"
)

func testContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}

// RunDurable exercises the kv.Durable contract against a fresh store.
func RunDurable(t *testing.T, s kv.Durable) {
	t.Helper()
	ctx, cancel := testContext()
	defer cancel()

	t.Run("missing key", func(t *testing.T) {
		if _, err := s.Get(ctx, "missing"); !errors.Is(err, kv.ErrNotFound) {
			t.Fatalf("Get(missing) err = %v, want ErrNotFound", err)
		}
	})

	t.Run("put and get", func(t *testing.T) {
		err := s.Put(ctx,
			kv.Entry{Key: "groups", Value: []byte(`[{"id":1}]`)},
			kv.Entry{Key: "members", Value: []byte(`[]`)},
		)
		if err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		got, err := s.Get(ctx, "groups")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !bytes.Equal(got, []byte(`[{"id":1}]`)) {
			t.Errorf("Get(groups) = %q", got)
		}
		got, err = s.Get(ctx, "members")
		if err != nil || string(got) != `[]` {
			t.Errorf("Get(members) = %q, %v", got, err)
		}
	})

	t.Run("overwrite", func(t *testing.T) {
		if err := s.Put(ctx, kv.Entry{Key: "groups", Value: []byte(`[]`)}); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		got, err := s.Get(ctx, "groups")
		if err != nil || string(got) != `[]` {
			t.Errorf("Get after overwrite = %q, %v", got, err)
		}
	})

	t.Run("returned value is a copy", func(t *testing.T) {
		got, err := s.Get(ctx, "groups")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if len(got) > 0 {
			got[0] = 'X'
		}
		again, _ := s.Get(ctx, "groups")
		if string(again) != `[]` {
			t.Errorf("stored value changed through returned slice: %q", again)
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := s.Delete(ctx, "groups", "members", "never-set"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if _, err := s.Get(ctx, "groups"); !errors.Is(err, kv.ErrNotFound) {
			t.Errorf("Get after Delete err = %v, want ErrNotFound", err)
		}
	})
}

// RunEphemeral exercises the kv.Ephemeral contract against a fresh store.
func RunEphemeral(t *testing.T, s kv.Ephemeral) {
	t.Helper()
	ctx, cancel := testContext()
	defer cancel()

	if _, err := s.Get(ctx, "pres_session_1"); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("Get(missing) err = %v, want ErrNotFound", err)
	}
	if err := s.Set(ctx, "pres_session_1", []byte(`{"active":true}`)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, err := s.Get(ctx, "pres_session_1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != `{"active":true}` {
		t.Errorf("Get = %q", got)
	}
	if err := s.Delete(ctx, "pres_session_1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.Get(ctx, "pres_session_1"); !errors.Is(err, kv.ErrNotFound) {
		t.Errorf("Get after Delete err = %v, want ErrNotFound", err)
	}
	// Deleting a missing key is not an error.
	if err := s.Delete(ctx, "pres_session_1"); err != nil {
		t.Errorf("second Delete err = %v", err)
	}
}
