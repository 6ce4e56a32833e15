package auth_test

import (
	"errors"
	"testing"

	"github.com/dalemusser/exposite/internal/app/store/kv/memkv"
	"github.com/dalemusser/exposite/internal/app/system/auth"
	"github.com/dalemusser/exposite/internal/testutil"
)

var (
	_ auth.Guard = (*auth.Session)(nil)
	_ auth.Guard = auth.Static{}
)

func TestSession_LoginLogout(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()
	backing := memkv.New()
	s := auth.NewSession(backing, testutil.Logger(t))

	if s.LoggedIn(ctx) || s.Username(ctx) != "" {
		t.Fatal("fresh session should be logged out")
	}

	if err := s.Login(ctx, "  Profe Marta  "); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !s.LoggedIn(ctx) {
		t.Error("LoggedIn = false after Login")
	}
	if got := s.Username(ctx); got != "Profe Marta" {
		t.Errorf("Username = %q, want trimmed name", got)
	}

	// A second session over the same storage sees the login.
	if again := auth.NewSession(backing, nil); !again.LoggedIn(ctx) {
		t.Error("login did not persist")
	}

	if err := s.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if s.LoggedIn(ctx) || s.Username(ctx) != "" {
		t.Error("still logged in after Logout")
	}
	if backing.Len() != 0 {
		t.Errorf("Logout left %d keys", backing.Len())
	}
	if err := s.Logout(ctx); err != nil {
		t.Errorf("second Logout: %v", err)
	}
}

func TestSession_LoginRejectsBlankName(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()
	s := auth.NewSession(memkv.New(), nil)
	for _, name := range []string{"", "   ", "\t\n"} {
		if err := s.Login(ctx, name); !errors.Is(err, auth.ErrEmptyName) {
			t.Errorf("Login(%q) err = %v, want ErrEmptyName", name, err)
		}
	}
	if s.LoggedIn(ctx) {
		t.Error("blank login should not sign in")
	}
}

func TestStatic(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if (auth.Static{}).LoggedIn(ctx) {
		t.Error("empty Static should be logged out")
	}
	g := auth.Static{Name: "host"}
	if !g.LoggedIn(ctx) || g.Username(ctx) != "host" {
		t.Errorf("Static = %v, %q", g.LoggedIn(ctx), g.Username(ctx))
	}
}
