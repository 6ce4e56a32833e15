package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dalemusser/exposite/internal/app/store/kv"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Storage keys                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

const (
	isAuthKey   = "isAuthenticated"
	usernameKey = "username"
)

var (
	ErrEmptyName = errors.New("please enter your name to continue")
)

// Guard is what the core reads to gate access. It never verifies anything.
type Guard interface {
	LoggedIn(ctx context.Context) bool
	Username(ctx context.Context) string
}

/*─────────────────────────────────────────────────────────────────────────────*
| Session                                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

// Session keeps the signed-in name in durable storage so it survives
// restarts, the way a browser keeps it across reloads.
type Session struct {
	kv  kv.Durable
	log *zap.Logger
}

func NewSession(d kv.Durable, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{kv: d, log: log}
}

// Login stores the trimmed name. There is no password.
func (s *Session) Login(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	err := s.kv.Put(ctx,
		kv.Entry{Key: usernameKey, Value: []byte(name)},
		kv.Entry{Key: isAuthKey, Value: []byte("true")},
	)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	s.log.Info("user logged in", zap.String("username", name))
	return nil
}

// Logout forgets the user. Logging out twice succeeds.
func (s *Session) Logout(ctx context.Context) error {
	if err := s.kv.Delete(ctx, isAuthKey, usernameKey); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	s.log.Info("user logged out")
	return nil
}

// LoggedIn reports whether the flag is present. An unreadable backing counts
// as logged out.
func (s *Session) LoggedIn(ctx context.Context) bool {
	v, err := s.kv.Get(ctx, isAuthKey)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			s.log.Warn("auth flag unreadable", zap.Error(err))
		}
		return false
	}
	return len(v) > 0
}

// Username returns the stored name, or "" when none is stored.
func (s *Session) Username(ctx context.Context) string {
	v, err := s.kv.Get(ctx, usernameKey)
	if err != nil {
		return ""
	}
	return string(v)
}

// Static is a fixed Guard for hosts that authenticate elsewhere.
type Static struct {
	Name string
}

func (g Static) LoggedIn(context.Context) bool { return g.Name != "" }
func (g Static) Username(context.Context) string { return g.Name }
