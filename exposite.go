// Package exposite keeps classroom groups, their members and a per-group
// rubric, and runs presentation sessions that pick presenters at random
// without repeats and score them against the rubric.
//
// An App owns the durable storage and lives as long as the process. Each
// browser tab (or any other independent view) opens its own Tab, which owns
// the ephemeral storage its presentation sessions live in.
package exposite

import (
	"context"
	"fmt"
	"sync"

	"github.com/dalemusser/exposite/internal/app/bootstrap"
	"github.com/dalemusser/exposite/internal/app/presentation"
	classroomstore "github.com/dalemusser/exposite/internal/app/store/classroom"
	"github.com/dalemusser/exposite/internal/app/system/auth"
	"github.com/dalemusser/exposite/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Config is the storage and timeout configuration. Start from DefaultConfig.
type Config = bootstrap.AppConfig

// DefaultConfig returns the configuration Open uses when nothing overrides
// it: a bbolt file under ./data and in-memory tab sessions.
func DefaultConfig() Config { return bootstrap.DefaultAppConfig() }

// Option customizes Open and OpenWithConfig.
type Option func(*options)

type options struct {
	log   *zap.Logger
	rng   presentation.Rand
	guard auth.Guard
}

// WithLogger sets the logger. The default discards everything for
// OpenWithConfig and follows the WAFFLE env setting for Open.
func WithLogger(l *zap.Logger) Option { return func(o *options) { o.log = l } }

// WithRand replaces the presenter selection source, mainly for tests.
func WithRand(r presentation.Rand) Option { return func(o *options) { o.rng = r } }

// WithGuard lets a host that authenticates users itself decide who is
// logged in. Login and Logout still record the name in durable storage.
func WithGuard(g auth.Guard) Option { return func(o *options) { o.guard = g } }

// App is the process-lifetime handle.
type App struct {
	core  *config.CoreConfig
	cfg   Config
	deps  bootstrap.DBDeps
	log   *zap.Logger
	rng   presentation.Rand
	store *classroomstore.Store
	login *auth.Session
	guard auth.Guard

	mu     sync.Mutex
	tabs   map[string]*Tab
	closed bool
}

// Open loads configuration from flags, EXPOSITE_* environment variables and
// config files, then opens the configured backings.
func Open(ctx context.Context, opts ...Option) (*App, error) {
	o := collect(opts)
	bootLog := o.log
	if bootLog == nil {
		bootLog = zap.NewNop()
	}
	core, cfg, err := bootstrap.LoadConfig(bootLog)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if o.log == nil && core != nil {
		l, err := bootstrap.NewLogger(core.Env)
		if err != nil {
			return nil, fmt.Errorf("build logger: %w", err)
		}
		opts = append(opts, WithLogger(l))
	}
	return open(ctx, core, cfg, collect(opts))
}

// OpenWithConfig opens the backings cfg names without reading flags, the
// environment or config files.
func OpenWithConfig(ctx context.Context, cfg Config, opts ...Option) (*App, error) {
	return open(ctx, nil, cfg, collect(opts))
}

func collect(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func open(ctx context.Context, core *config.CoreConfig, cfg Config, o options) (*App, error) {
	log := o.log
	if log == nil {
		log = zap.NewNop()
	}
	if err := bootstrap.ValidateConfig(core, cfg, log); err != nil {
		return nil, err
	}
	timeouts.Configure(timeouts.Config{Short: cfg.TimeoutShort, Long: cfg.TimeoutLong})

	deps, err := bootstrap.ConnectDB(ctx, core, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("connect storage: %w", err)
	}
	sctx, cancel := timeouts.WithTimeout(ctx, timeouts.Long(), log, "ensure schema")
	defer cancel()
	if err := bootstrap.EnsureSchema(sctx, core, cfg, deps, log); err != nil {
		_ = bootstrap.Shutdown(context.Background(), core, cfg, deps, log)
		return nil, err
	}
	if err := bootstrap.Startup(ctx, core, cfg, deps, log); err != nil {
		_ = bootstrap.Shutdown(context.Background(), core, cfg, deps, log)
		return nil, err
	}

	a := &App{
		core:  core,
		cfg:   cfg,
		deps:  deps,
		log:   log,
		rng:   o.rng,
		store: classroomstore.New(deps.Durable, log),
		login: auth.NewSession(deps.Durable, log),
		tabs:  make(map[string]*Tab),
	}
	a.guard = o.guard
	if a.guard == nil {
		a.guard = a.login
	}
	log.Info("exposite opened",
		zap.String("durable_backend", cfg.DurableBackend),
		zap.String("ephemeral_backend", cfg.EphemeralBackend),
		zap.Bool("sealed_sessions", cfg.SealKey != ""))
	return a, nil
}

func (a *App) short(ctx context.Context, op string) (context.Context, context.CancelFunc) {
	return timeouts.WithTimeout(ctx, timeouts.Short(), a.log, op)
}

// Login records name as the signed-in user. Blank names are rejected.
func (a *App) Login(ctx context.Context, name string) error {
	if err := a.alive(); err != nil {
		return err
	}
	ctx, cancel := a.short(ctx, "login")
	defer cancel()
	return a.login.Login(ctx, name)
}

// Logout forgets the signed-in user. Open tabs keep working.
func (a *App) Logout(ctx context.Context) error {
	if err := a.alive(); err != nil {
		return err
	}
	ctx, cancel := a.short(ctx, "logout")
	defer cancel()
	return a.login.Logout(ctx)
}

// LoggedIn reports what the guard says.
func (a *App) LoggedIn(ctx context.Context) bool {
	ctx, cancel := a.short(ctx, "logged in")
	defer cancel()
	return a.guard.LoggedIn(ctx)
}

// Username is the name shown in greetings, or "" when logged out.
func (a *App) Username(ctx context.Context) string {
	ctx, cancel := a.short(ctx, "username")
	defer cancel()
	return a.guard.Username(ctx)
}

// Check reports durable tables that exist but cannot be read. Reads of such
// tables come back empty, so a nil result is what tells "empty" apart from
// "unreadable".
func (a *App) Check(ctx context.Context) error {
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Long(), a.log, "check tables")
	defer cancel()
	return a.store.Check(ctx)
}

// NewTab opens a tab with its own session scope. The user must be logged in.
func (a *App) NewTab(ctx context.Context) (*Tab, error) {
	if err := a.alive(); err != nil {
		return nil, err
	}
	if !a.LoggedIn(ctx) {
		return nil, ErrNotLoggedIn
	}
	return a.attach(uuid.NewString(), "tab opened")
}

// ResumeTab reopens the tab with the given ID, for a host page that was
// reloaded or a process that restarted. A tab still open in this App is
// returned as is. Otherwise the tab is rebuilt over the same session scope:
// with the redis backing its sessions come back until tab_ttl expires them,
// with the memory backing it starts empty.
func (a *App) ResumeTab(ctx context.Context, id string) (*Tab, error) {
	if err := a.alive(); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTabID, id)
	}
	if !a.LoggedIn(ctx) {
		return nil, ErrNotLoggedIn
	}
	id = parsed.String()

	a.mu.Lock()
	t, ok := a.tabs[id]
	a.mu.Unlock()
	if ok {
		return t, nil
	}
	return a.attach(id, "tab resumed")
}

func (a *App) attach(id, event string) (*Tab, error) {
	eph, err := bootstrap.NewEphemeral(a.cfg, a.deps, id)
	if err != nil {
		return nil, fmt.Errorf("open tab: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil, ErrClosed
	}
	if t, ok := a.tabs[id]; ok {
		return t, nil
	}
	t := newTab(a, id, eph)
	a.tabs[id] = t
	a.log.Debug(event, zap.String("tab_id", id))
	return t, nil
}

func (a *App) forget(id string) {
	a.mu.Lock()
	delete(a.tabs, id)
	a.mu.Unlock()
}

func (a *App) alive() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}
	return nil
}

// Close closes the backings. Open tabs are detached, not purged, so they can
// be resumed by a later App; Tab.Close is what discards a tab's sessions.
// Closing twice is a no-op.
func (a *App) Close(ctx context.Context) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	open := len(a.tabs)
	a.tabs = nil
	a.mu.Unlock()

	cctx, cancel := timeouts.WithTimeout(ctx, timeouts.Long(), a.log, "close")
	defer cancel()

	err := bootstrap.Shutdown(cctx, a.core, a.cfg, a.deps, a.log)
	a.log.Info("exposite closed", zap.Int("detached_tabs", open))
	return err
}
