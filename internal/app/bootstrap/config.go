// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/exposite/internal/app/store/kv/sealedkv"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for Exposite.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: durable_backend, data_dir, etc.
//   - Environment variables: EXPOSITE_DURABLE_BACKEND, EXPOSITE_DATA_DIR, etc.
//   - Command-line flags: --durable_backend, --data_dir, etc.
var appConfigKeys = []config.AppKey{
	// Durable tier
	{Name: "durable_backend", Default: "file", Desc: "Durable storage: 'memory', 'file', 'sqlite' or 'mongo'"},
	{Name: "data_dir", Default: "./data", Desc: "Directory for the file backend"},
	{Name: "sqlite_path", Default: "./data/exposite.db", Desc: "Database file for the sqlite backend"},
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "exposite", Desc: "MongoDB database name"},

	// Ephemeral tier
	{Name: "ephemeral_backend", Default: "memory", Desc: "Tab session storage: 'memory' or 'redis'"},
	{Name: "redis_addr", Default: "localhost:6379", Desc: "Redis address (host:port)"},
	{Name: "redis_password", Default: "", Desc: "Redis password"},
	{Name: "redis_db", Default: 0, Desc: "Redis logical database"},
	{Name: "tab_ttl", Default: "12h", Desc: "How long an idle tab's sessions are kept (e.g., 12h, 90m)"},
	{Name: "seal_key", Default: "", Desc: "Secret (32+ bytes) that signs and encrypts tab sessions; blank disables"},

	// Timeouts
	{Name: "timeout_short", Default: "5s", Desc: "Timeout for single storage operations"},
	{Name: "timeout_long", Default: "30s", Desc: "Timeout for connects and multi-step operations"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles .env files, config files,
// EXPOSITE_* environment variables and command-line flags, merged with
// precedence flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "EXPOSITE", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		DurableBackend: strings.ToLower(strings.TrimSpace(appValues.String("durable_backend"))),
		DataDir:        appValues.String("data_dir"),
		SQLitePath:     appValues.String("sqlite_path"),
		MongoURI:       appValues.String("mongo_uri"),
		MongoDatabase:  appValues.String("mongo_database"),

		EphemeralBackend: strings.ToLower(strings.TrimSpace(appValues.String("ephemeral_backend"))),
		RedisAddr:        appValues.String("redis_addr"),
		RedisPassword:    appValues.String("redis_password"),
		RedisDB:          appValues.Int("redis_db"),
		TabTTL:           appValues.Duration("tab_ttl", 12*time.Hour),
		SealKey:          appValues.String("seal_key"),

		TimeoutShort: appValues.Duration("timeout_short", 5*time.Second),
		TimeoutLong:  appValues.Duration("timeout_long", 30*time.Second),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// Only the settings the chosen backends use are checked. coreCfg may be nil
// when the host built the config itself.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	switch appCfg.DurableBackend {
	case BackendMemory:
	case BackendFile:
		if strings.TrimSpace(appCfg.DataDir) == "" {
			return fmt.Errorf("durable_backend %q requires data_dir", BackendFile)
		}
	case BackendSQLite:
		if strings.TrimSpace(appCfg.SQLitePath) == "" {
			return fmt.Errorf("durable_backend %q requires sqlite_path", BackendSQLite)
		}
	case BackendMongo:
		if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
			logger.Error("invalid MongoDB URI", zap.Error(err))
			return fmt.Errorf("invalid MongoDB URI: %w", err)
		}
		if strings.TrimSpace(appCfg.MongoDatabase) == "" {
			return fmt.Errorf("durable_backend %q requires mongo_database", BackendMongo)
		}
	default:
		return fmt.Errorf("unknown durable_backend %q (want memory, file, sqlite or mongo)", appCfg.DurableBackend)
	}

	switch appCfg.EphemeralBackend {
	case BackendMemory:
	case BackendRedis:
		if strings.TrimSpace(appCfg.RedisAddr) == "" {
			return fmt.Errorf("ephemeral_backend %q requires redis_addr", BackendRedis)
		}
		if appCfg.RedisDB < 0 {
			return fmt.Errorf("redis_db must not be negative")
		}
	default:
		return fmt.Errorf("unknown ephemeral_backend %q (want memory or redis)", appCfg.EphemeralBackend)
	}

	if appCfg.SealKey != "" && len(appCfg.SealKey) < sealedkv.MinKeyLen {
		return fmt.Errorf("seal_key must be at least %d bytes", sealedkv.MinKeyLen)
	}
	if appCfg.TabTTL <= 0 {
		return fmt.Errorf("tab_ttl must be positive")
	}
	if appCfg.TimeoutShort <= 0 || appCfg.TimeoutLong <= 0 {
		return fmt.Errorf("timeout_short and timeout_long must be positive")
	}
	return nil
}
