// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// Backend names accepted by durable_backend and ephemeral_backend.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMongo  = "mongo"
	BackendRedis  = "redis"
)

// AppConfig holds Exposite's configuration.
//
// Values come from environment variables (EXPOSITE_*), configuration files,
// or command-line flags, loaded in LoadConfig. Hosts that build the config
// themselves start from DefaultAppConfig.
//
// The durable tier holds groups, members, rubric items and the signed-in
// name. The ephemeral tier holds one browser tab's presentation sessions.
type AppConfig struct {
	// Durable tier
	DurableBackend string // memory, file, sqlite or mongo
	DataDir        string // directory for the file backend
	SQLitePath     string // database file for the sqlite backend
	MongoURI       string // MongoDB connection string
	MongoDatabase  string // database name within MongoDB

	// Ephemeral tier
	EphemeralBackend string        // memory or redis
	RedisAddr        string        // host:port
	RedisPassword    string        // blank for none
	RedisDB          int           // logical database number
	TabTTL           time.Duration // redis key expiry and sealed record max age
	SealKey          string        // when set, ephemeral records are signed and encrypted

	// Operation timeouts
	TimeoutShort time.Duration // single reads and writes
	TimeoutLong  time.Duration // connects and multi-step operations
}

// DefaultAppConfig mirrors the defaults in appConfigKeys.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		DurableBackend:   BackendFile,
		DataDir:          "./data",
		SQLitePath:       "./data/exposite.db",
		MongoURI:         "mongodb://localhost:27017",
		MongoDatabase:    "exposite",
		EphemeralBackend: BackendMemory,
		RedisAddr:        "localhost:6379",
		TabTTL:           12 * time.Hour,
		TimeoutShort:     5 * time.Second,
		TimeoutLong:      30 * time.Second,
	}
}
