// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/exposite/internal/app/store/kv"
	"github.com/dalemusser/exposite/internal/app/store/kv/filekv"
	"github.com/dalemusser/exposite/internal/app/store/kv/sqlkv"
	goredis "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds the storage dependencies for the app. Only the fields of the
// configured backends are set.
type DBDeps struct {
	// Durable is the backing every durable store is built on.
	Durable kv.Durable

	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database
	SQLite        *sqlkv.Store
	File          *filekv.Store

	// Redis is set when ephemeral_backend is redis.
	Redis goredis.UniversalClient
}
