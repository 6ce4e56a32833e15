// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dalemusser/exposite/internal/app/store/kv/filekv"
	"github.com/dalemusser/exposite/internal/app/store/kv/memkv"
	"github.com/dalemusser/exposite/internal/app/store/kv/mongokv"
	"github.com/dalemusser/exposite/internal/app/store/kv/sqlkv"
	"github.com/dalemusser/exposite/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	goredis "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// ConnectDB opens the configured durable backing and, for the redis
// ephemeral tier, the shared Redis client. On failure everything opened so
// far is closed again.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (deps DBDeps, err error) {
	defer func() {
		if err != nil {
			_ = Shutdown(context.Background(), coreCfg, appCfg, deps, logger)
			deps = DBDeps{}
		}
	}()

	switch appCfg.DurableBackend {
	case BackendMemory:
		logger.Warn("durable storage is in memory; data is lost on exit")
		deps.Durable = memkv.New()

	case BackendFile:
		fs, err := filekv.New(appCfg.DataDir)
		if err != nil {
			return deps, err
		}
		logger.Info("durable storage ready", zap.String("backend", BackendFile), zap.String("dir", fs.Dir()))
		deps.File = fs
		deps.Durable = fs

	case BackendSQLite:
		if dir := filepath.Dir(appCfg.SQLitePath); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return deps, fmt.Errorf("create sqlite directory: %w", err)
			}
		}
		db, err := sqlkv.Open(appCfg.SQLitePath)
		if err != nil {
			return deps, err
		}
		logger.Info("durable storage ready", zap.String("backend", BackendSQLite), zap.String("path", appCfg.SQLitePath))
		deps.SQLite = db
		deps.Durable = db

	case BackendMongo:
		client, err := connectMongo(ctx, appCfg.MongoURI, logger)
		if err != nil {
			return deps, err
		}
		deps.MongoClient = client
		deps.MongoDatabase = client.Database(appCfg.MongoDatabase)
		deps.Durable = mongokv.New(client, deps.MongoDatabase, mongokv.DefaultCollection, logger)
		logger.Info("durable storage ready", zap.String("backend", BackendMongo), zap.String("database", appCfg.MongoDatabase))

	default:
		return deps, fmt.Errorf("unknown durable_backend %q", appCfg.DurableBackend)
	}

	if appCfg.EphemeralBackend == BackendRedis {
		rdb, err := connectRedis(ctx, appCfg, logger)
		if err != nil {
			return deps, err
		}
		deps.Redis = rdb
	}
	return deps, nil
}

func connectMongo(ctx context.Context, uri string, logger *zap.Logger) (*mongo.Client, error) {
	cctx, cancel := timeouts.WithTimeout(ctx, timeouts.Long(), logger, "mongo connect")
	defer cancel()

	client, err := mongo.Connect(cctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	pctx, pcancel := timeouts.WithTimeout(ctx, timeouts.Ping(), logger, "mongo ping")
	defer pcancel()
	if err := client.Ping(pctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	logger.Info("connected to MongoDB")
	return client, nil
}

func connectRedis(ctx context.Context, appCfg AppConfig, logger *zap.Logger) (goredis.UniversalClient, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        appCfg.RedisAddr,
		Password:    appCfg.RedisPassword,
		DB:          appCfg.RedisDB,
		DialTimeout: timeouts.Short(),
	})
	pctx, cancel := timeouts.WithTimeout(ctx, timeouts.Ping(), logger, "redis ping")
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	logger.Info("connected to Redis", zap.String("addr", appCfg.RedisAddr), zap.Int("db", appCfg.RedisDB))
	return rdb, nil
}

// EnsureSchema prepares the durable backing: the kv_entries table for
// sqlite, the kv_entries collection for mongo. Other backings need nothing.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if deps.SQLite != nil {
		if err := deps.SQLite.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure sqlite schema: %w", err)
		}
	}
	if deps.MongoDatabase != nil {
		err := deps.MongoDatabase.CreateCollection(ctx, mongokv.DefaultCollection)
		var ce mongo.CommandError
		if errors.As(err, &ce) && ce.Code == 48 { // NamespaceExists
			err = nil
		}
		if err != nil {
			return fmt.Errorf("ensure mongo collection: %w", err)
		}
		logger.Info("mongo collection ready", zap.String("collection", mongokv.DefaultCollection))
	}
	return nil
}
