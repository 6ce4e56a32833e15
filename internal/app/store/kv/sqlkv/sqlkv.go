// Package sqlkv keeps the durable tier in an embedded SQLite database
// through gorm. Multi-key Puts run in one transaction.
package sqlkv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/exposite/internal/app/store/kv"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// Record is one row of the kv_entries table.
type Record struct {
	Key       string `gorm:"primaryKey;column:entry_key"`
	Value     []byte `gorm:"column:value;not null"`
	UpdatedAt time.Time
}

func (Record) TableName() string { return "kv_entries" }

type Store struct {
	db *gorm.DB
}

var _ kv.Durable = (*Store)(nil)

// Open opens (creating if needed) the SQLite file at path and migrates the
// kv_entries table. Use ":memory:" for a throwaway database.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("sqlkv: open %s: %w", path, err)
	}
	// One connection keeps ":memory:" databases shared across calls and
	// serializes writers on SQLite.
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	s := New(db)
	if err := s.EnsureSchema(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

// New wraps an existing gorm handle. Call EnsureSchema before use.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the gorm handle (for shutdown).
func (s *Store) DB() *gorm.DB { return s.db }

// EnsureSchema creates or migrates the kv_entries table.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&Record{}); err != nil {
		return fmt.Errorf("sqlkv: migrate: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var rec Record
	err := s.db.WithContext(ctx).Where("entry_key = ?", key).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, kv.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlkv: get %q: %w", key, err)
	}
	return rec.Value, nil
}

func (s *Store) Put(ctx context.Context, entries ...kv.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	now := time.Now().UTC()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, e := range entries {
			val := e.Value
			if val == nil {
				val = []byte{}
			}
			rec := Record{Key: e.Key, Value: val, UpdatedAt: now}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "entry_key"}},
				DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
			}).Create(&rec).Error
			if err != nil {
				return fmt.Errorf("sqlkv: put %q: %w", e.Key, err)
			}
		}
		return nil
	})
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Where("entry_key IN ?", keys).Delete(&Record{}).Error; err != nil {
		return fmt.Errorf("sqlkv: delete: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
