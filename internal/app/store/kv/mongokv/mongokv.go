// Package mongokv keeps the durable tier in a MongoDB collection, one
// document per key.
package mongokv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/exposite/internal/app/store/kv"
	"github.com/dalemusser/exposite/internal/app/system/txn"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// DefaultCollection is the collection used when New is given "".
const DefaultCollection = "kv_entries"

type document struct {
	Key       string    `bson:"_id"`
	Value     []byte    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type Store struct {
	client *mongo.Client
	c      *mongo.Collection
	log    *zap.Logger
}

var _ kv.Durable = (*Store)(nil)

func New(client *mongo.Client, db *mongo.Database, collection string, log *zap.Logger) *Store {
	if collection == "" {
		collection = DefaultCollection
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{client: client, c: db.Collection(collection), log: log}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var doc document
	err := s.c.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, kv.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mongokv: get %q: %w", key, err)
	}
	return doc.Value, nil
}

// Put upserts every entry in one ordered bulk write, inside a transaction
// when the deployment supports it.
func (s *Store) Put(ctx context.Context, entries ...kv.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	now := time.Now().UTC()
	models := make([]mongo.WriteModel, 0, len(entries))
	for _, e := range entries {
		val := e.Value
		if val == nil {
			val = []byte{}
		}
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": e.Key}).
			SetReplacement(document{Key: e.Key, Value: val, UpdatedAt: now}).
			SetUpsert(true))
	}
	err := txn.Run(ctx, s.client, s.log, func(ctx context.Context) error {
		_, err := s.c.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true))
		return err
	})
	if err != nil {
		return fmt.Errorf("mongokv: put: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if _, err := s.c.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": keys}}); err != nil {
		return fmt.Errorf("mongokv: delete: %w", err)
	}
	return nil
}
