// Package txn runs MongoDB writes in a transaction when the deployment
// supports one, and falls back to running them directly when it does not
// (standalone servers, some managed offerings).
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Server error codes meaning "transactions are unavailable here".
var unsupportedCodes = map[int32]bool{
	20:  true, // IllegalOperation: transaction numbers need a replica set member
	51:  true,
	263: true, // OperationNotSupportedInTransaction
}

// IsNotSupported reports whether err says the server cannot run a
// multi-document transaction.
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && unsupportedCodes[ce.Code] {
		return true
	}
	msg := strings.ToLower(err.Error())
	has := func(s string) bool { return strings.Contains(msg, s) }
	switch {
	case has("transaction") && has("replica set"):
		return true
	case has("transaction") && has("session"):
		return true
	case has("session") && has("not supported"):
		return true
	case has("illegal operation"):
		return true
	}
	return false
}

// Run calls fn inside a transaction on client. When the server reports that
// transactions are unsupported, fn is called again without one.
func Run(ctx context.Context, client *mongo.Client, log *zap.Logger, fn func(ctx context.Context) error) error {
	if log == nil {
		log = zap.NewNop()
	}
	sess, err := client.StartSession()
	if err != nil {
		if IsNotSupported(err) {
			return fn(ctx)
		}
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		log.Debug("transactions unsupported; writing without one", zap.Error(err))
		return fn(ctx)
	}
	return err
}
