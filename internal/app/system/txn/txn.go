// Package txn runs multi-document relationship updates inside a MongoDB
// transaction when the deployment supports one (replica set or mongos), and
// degrades to plain sequential writes on standalone servers.
//
// The fallback matters for the two-sided reference updates in the relation
// package: with a transaction both sides commit or neither does; without
// one the writes are ordered so an interruption leaves at worst a missing
// back-reference, which the integrity checker reports.
package txn

import (
	"context"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
)

// WithTransaction runs fn transactionally against client. If the server
// does not support transactions, fn runs once directly with the original
// context.
func WithTransaction(ctx context.Context, client *mongo.Client, fn func(ctx context.Context) error) error {
	sess, err := client.StartSession()
	if err != nil {
		if IsNotSupported(err) {
			return fn(ctx)
		}
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		return fn(ctx)
	}
	return err
}

// Server error codes that indicate transactions are unavailable.
const (
	codeTransactionsNotAllowed = 20  // standalone mongod
	codeIllegalOperation       = 51  // txn-incompatible command
	codeOperationNotSupported  = 263 // cannot run in a multi-document transaction
)

// IsNotSupported reports whether err indicates the server cannot run
// transactions, as opposed to a transaction that legitimately failed.
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}
	if ce, ok := err.(mongo.CommandError); ok {
		switch ce.Code {
		case codeTransactionsNotAllowed, codeIllegalOperation, codeOperationNotSupported:
			return true
		}
	}
	// Driver and server wrap the condition in several message shapes; match
	// keyword pairs rather than exact strings.
	msg := strings.ToLower(err.Error())
	has := func(s string) bool { return strings.Contains(msg, s) }
	switch {
	case has("transaction") && has("replica set"):
		return true
	case has("session") && has("not supported"):
		return true
	case has("transaction") && has("session"):
		return true
	case has("illegal operation") && has("transaction"):
		return true
	}
	return false
}
