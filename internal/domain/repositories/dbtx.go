// Package repositories defines the narrow seams the postgres-backed
// stores need from pgx without depending on pgxpool directly: the
// executor interface common to a pool and a transaction, and the
// context plumbing that lets a repository participate transparently
// in a caller's transaction.
package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the subset of *pgxpool.Pool and pgx.Tx every repository
// method needs. Repositories accept this instead of a concrete pool
// so GetExecutor can hand them a transaction when one is in flight.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

type txKey struct{}

// WithTx attaches tx to ctx so GetTx (and therefore GetExecutor) picks
// it up for every repository call made with the returned context.
func WithTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// GetTx returns the transaction attached to ctx, or nil if none.
func GetTx(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(txKey{}).(pgx.Tx)
	return tx
}

// TxFn is the unit of work ExecTx runs inside a transaction. Returning
// an error rolls the transaction back.
type TxFn func(ctx context.Context) error

// TransactionManager runs a TxFn inside a single database transaction.
type TransactionManager interface {
	ExecTx(ctx context.Context, fn TxFn) error
}
