package db

import (
	"context"
	"database/sql"
	"fmt"
)

// Querier is the subset of *sql.Tx the repository needs inside a scope.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Gate hands out one connection and transaction per logical operation.
type Gate struct {
	DB *sql.DB
}

// NewGate wraps an open pool.  The caller owns the pool's lifecycle.
func NewGate(db *sql.DB) *Gate { return &Gate{DB: db} }

// Scope runs fn on a dedicated connection inside a transaction.  If fn fails
// or panics the transaction is rolled back before the error (or panic)
// propagates; otherwise it is committed.  The transaction is always finished
// before the connection is released.
func (g *Gate) Scope(ctx context.Context, fn func(ctx context.Context, q Querier) error) (err error) {
	conn, err := g.DB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if cerr := tx.Commit(); cerr != nil {
			err = fmt.Errorf("commit transaction: %w", cerr)
		}
	}()

	return fn(ctx, tx)
}
