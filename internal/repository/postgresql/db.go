package postgresql

import (
	"context"
	"database/sql"
	"fmt"

	"payout/internal/port"
)

type ctxtype string

const trKey ctxtype = "tx"

func getTr(ctx context.Context) (*sql.Tx, bool) {
	tr, ok := ctx.Value(trKey).(*sql.Tx)
	return tr, ok
}

// querier is the subset of database/sql shared by *sql.DB and *sql.Tx,
// letting repository methods run inside or outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func pick(ctx context.Context, db *sql.DB) querier {
	if tr, ok := getTr(ctx); ok {
		return tr
	}
	return db
}

type txRunner struct {
	db *sql.DB
}

func NewTxRunner(db *sql.DB) port.TxRunner {
	return &txRunner{db: db}
}

// WithinTx begins a transaction, stores it in the context for the
// repositories, and commits only when fn succeeds. Nested calls join the
// enclosing transaction.
func (r *txRunner) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := getTr(ctx); ok {
		return fn(ctx)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(context.WithValue(ctx, trKey, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback after %w: %v", err, rbErr)
		}
		return err
	}
	return tx.Commit()
}
