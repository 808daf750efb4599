// Package dbx is the database/sql layer shared by the complaint store and the
// CLI session cache.
package dbx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// DBTX lets a store run the same statements against a pool or inside a
// transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxBeginner is implemented by *sql.DB.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// TxFunc is one unit of work.
type TxFunc func(ctx context.Context, tx DBTX) error

// WithTx commits when fn succeeds. On error the transaction is rolled back
// and fn's error is returned, joined with the rollback error if that failed
// too. A panic in fn rolls back and is re-raised.
func WithTx(ctx context.Context, db TxBeginner, opts *sql.TxOptions, fn TxFunc) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		rbErr := tx.Rollback()
		if p := recover(); p != nil {
			panic(p)
		}
		if rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			err = errors.Join(err, fmt.Errorf("rollback tx: %w", rbErr))
		}
	}()

	if err = fn(ctx, tx); err != nil {
		return err
	}

	committed = true
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
