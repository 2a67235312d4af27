package persistence

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// TxBeginner exposes the minimal pgx pool behaviour the stores need to open transactions.
type TxBeginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// WithTx runs fn inside a transaction, committing on success and rolling back
// on any error. Multi-step writes (stage transitions, candidate creation with
// the initial audit event) go through here so neither half is ever visible alone.
func WithTx(ctx context.Context, pool TxBeginner, fn func(tx pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
