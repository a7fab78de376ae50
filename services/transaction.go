package services

import (
	"context"
	"fmt"

	"github.com/upb/entitybus/repositories"
)

// WithTransaction runs fn inside one transaction. See WithTransactionResult.
func WithTransaction(ctx context.Context, txMgr repositories.TransactionManager, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	_, err := WithTransactionResult(ctx, txMgr, func(ctx context.Context, tx repositories.Transaction) (struct{}, error) {
		return struct{}{}, fn(ctx, tx)
	})
	return err
}

// WithTransactionResult runs fn inside one transaction and returns its result.
// fn receives a context carrying the transaction; repository calls made with
// that context run on it. The first error returned by fn rolls back every
// write fn made, and fn's error is returned unchanged unless the rollback
// itself fails. A panic rolls back and is re-raised.
func WithTransactionResult[T any](ctx context.Context, txMgr repositories.TransactionManager, fn func(ctx context.Context, tx repositories.Transaction) (T, error)) (T, error) {
	var zero T

	tx, err := txMgr.Begin(ctx)
	if err != nil {
		return zero, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	result, err := fn(repositories.ContextWithTransaction(ctx, tx), tx)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return result, fmt.Errorf("transaction error: %v, rollback error: %w", err, rbErr)
		}
		return result, err
	}

	if err := tx.Commit(); err != nil {
		return zero, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return result, nil
}
