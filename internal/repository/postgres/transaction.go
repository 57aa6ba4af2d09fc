package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/PaaDream1999/inspect-drive/internal/domain/repositories"
)

// txManager implements repositories.TransactionManager on a pgx pool.
type txManager struct {
	pool *pgxpool.Pool
}

// NewTransactionManager creates a transaction manager backed by the pool.
func NewTransactionManager(pool *pgxpool.Pool) repositories.TransactionManager {
	return &txManager{pool: pool}
}

// ExecTx runs fn inside a transaction. The transaction is stored in the
// context so repositories called by fn join it automatically.
func (m *txManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	txCtx := repositories.SetTx(ctx, tx)

	if err := fn(txCtx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// db returns the transaction bound to ctx, or the pool when none is present.
func db(ctx context.Context, pool *pgxpool.Pool) repositories.DBTX {
	if tx := repositories.GetTx(ctx); tx != nil {
		return tx
	}
	return pool
}
