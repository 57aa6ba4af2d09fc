package repositories

import "context"

// TxFn is the unit of work ExecTx runs inside one transaction
type TxFn func(ctx context.Context) error

// TransactionManager scopes a function to a single database transaction.
type TransactionManager interface {
	// ExecTx runs fn in one transaction, rolling back when fn errors
	ExecTx(ctx context.Context, fn TxFn) error
}
