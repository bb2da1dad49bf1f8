package entity

import (
	"context"

	"github.com/nerrad567/entitykit/internal/instances"
)

// TransactionManager runs work inside a backend transaction.
type TransactionManager interface {
	// InTransaction runs fn with a context carrying the transaction. fn's
	// error rolls the transaction back; nil commits it.
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// NoTransactions runs work directly. It is the manager for stores without
// transactions, such as the in-memory one.
type NoTransactions struct{}

// InTransaction implements TransactionManager.
func (NoTransactions) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// Transaction runs fn through the TransactionManager bound in reg, or
// directly when none is bound.
func Transaction(ctx context.Context, reg *instances.Registry, fn func(ctx context.Context) error) error {
	var tm TransactionManager = NoTransactions{}
	if instances.IsRegistered[TransactionManager](reg) {
		bound, err := instances.Get[TransactionManager](reg)
		if err != nil {
			return err
		}
		tm = bound
	}
	return tm.InTransaction(ctx, fn)
}
