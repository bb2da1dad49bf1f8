package sqlstore

import (
	"context"
	"database/sql"

	"github.com/nerrad567/entitykit/internal/infrastructure/database"
)

type txKey struct{}

func txFrom(ctx context.Context) *sql.Tx {
	tx, _ := ctx.Value(txKey{}).(*sql.Tx)
	return tx
}

// TransactionManager is the entity.TransactionManager of a Store's
// database. Nested calls join the outer transaction.
type TransactionManager struct {
	db *database.DB
}

// NewTransactionManager returns a manager for db.
func NewTransactionManager(db *database.DB) *TransactionManager {
	return &TransactionManager{db: db}
}

// InTransaction implements entity.TransactionManager.
func (m *TransactionManager) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFrom(ctx) != nil {
		return fn(ctx)
	}
	return m.db.InTx(ctx, func(tx *sql.Tx) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}
