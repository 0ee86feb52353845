package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TxRunner runs a function against a transactional Store. Every mutation in
// the service layer goes through this so validation, the mutation itself and
// its audit row commit or roll back together.
type TxRunner interface {
	InTx(ctx context.Context, fn func(*Store) error) error
}

// TxManager is the pgx-backed TxRunner.
type TxManager struct {
	pool *pgxpool.Pool
}

// NewTxManager builds a TxManager on the given pool.
func NewTxManager(pool *pgxpool.Pool) *TxManager {
	return &TxManager{pool: pool}
}

// InTx begins a transaction, hands fn a Store bound to it and commits when
// fn succeeds. Any error rolls the whole transaction back; no partial state
// survives.
func (m *TxManager) InTx(ctx context.Context, fn func(*Store) error) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(NewStore(tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
