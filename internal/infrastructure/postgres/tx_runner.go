package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/jhoicas/Movimientos-api/internal/application/transfer"
	"github.com/jhoicas/Movimientos-api/internal/application/withdrawal"
	"github.com/jhoicas/Movimientos-api/internal/domain"
	"github.com/jhoicas/Movimientos-api/internal/domain/repository"
)

var _ withdrawal.TxRunner = (*TxRunner)(nil)
var _ transfer.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
// Los conflictos de serialización, deadlocks y lock timeouts repiten la transacción completa.
type TxRunner struct {
	pool   *pgxpool.Pool
	policy RetryPolicy
	log    zerolog.Logger
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool, policy RetryPolicy, log zerolog.Logger) *TxRunner {
	return &TxRunner{pool: pool, policy: policy, log: log}
}

// RunWithdrawal transacción con repos de ítems y retiros.
func (r *TxRunner) RunWithdrawal(ctx context.Context, fn func(
	items repository.ItemRepository,
	withdrawals repository.WithdrawalRepository,
) error) error {
	return r.run(ctx, func(tx pgx.Tx) error {
		return fn(NewItemRepository(tx), NewWithdrawalRepository(tx))
	})
}

// RunTransfer transacción con repos de ítems y traslados.
func (r *TxRunner) RunTransfer(ctx context.Context, fn func(
	items repository.ItemRepository,
	transfers repository.TransferRepository,
) error) error {
	return r.run(ctx, func(tx pgx.Tx) error {
		return fn(NewItemRepository(tx), NewTransferRepository(tx))
	})
}

func (r *TxRunner) run(ctx context.Context, fn func(tx pgx.Tx) error) error {
	exhausted, err := retry(ctx, r.policy, isRetryable,
		func(attempt int, err error) {
			r.log.Warn().Err(err).Int("attempt", attempt).Msg("conflicto de concurrencia, reintentando transacción")
		},
		func() error { return r.once(ctx, fn) },
	)
	if exhausted {
		return domain.Transient(err)
	}
	return err
}

func (r *TxRunner) once(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
