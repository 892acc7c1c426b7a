package withdrawal

import (
	"context"

	"github.com/jhoicas/Movimientos-api/internal/domain/repository"
)

// TxRunner ejecuta fn dentro de una transacción con repositorios atados a ella.
// Commit si fn devuelve nil, Rollback en cualquier otro caso.
type TxRunner interface {
	RunWithdrawal(ctx context.Context, fn func(
		items repository.ItemRepository,
		withdrawals repository.WithdrawalRepository,
	) error) error
}
