package transfer

import (
	"context"

	"github.com/jhoicas/Movimientos-api/internal/domain/repository"
)

// TxRunner ejecuta fn dentro de una transacción con repositorios atados a ella.
type TxRunner interface {
	RunTransfer(ctx context.Context, fn func(
		items repository.ItemRepository,
		transfers repository.TransferRepository,
	) error) error
}
