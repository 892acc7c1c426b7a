package repository

import (
	"context"

	"github.com/jhoicas/Movimientos-api/internal/domain/entity"
)

// WithdrawalRepository puerto de persistencia para lotes de retiro, sus líneas y su bitácora.
type WithdrawalRepository interface {
	Create(ctx context.Context, w *entity.WithdrawalRequest) error
	// GetByID devuelve nil, nil si no existe.
	GetByID(ctx context.Context, id string) (*entity.WithdrawalRequest, error)
	// GetForUpdate igual que GetByID pero bloquea la fila de la solicitud.
	GetForUpdate(ctx context.Context, id string) (*entity.WithdrawalRequest, error)
	// Update persiste estado, checklist y cantidades de las líneas.
	Update(ctx context.Context, w *entity.WithdrawalRequest) error
	AppendStep(ctx context.Context, requestID string, step entity.ApprovalStep) error
	List(ctx context.Context, status entity.WithdrawalStatus, limit, offset int) ([]*entity.WithdrawalRequest, error)
	// Count total de lotes con el mismo filtro que List, sin paginar.
	Count(ctx context.Context, status entity.WithdrawalStatus) (int, error)
}
