package repository

import (
	"context"
	"time"

	"github.com/jhoicas/Movimientos-api/internal/domain/entity"
)

// TransferRepository puerto de persistencia para traslados de activos.
type TransferRepository interface {
	Create(ctx context.Context, t *entity.TransferRequest) error
	// GetByID devuelve nil, nil si no existe.
	GetByID(ctx context.Context, id string) (*entity.TransferRequest, error)
	GetForUpdate(ctx context.Context, id string) (*entity.TransferRequest, error)
	Update(ctx context.Context, t *entity.TransferRequest) error
	AppendStep(ctx context.Context, requestID string, step entity.ApprovalStep) error
	// ListAwaitingReturn temporales completados sin devolución cuya fecha esperada cae en [from, to] (ambos inclusive).
	// from o to nil dejan el extremo abierto.
	ListAwaitingReturn(ctx context.Context, from, to *time.Time) ([]*entity.TransferRequest, error)
	ListByAsset(ctx context.Context, assetID string) ([]*entity.TransferRequest, error)
	// HasOutstandingReturn indica si el activo tiene un traslado temporal completado aún sin devolver.
	HasOutstandingReturn(ctx context.Context, assetID string) (bool, error)
}
