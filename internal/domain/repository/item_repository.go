package repository

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/Movimientos-api/internal/domain/entity"
)

// ItemRepository puerto hacia el almacén de ítems/stock (colaborador externo transaccional).
// Las escrituras (UpdateLocation, UpdateQuantity) solo las invoca reservation.Guard.
type ItemRepository interface {
	// GetByID devuelve nil, nil si el ítem no existe.
	GetByID(ctx context.Context, id string) (*entity.Item, error)
	// LockForUpdate bloquea las filas (SELECT FOR UPDATE, en orden de id) y devuelve el estado actual.
	// Los ids inexistentes no aparecen en el mapa.
	LockForUpdate(ctx context.Context, ids []string) (map[string]*entity.Item, error)
	ListAvailable(ctx context.Context, locationID string) ([]*entity.Item, error)
	UpdateLocation(ctx context.Context, id, locationID string) error
	UpdateQuantity(ctx context.Context, id string, delta decimal.Decimal) error
}
