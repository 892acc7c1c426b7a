// Package reservation contiene el único camino de escritura sobre cantidades y ubicaciones de ítems.
package reservation

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/Movimientos-api/internal/domain"
	"github.com/jhoicas/Movimientos-api/internal/domain/repository"
)

// Delta cambio de cantidad disponible de un ítem (negativo = salida, positivo = devolución).
type Delta struct {
	ItemID   string
	Quantity decimal.Decimal
}

// Move cambio de ubicación de un ítem; From debe coincidir con la ubicación actual.
type Move struct {
	ItemID string
	From   string
	To     string
}

// Guard hace atómico el "verificar disponibilidad y luego mutar" sobre uno o varios ítems.
// Debe invocarse con un ItemRepository atado a la transacción del llamador: si Guard
// devuelve error, el llamador hace Rollback y ninguna escritura queda visible.
type Guard struct{}

// NewGuard construye el guard.
func NewGuard() *Guard {
	return &Guard{}
}

// Apply bloquea todos los ítems referenciados, relee su disponibilidad y aplica todos los
// deltas o ninguno. Las líneas del mismo ítem se suman antes de validar.
// Si falta stock devuelve StockInsufficientError con un faltante por cada ítem que falla.
func (g *Guard) Apply(ctx context.Context, items repository.ItemRepository, deltas []Delta) error {
	if len(deltas) == 0 {
		return nil
	}
	totals := make(map[string]decimal.Decimal, len(deltas))
	order := make([]string, 0, len(deltas))
	for _, d := range deltas {
		if d.ItemID == "" {
			return domain.Validation("item_id requerido")
		}
		if _, seen := totals[d.ItemID]; !seen {
			order = append(order, d.ItemID)
			totals[d.ItemID] = decimal.Zero
		}
		totals[d.ItemID] = totals[d.ItemID].Add(d.Quantity)
	}

	locked, err := items.LockForUpdate(ctx, sortedIDs(order))
	if err != nil {
		return err
	}

	var shortfalls []domain.Shortfall
	for _, id := range order {
		it, ok := locked[id]
		if !ok {
			return domain.NotFound("ítem %s no encontrado", id)
		}
		next := it.AvailableQuantity.Add(totals[id])
		if next.IsNegative() {
			shortfalls = append(shortfalls, domain.Shortfall{
				ItemID:    id,
				Requested: totals[id].Neg(),
				Available: it.AvailableQuantity,
			})
			continue
		}
		if next.GreaterThan(it.TotalQuantity) {
			return domain.Validation("la devolución de %s supera la cantidad total del ítem", id)
		}
	}
	if len(shortfalls) > 0 {
		return domain.InsufficientStock(shortfalls)
	}

	for _, id := range order {
		if totals[id].IsZero() {
			continue
		}
		if err := items.UpdateQuantity(ctx, id, totals[id]); err != nil {
			return err
		}
	}
	return nil
}

// Relocate bloquea los ítems, verifica que sigan en la ubicación de origen y los mueve.
func (g *Guard) Relocate(ctx context.Context, items repository.ItemRepository, moves []Move) error {
	if len(moves) == 0 {
		return nil
	}
	ids := make([]string, 0, len(moves))
	for _, m := range moves {
		if m.From == m.To {
			return domain.Validation("origen y destino deben ser distintos")
		}
		ids = append(ids, m.ItemID)
	}
	locked, err := items.LockForUpdate(ctx, sortedIDs(ids))
	if err != nil {
		return err
	}
	for _, m := range moves {
		it, ok := locked[m.ItemID]
		if !ok {
			return domain.NotFound("activo %s no encontrado", m.ItemID)
		}
		if it.LocationID != m.From {
			return domain.State("el activo %s está en %s, no en %s", m.ItemID, it.LocationID, m.From)
		}
	}
	for _, m := range moves {
		if err := items.UpdateLocation(ctx, m.ItemID, m.To); err != nil {
			return err
		}
	}
	return nil
}

// sortedIDs orden fijo de bloqueo para evitar deadlocks entre lotes que comparten ítems.
func sortedIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
