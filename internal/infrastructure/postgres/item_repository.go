package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/jhoicas/Movimientos-api/internal/domain/entity"
	"github.com/jhoicas/Movimientos-api/internal/domain/repository"
)

var _ repository.ItemRepository = (*ItemRepo)(nil)

const itemColumns = `id, code, name, kind, location_id, status, returnable, available_quantity, total_quantity, updated_at`

// ItemRepo implementación de ItemRepository sobre PostgreSQL (usable con pool o tx).
type ItemRepo struct {
	q Querier
}

// NewItemRepository construye el adaptador de ítems. Pasar pool o tx (Querier).
func NewItemRepository(q Querier) *ItemRepo {
	return &ItemRepo{q: q}
}

// GetByID obtiene un ítem por ID.
func (r *ItemRepo) GetByID(ctx context.Context, id string) (*entity.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1`
	it, err := scanItem(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get item: %w", err)
	}
	return it, nil
}

// LockForUpdate bloquea las filas en orden de id (SELECT FOR UPDATE).
func (r *ItemRepo) LockForUpdate(ctx context.Context, ids []string) (map[string]*entity.Item, error) {
	out := make(map[string]*entity.Item, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = ANY($1) ORDER BY id FOR UPDATE`
	rows, err := r.q.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("lock items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		out[it.ID] = it
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("lock items: %w", err)
	}
	return out, nil
}

// ListAvailable ítems disponibles en una ubicación: activos en estado available y consumibles con saldo.
func (r *ItemRepo) ListAvailable(ctx context.Context, locationID string) ([]*entity.Item, error) {
	ds := dialect.From("items").
		Select(goqu.L(itemColumns)).
		Where(
			goqu.C("location_id").Eq(locationID),
			goqu.C("status").Eq(string(entity.ItemStatusAvailable)),
			goqu.Or(
				goqu.C("kind").Eq(string(entity.ItemKindAsset)),
				goqu.C("available_quantity").Gt(0),
			),
		).
		Order(goqu.C("code").Asc())
	query, args, err := build(ds)
	if err != nil {
		return nil, fmt.Errorf("build list items: %w", err)
	}
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()
	var list []*entity.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		list = append(list, it)
	}
	return list, rows.Err()
}

// UpdateLocation mueve el ítem a otra ubicación.
func (r *ItemRepo) UpdateLocation(ctx context.Context, id, locationID string) error {
	tag, err := r.q.Exec(ctx, `UPDATE items SET location_id = $2, updated_at = now() WHERE id = $1`, id, locationID)
	if err != nil {
		return fmt.Errorf("update item location: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update item location: ítem %s no encontrado", id)
	}
	return nil
}

// UpdateQuantity suma delta (negativo = salida) a la cantidad disponible.
// El CHECK available_quantity >= 0 de la tabla rechaza cualquier saldo negativo.
func (r *ItemRepo) UpdateQuantity(ctx context.Context, id string, delta decimal.Decimal) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE items SET available_quantity = available_quantity + $2, updated_at = now() WHERE id = $1`,
		id, delta)
	if err != nil {
		return fmt.Errorf("update item quantity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update item quantity: ítem %s no encontrado", id)
	}
	return nil
}

func scanItem(row pgx.Row) (*entity.Item, error) {
	var it entity.Item
	var kind, status string
	err := row.Scan(&it.ID, &it.Code, &it.Name, &kind, &it.LocationID, &status,
		&it.Returnable, &it.AvailableQuantity, &it.TotalQuantity, &it.UpdatedAt)
	if err != nil {
		return nil, err
	}
	it.Kind = entity.ItemKind(kind)
	it.Status = entity.ItemStatus(status)
	return &it, nil
}
