package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/Movimientos-api/internal/domain"
	"github.com/jhoicas/Movimientos-api/internal/domain/entity"
)

type itemRepo struct {
	s    *Store
	inTx bool
}

func (r *itemRepo) GetByID(_ context.Context, id string) (*entity.Item, error) {
	defer r.s.acquire(r.inTx)()
	it, ok := r.s.items[id]
	if !ok {
		return nil, nil
	}
	c := *it
	return &c, nil
}

func (r *itemRepo) LockForUpdate(_ context.Context, ids []string) (map[string]*entity.Item, error) {
	defer r.s.acquire(r.inTx)()
	out := make(map[string]*entity.Item, len(ids))
	for _, id := range ids {
		if it, ok := r.s.items[id]; ok {
			c := *it
			out[id] = &c
		}
	}
	return out, nil
}

func (r *itemRepo) ListAvailable(_ context.Context, locationID string) ([]*entity.Item, error) {
	defer r.s.acquire(r.inTx)()
	var list []*entity.Item
	for _, id := range sortedKeys(r.s.items) {
		it := r.s.items[id]
		if it.LocationID != locationID || it.Status != entity.ItemStatusAvailable {
			continue
		}
		if it.Kind == entity.ItemKindConsumable && !it.AvailableQuantity.IsPositive() {
			continue
		}
		c := *it
		list = append(list, &c)
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].Code < list[j].Code })
	return list, nil
}

func (r *itemRepo) UpdateLocation(_ context.Context, id, locationID string) error {
	defer r.s.acquire(r.inTx)()
	it, ok := r.s.items[id]
	if !ok {
		return fmt.Errorf("update item location: ítem %s no encontrado", id)
	}
	it.LocationID = locationID
	it.UpdatedAt = time.Now()
	return nil
}

// UpdateQuantity aplica el delta; un saldo negativo falla igual que el CHECK de la tabla.
func (r *itemRepo) UpdateQuantity(_ context.Context, id string, delta decimal.Decimal) error {
	defer r.s.acquire(r.inTx)()
	it, ok := r.s.items[id]
	if !ok {
		return fmt.Errorf("update item quantity: ítem %s no encontrado", id)
	}
	next := it.AvailableQuantity.Add(delta)
	if next.IsNegative() {
		return fmt.Errorf("update item quantity: saldo negativo para %s", id)
	}
	it.AvailableQuantity = next
	it.UpdatedAt = time.Now()
	return nil
}

type withdrawalRepo struct {
	s    *Store
	inTx bool
}

func (r *withdrawalRepo) Create(_ context.Context, w *entity.WithdrawalRequest) error {
	defer r.s.acquire(r.inTx)()
	if _, exists := r.s.withdrawals[w.ID]; exists {
		return domain.State("la solicitud %s ya existe", w.ID)
	}
	for i := range w.Lines {
		w.Lines[i].RequestID = w.ID
	}
	r.s.withdrawals[w.ID] = cloneWithdrawal(w)
	return nil
}

func (r *withdrawalRepo) GetByID(_ context.Context, id string) (*entity.WithdrawalRequest, error) {
	defer r.s.acquire(r.inTx)()
	w, ok := r.s.withdrawals[id]
	if !ok {
		return nil, nil
	}
	return cloneWithdrawal(w), nil
}

func (r *withdrawalRepo) GetForUpdate(ctx context.Context, id string) (*entity.WithdrawalRequest, error) {
	return r.GetByID(ctx, id)
}

func (r *withdrawalRepo) Update(_ context.Context, w *entity.WithdrawalRequest) error {
	defer r.s.acquire(r.inTx)()
	cur, ok := r.s.withdrawals[w.ID]
	if !ok {
		return domain.NotFound("solicitud de retiro %s no encontrada", w.ID)
	}
	c := cloneWithdrawal(w)
	c.Steps = cur.Steps
	r.s.withdrawals[w.ID] = c
	return nil
}

func (r *withdrawalRepo) AppendStep(_ context.Context, requestID string, step entity.ApprovalStep) error {
	defer r.s.acquire(r.inTx)()
	w, ok := r.s.withdrawals[requestID]
	if !ok {
		return domain.NotFound("solicitud de retiro %s no encontrada", requestID)
	}
	w.Steps = append(w.Steps, step)
	return nil
}

func (r *withdrawalRepo) List(_ context.Context, status entity.WithdrawalStatus, limit, offset int) ([]*entity.WithdrawalRequest, error) {
	defer r.s.acquire(r.inTx)()
	var list []*entity.WithdrawalRequest
	for _, w := range r.s.withdrawals {
		if status == "" || w.Status == status {
			list = append(list, cloneWithdrawal(w))
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID > list[j].ID
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return page(list, limit, offset), nil
}

func (r *withdrawalRepo) Count(_ context.Context, status entity.WithdrawalStatus) (int, error) {
	defer r.s.acquire(r.inTx)()
	total := 0
	for _, w := range r.s.withdrawals {
		if status == "" || w.Status == status {
			total++
		}
	}
	return total, nil
}

type transferRepo struct {
	s    *Store
	inTx bool
}

func (r *transferRepo) Create(_ context.Context, t *entity.TransferRequest) error {
	defer r.s.acquire(r.inTx)()
	if _, exists := r.s.transfers[t.ID]; exists {
		return domain.State("el traslado %s ya existe", t.ID)
	}
	r.s.transfers[t.ID] = cloneTransfer(t)
	return nil
}

func (r *transferRepo) GetByID(_ context.Context, id string) (*entity.TransferRequest, error) {
	defer r.s.acquire(r.inTx)()
	t, ok := r.s.transfers[id]
	if !ok {
		return nil, nil
	}
	return cloneTransfer(t), nil
}

func (r *transferRepo) GetForUpdate(ctx context.Context, id string) (*entity.TransferRequest, error) {
	return r.GetByID(ctx, id)
}

func (r *transferRepo) Update(_ context.Context, t *entity.TransferRequest) error {
	defer r.s.acquire(r.inTx)()
	cur, ok := r.s.transfers[t.ID]
	if !ok {
		return domain.NotFound("traslado %s no encontrado", t.ID)
	}
	c := cloneTransfer(t)
	c.Steps = cur.Steps
	r.s.transfers[t.ID] = c
	return nil
}

func (r *transferRepo) AppendStep(_ context.Context, requestID string, step entity.ApprovalStep) error {
	defer r.s.acquire(r.inTx)()
	t, ok := r.s.transfers[requestID]
	if !ok {
		return domain.NotFound("traslado %s no encontrado", requestID)
	}
	t.Steps = append(t.Steps, step)
	return nil
}

func (r *transferRepo) ListAwaitingReturn(_ context.Context, from, to *time.Time) ([]*entity.TransferRequest, error) {
	defer r.s.acquire(r.inTx)()
	var list []*entity.TransferRequest
	for _, t := range r.s.transfers {
		if t.Type != entity.TransferTemporary || t.Status != entity.TransferCompleted ||
			t.ActualReturn != nil || t.ExpectedReturn == nil {
			continue
		}
		if from != nil && t.ExpectedReturn.Before(*from) {
			continue
		}
		if to != nil && t.ExpectedReturn.After(*to) {
			continue
		}
		list = append(list, cloneTransfer(t))
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ExpectedReturn.Before(*list[j].ExpectedReturn) })
	return list, nil
}

func (r *transferRepo) HasOutstandingReturn(_ context.Context, assetID string) (bool, error) {
	defer r.s.acquire(r.inTx)()
	for _, t := range r.s.transfers {
		if t.AssetID == assetID && t.Type == entity.TransferTemporary &&
			t.Status == entity.TransferCompleted && t.ActualReturn == nil {
			return true, nil
		}
	}
	return false, nil
}

func (r *transferRepo) ListByAsset(_ context.Context, assetID string) ([]*entity.TransferRequest, error) {
	defer r.s.acquire(r.inTx)()
	var list []*entity.TransferRequest
	for _, t := range r.s.transfers {
		if t.AssetID == assetID {
			list = append(list, cloneTransfer(t))
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID > list[j].ID
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list, nil
}

func page[T any](list []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(list) {
		return nil
	}
	list = list[offset:]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}
