package reservation_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Movimientos-api/internal/application/reservation"
	"github.com/jhoicas/Movimientos-api/internal/domain"
	"github.com/jhoicas/Movimientos-api/internal/domain/entity"
	"github.com/jhoicas/Movimientos-api/internal/domain/repository"
	"github.com/jhoicas/Movimientos-api/internal/infrastructure/memory"
)

func qty(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func consumible(id string, available, total int64) entity.Item {
	return entity.Item{
		ID: id, Code: id, Name: id, Kind: entity.ItemKindConsumable, LocationID: "BOD-1",
		Status: entity.ItemStatusAvailable, AvailableQuantity: qty(available), TotalQuantity: qty(total),
	}
}

func apply(t *testing.T, st *memory.Store, deltas []reservation.Delta) error {
	t.Helper()
	g := reservation.NewGuard()
	return st.RunWithdrawal(context.Background(), func(items repository.ItemRepository, _ repository.WithdrawalRepository) error {
		return g.Apply(context.Background(), items, deltas)
	})
}

func TestApply_DescuentaTodasLasLineas(t *testing.T) {
	st := memory.NewStore()
	st.PutItem(consumible("A", 5, 5))
	st.PutItem(consumible("B", 10, 10))

	err := apply(t, st, []reservation.Delta{
		{ItemID: "A", Quantity: qty(-2)},
		{ItemID: "B", Quantity: qty(-3)},
		{ItemID: "A", Quantity: qty(-1)},
	})
	require.NoError(t, err)

	a, _ := st.Item("A")
	b, _ := st.Item("B")
	assert.True(t, a.AvailableQuantity.Equal(qty(2)), a.AvailableQuantity.String())
	assert.True(t, b.AvailableQuantity.Equal(qty(7)), b.AvailableQuantity.String())
}

func TestApply_FaltanteNoEscribeNada(t *testing.T) {
	st := memory.NewStore()
	st.PutItem(consumible("A", 5, 5))
	st.PutItem(consumible("B", 1, 10))
	st.PutItem(consumible("C", 0, 10))

	err := apply(t, st, []reservation.Delta{
		{ItemID: "A", Quantity: qty(-2)},
		{ItemID: "B", Quantity: qty(-3)},
		{ItemID: "C", Quantity: qty(-1)},
	})
	require.Error(t, err)

	var de *domain.Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, domain.KindInsufficientStock, de.Kind)
	require.Len(t, de.Shortfalls, 2)
	assert.Equal(t, "B", de.Shortfalls[0].ItemID)
	assert.True(t, de.Shortfalls[0].Requested.Equal(qty(3)))
	assert.True(t, de.Shortfalls[0].Available.Equal(qty(1)))
	assert.Equal(t, "C", de.Shortfalls[1].ItemID)

	a, _ := st.Item("A")
	assert.True(t, a.AvailableQuantity.Equal(qty(5)), "A no debe cambiar")
}

func TestApply_LineasRepetidasSeSumanAntesDeValidar(t *testing.T) {
	st := memory.NewStore()
	st.PutItem(consumible("A", 5, 5))

	err := apply(t, st, []reservation.Delta{
		{ItemID: "A", Quantity: qty(-3)},
		{ItemID: "A", Quantity: qty(-3)},
	})
	var de *domain.Error
	require.True(t, errors.As(err, &de))
	require.Len(t, de.Shortfalls, 1)
	assert.True(t, de.Shortfalls[0].Requested.Equal(qty(6)))
}

func TestApply_ItemInexistente(t *testing.T) {
	st := memory.NewStore()
	err := apply(t, st, []reservation.Delta{{ItemID: "X", Quantity: qty(-1)}})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestApply_DevolucionNoSuperaTotal(t *testing.T) {
	st := memory.NewStore()
	st.PutItem(consumible("A", 4, 5))

	err := apply(t, st, []reservation.Delta{{ItemID: "A", Quantity: qty(2)}})
	assert.ErrorIs(t, err, domain.ErrValidation)

	require.NoError(t, apply(t, st, []reservation.Delta{{ItemID: "A", Quantity: qty(1)}}))
	a, _ := st.Item("A")
	assert.True(t, a.AvailableQuantity.Equal(qty(5)))
}

func TestApply_SinDeltasNoBloquea(t *testing.T) {
	items := new(itemRepoMock)
	require.NoError(t, reservation.NewGuard().Apply(context.Background(), items, nil))
	items.AssertNotCalled(t, "LockForUpdate", mock.Anything, mock.Anything)
}

func TestApply_BloqueaEnOrdenDeID(t *testing.T) {
	items := new(itemRepoMock)
	locked := map[string]*entity.Item{
		"a": {ID: "a", AvailableQuantity: qty(5), TotalQuantity: qty(5)},
		"b": {ID: "b", AvailableQuantity: qty(5), TotalQuantity: qty(5)},
	}
	items.On("LockForUpdate", mock.Anything, []string{"a", "b"}).Return(locked, nil).Once()
	items.On("UpdateQuantity", mock.Anything, "b", mock.Anything).Return(nil).Once()
	items.On("UpdateQuantity", mock.Anything, "a", mock.Anything).Return(nil).Once()

	err := reservation.NewGuard().Apply(context.Background(), items, []reservation.Delta{
		{ItemID: "b", Quantity: qty(-1)},
		{ItemID: "a", Quantity: qty(-1)},
	})
	require.NoError(t, err)
	items.AssertExpectations(t)
}

func TestApply_PropagaErrorDeBloqueo(t *testing.T) {
	items := new(itemRepoMock)
	boom := errors.New("lock timeout")
	items.On("LockForUpdate", mock.Anything, []string{"a"}).Return(map[string]*entity.Item(nil), boom)

	err := reservation.NewGuard().Apply(context.Background(), items, []reservation.Delta{{ItemID: "a", Quantity: qty(-1)}})
	assert.ErrorIs(t, err, boom)
	items.AssertNotCalled(t, "UpdateQuantity", mock.Anything, mock.Anything, mock.Anything)
}

func relocate(t *testing.T, st *memory.Store, moves []reservation.Move) error {
	t.Helper()
	g := reservation.NewGuard()
	return st.RunTransfer(context.Background(), func(items repository.ItemRepository, _ repository.TransferRepository) error {
		return g.Relocate(context.Background(), items, moves)
	})
}

func TestRelocate(t *testing.T) {
	st := memory.NewStore()
	st.PutItem(entity.Item{ID: "ACT-1", Kind: entity.ItemKindAsset, LocationID: "SEDE-A", Status: entity.ItemStatusAvailable})

	require.NoError(t, relocate(t, st, []reservation.Move{{ItemID: "ACT-1", From: "SEDE-A", To: "SEDE-B"}}))
	it, _ := st.Item("ACT-1")
	assert.Equal(t, "SEDE-B", it.LocationID)

	err := relocate(t, st, []reservation.Move{{ItemID: "ACT-1", From: "SEDE-A", To: "SEDE-C"}})
	assert.ErrorIs(t, err, domain.ErrState)
	it, _ = st.Item("ACT-1")
	assert.Equal(t, "SEDE-B", it.LocationID)

	err = relocate(t, st, []reservation.Move{{ItemID: "ACT-1", From: "SEDE-B", To: "SEDE-B"}})
	assert.ErrorIs(t, err, domain.ErrValidation)

	err = relocate(t, st, []reservation.Move{{ItemID: "ACT-404", From: "SEDE-A", To: "SEDE-B"}})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

type itemRepoMock struct{ mock.Mock }

func (m *itemRepoMock) GetByID(ctx context.Context, id string) (*entity.Item, error) {
	args := m.Called(ctx, id)
	it, _ := args.Get(0).(*entity.Item)
	return it, args.Error(1)
}

func (m *itemRepoMock) LockForUpdate(ctx context.Context, ids []string) (map[string]*entity.Item, error) {
	args := m.Called(ctx, ids)
	locked, _ := args.Get(0).(map[string]*entity.Item)
	return locked, args.Error(1)
}

func (m *itemRepoMock) ListAvailable(ctx context.Context, locationID string) ([]*entity.Item, error) {
	args := m.Called(ctx, locationID)
	list, _ := args.Get(0).([]*entity.Item)
	return list, args.Error(1)
}

func (m *itemRepoMock) UpdateLocation(ctx context.Context, id, locationID string) error {
	return m.Called(ctx, id, locationID).Error(0)
}

func (m *itemRepoMock) UpdateQuantity(ctx context.Context, id string, delta decimal.Decimal) error {
	return m.Called(ctx, id, delta).Error(0)
}
