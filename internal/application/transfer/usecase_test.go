package transfer_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Movimientos-api/internal/application/reservation"
	"github.com/jhoicas/Movimientos-api/internal/application/transfer"
	"github.com/jhoicas/Movimientos-api/internal/domain"
	"github.com/jhoicas/Movimientos-api/internal/domain/entity"
	"github.com/jhoicas/Movimientos-api/internal/infrastructure/memory"
)

var (
	maker    = entity.Actor{ID: "u-maker", Role: entity.RoleMaker}
	approver = entity.Actor{ID: "u-approver", Role: entity.RoleApprover}
	releaser = entity.Actor{ID: "u-releaser", Role: entity.RoleReleaser}
)

func day(d int) time.Time { return time.Date(2025, 1, d, 0, 0, 0, 0, time.UTC) }

func ptr(t time.Time) *time.Time { return &t }

type fixture struct {
	uc    *transfer.UseCase
	store *memory.Store
	now   time.Time
}

func setup(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{store: memory.NewStore(), now: day(10)}
	f.store.PutItem(entity.Item{ID: "ACT-1", Code: "ACT-1", Name: "Taladro", Kind: entity.ItemKindAsset,
		LocationID: "SEDE-A", Status: entity.ItemStatusAvailable})
	f.store.PutItem(entity.Item{ID: "ACT-2", Code: "ACT-2", Name: "Generador", Kind: entity.ItemKindAsset,
		LocationID: "SEDE-A", Status: entity.ItemStatusMaintenance})
	f.store.PutItem(entity.Item{ID: "CON-1", Code: "CON-1", Name: "Guantes", Kind: entity.ItemKindConsumable,
		LocationID: "SEDE-A", Status: entity.ItemStatusAvailable})
	f.uc = transfer.NewUseCase(f.store, f.store.Transfers(), reservation.NewGuard(), zerolog.Nop()).
		WithClock(func() time.Time { return f.now })
	return f
}

func temporal(assetID string) transfer.CreateInput {
	return transfer.CreateInput{
		AssetID: assetID, FromLocationID: "SEDE-A", ToLocationID: "SEDE-B",
		Type: entity.TransferTemporary, TransferDate: day(10), ExpectedReturn: ptr(day(20)),
	}
}

// completado crea, aprueba y completa un traslado temporal de ACT-1.
func (f *fixture) completado(t *testing.T) *entity.TransferRequest {
	t.Helper()
	ctx := context.Background()
	tr, err := f.uc.Create(ctx, maker, temporal("ACT-1"))
	require.NoError(t, err)
	_, err = f.uc.Approve(ctx, tr.ID, approver, "")
	require.NoError(t, err)
	tr, err = f.uc.Complete(ctx, tr.ID, releaser, "entregado")
	require.NoError(t, err)
	require.Equal(t, entity.TransferCompleted, tr.Status)
	return tr
}

func (f *fixture) location(t *testing.T, id string) string {
	t.Helper()
	it, ok := f.store.Item(id)
	require.True(t, ok)
	return it.LocationID
}

func TestCreate_OrigenIgualDestinoSiempreRechaza(t *testing.T) {
	f := setup(t)
	_, err := f.uc.Create(context.Background(), entity.Actor{}, transfer.CreateInput{FromLocationID: "SEDE-A", ToLocationID: "SEDE-A"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	in := temporal("ACT-1")
	in.ToLocationID = in.FromLocationID
	_, err = f.uc.Create(context.Background(), maker, in)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCreate_FechaDeRetornoAnteriorAlTraslado(t *testing.T) {
	f := setup(t)
	in := temporal("ACT-1")
	in.ExpectedReturn = ptr(day(5))

	_, err := f.uc.Create(context.Background(), maker, in)
	var de *domain.Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, domain.KindValidation, de.Kind)
	assert.Equal(t, "expected return date must be after transfer date", de.Message)

	in.ExpectedReturn = ptr(day(10))
	_, err = f.uc.Create(context.Background(), maker, in)
	assert.ErrorIs(t, err, domain.ErrValidation, "la misma fecha tampoco es válida")
}

func TestCreate_Validaciones(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	in := temporal("ACT-1")
	in.ExpectedReturn = nil
	_, err := f.uc.Create(ctx, maker, in)
	assert.ErrorIs(t, err, domain.ErrValidation, "temporal sin fecha esperada")

	in = temporal("ACT-1")
	in.Type = entity.TransferPermanent
	_, err = f.uc.Create(ctx, maker, in)
	assert.ErrorIs(t, err, domain.ErrValidation, "permanente con fecha esperada")

	in = temporal("ACT-1")
	in.Type = "loan"
	_, err = f.uc.Create(ctx, maker, in)
	assert.ErrorIs(t, err, domain.ErrValidation)

	in = temporal("ACT-1")
	in.TransferDate = time.Time{}
	_, err = f.uc.Create(ctx, maker, in)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.uc.Create(ctx, maker, temporal("CON-1"))
	assert.ErrorIs(t, err, domain.ErrValidation, "un consumible no se traslada")

	_, err = f.uc.Create(ctx, maker, temporal("ACT-404"))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.uc.Create(ctx, maker, temporal("ACT-2"))
	assert.ErrorIs(t, err, domain.ErrState, "activo en mantenimiento")

	in = temporal("ACT-1")
	in.FromLocationID = "SEDE-C"
	_, err = f.uc.Create(ctx, maker, in)
	assert.ErrorIs(t, err, domain.ErrState, "el activo no está en el origen")

	_, err = f.uc.Create(ctx, entity.Actor{ID: "x", Role: "auditor"}, temporal("ACT-1"))
	assert.ErrorIs(t, err, domain.ErrAuthorization)
}

func TestFlujoCompleto_MueveYDevuelveElActivo(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	tr, err := f.uc.Create(ctx, maker, temporal("ACT-1"))
	require.NoError(t, err)
	assert.Equal(t, entity.TransferPending, tr.Status)
	assert.Equal(t, "SEDE-A", f.location(t, "ACT-1"), "crear no mueve el activo")

	_, err = f.uc.Complete(ctx, tr.ID, releaser, "")
	assert.ErrorIs(t, err, domain.ErrState, "no se completa sin aprobación")

	_, err = f.uc.Approve(ctx, tr.ID, releaser, "")
	assert.ErrorIs(t, err, domain.ErrAuthorization)

	tr, err = f.uc.Approve(ctx, tr.ID, approver, "ok")
	require.NoError(t, err)
	assert.Equal(t, entity.TransferApproved, tr.Status)

	tr, err = f.uc.Complete(ctx, tr.ID, releaser, "")
	require.NoError(t, err)
	assert.Equal(t, entity.TransferCompleted, tr.Status)
	assert.Equal(t, "SEDE-B", f.location(t, "ACT-1"))

	f.now = day(15)
	tr, err = f.uc.ReturnAsset(ctx, tr.ID, releaser, "")
	require.NoError(t, err)
	assert.Equal(t, entity.TransferReturned, tr.Status)
	require.NotNil(t, tr.ActualReturn)
	assert.Equal(t, day(15), *tr.ActualReturn)
	assert.Equal(t, "SEDE-A", f.location(t, "ACT-1"))

	got, next, err := f.uc.Get(ctx, tr.ID)
	require.NoError(t, err)
	assert.Nil(t, next)
	assert.Len(t, got.Steps, 4)
}

func TestReturnAsset_DobleDevolucion(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	tr := f.completado(t)

	f.now = day(12)
	first, err := f.uc.ReturnAsset(ctx, tr.ID, releaser, "")
	require.NoError(t, err)

	f.now = day(13)
	_, err = f.uc.ReturnAsset(ctx, tr.ID, releaser, "")
	var de *domain.Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, domain.KindState, de.Kind)
	assert.Equal(t, "already returned", de.Message)

	got, _, err := f.uc.Get(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, *first.ActualReturn, *got.ActualReturn)
	assert.Equal(t, "SEDE-A", f.location(t, "ACT-1"))
}

func TestReturnAsset_PermanenteNoAdmiteDevolucion(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	in := temporal("ACT-1")
	in.Type = entity.TransferPermanent
	in.ExpectedReturn = nil

	tr, err := f.uc.Create(ctx, approver, in)
	require.NoError(t, err)
	assert.Equal(t, entity.TransferApproved, tr.Status, "approve implícito por la autoridad del originador")
	require.Len(t, tr.Steps, 2)
	assert.True(t, tr.Steps[1].Automatic)

	_, err = f.uc.Complete(ctx, tr.ID, releaser, "")
	require.NoError(t, err)

	_, err = f.uc.ReturnAsset(ctx, tr.ID, releaser, "")
	assert.ErrorIs(t, err, domain.ErrState)
	assert.Equal(t, "SEDE-B", f.location(t, "ACT-1"))
}

func TestComplete_ActivoYaMovidoPorOtroTraslado(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	first, err := f.uc.Create(ctx, approver, temporal("ACT-1"))
	require.NoError(t, err)
	second, err := f.uc.Create(ctx, approver, temporal("ACT-1"))
	require.NoError(t, err)

	_, err = f.uc.Complete(ctx, first.ID, releaser, "")
	require.NoError(t, err)

	_, err = f.uc.Complete(ctx, second.ID, releaser, "")
	assert.ErrorIs(t, err, domain.ErrState)

	got, _, err := f.uc.Get(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.TransferApproved, got.Status)
}

func TestTemporalPendienteDeDevolucionRetieneElActivo(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	temp := f.completado(t)
	require.Equal(t, "SEDE-B", f.location(t, "ACT-1"))

	_, err := f.uc.Create(ctx, approver, transfer.CreateInput{
		AssetID: "ACT-1", FromLocationID: "SEDE-B", ToLocationID: "SEDE-C",
		Type: entity.TransferPermanent, TransferDate: day(11),
	})
	assert.ErrorIs(t, err, domain.ErrState, "no se traslada desde el destino temporal")
	assert.Equal(t, "SEDE-B", f.location(t, "ACT-1"))

	f.now = day(12)
	_, err = f.uc.ReturnAsset(ctx, temp.ID, releaser, "")
	require.NoError(t, err, "la devolución sigue siendo posible")
	assert.Equal(t, "SEDE-A", f.location(t, "ACT-1"))

	overdue, err := f.uc.Overdue(ctx)
	require.NoError(t, err)
	assert.Empty(t, overdue)

	next, err := f.uc.Create(ctx, approver, transfer.CreateInput{
		AssetID: "ACT-1", FromLocationID: "SEDE-A", ToLocationID: "SEDE-C",
		Type: entity.TransferPermanent, TransferDate: day(12),
	})
	require.NoError(t, err, "tras la devolución el activo queda libre")
	_, err = f.uc.Complete(ctx, next.ID, releaser, "")
	require.NoError(t, err)
	assert.Equal(t, "SEDE-C", f.location(t, "ACT-1"))
}

func TestComplete_RechazaConTemporalPendienteDeDevolucion(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.store.PutItem(entity.Item{ID: "ACT-3", Code: "ACT-3", Name: "Proyector", Kind: entity.ItemKindAsset,
		LocationID: "SEDE-A", Status: entity.ItemStatusAvailable})

	// ambos creados antes de que el temporal se complete
	first, err := f.uc.Create(ctx, approver, transfer.CreateInput{
		AssetID: "ACT-3", FromLocationID: "SEDE-A", ToLocationID: "SEDE-B",
		Type: entity.TransferTemporary, TransferDate: day(10), ExpectedReturn: ptr(day(20)),
	})
	require.NoError(t, err)
	second, err := f.uc.Create(ctx, approver, transfer.CreateInput{
		AssetID: "ACT-3", FromLocationID: "SEDE-A", ToLocationID: "SEDE-C",
		Type: entity.TransferPermanent, TransferDate: day(10),
	})
	require.NoError(t, err)

	_, err = f.uc.Complete(ctx, first.ID, releaser, "")
	require.NoError(t, err)

	_, err = f.uc.Complete(ctx, second.ID, releaser, "")
	var de *domain.Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, domain.KindState, de.Kind)
	assert.Contains(t, de.Message, "pendiente de devolución")
	assert.Equal(t, "SEDE-B", f.location(t, "ACT-3"))
}

func TestReturnAsset_RolSinPermisoNoConoceElEstado(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	tr := f.completado(t)
	_, err := f.uc.ReturnAsset(ctx, tr.ID, releaser, "")
	require.NoError(t, err)

	_, err = f.uc.ReturnAsset(ctx, tr.ID, maker, "")
	assert.ErrorIs(t, err, domain.ErrAuthorization)
	assert.NotErrorIs(t, err, domain.ErrState)

	in := temporal("ACT-1")
	in.Type = entity.TransferPermanent
	in.ExpectedReturn = nil
	perm, err := f.uc.Create(ctx, approver, in)
	require.NoError(t, err)
	_, err = f.uc.ReturnAsset(ctx, perm.ID, maker, "")
	assert.ErrorIs(t, err, domain.ErrAuthorization)
}

func TestCancelYReject(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	tr, err := f.uc.Create(ctx, maker, temporal("ACT-1"))
	require.NoError(t, err)
	_, err = f.uc.Reject(ctx, tr.ID, approver, "")
	assert.ErrorIs(t, err, domain.ErrValidation)
	tr, err = f.uc.Reject(ctx, tr.ID, approver, "sin justificación")
	require.NoError(t, err)
	assert.Equal(t, entity.TransferRejected, tr.Status)

	tr, err = f.uc.Create(ctx, maker, temporal("ACT-1"))
	require.NoError(t, err)
	_, err = f.uc.Approve(ctx, tr.ID, approver, "")
	require.NoError(t, err)
	_, err = f.uc.Reject(ctx, tr.ID, approver, "tarde")
	assert.ErrorIs(t, err, domain.ErrState, "aprobado ya no se rechaza")

	tr, err = f.uc.Cancel(ctx, tr.ID, maker, "se pospone")
	require.NoError(t, err)
	assert.Equal(t, entity.TransferCanceled, tr.Status)
	assert.Equal(t, "SEDE-A", f.location(t, "ACT-1"))

	_, err = f.uc.Cancel(ctx, "no-existe", maker, "x")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOverdueYDueSoon(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	tr := f.completado(t)

	f.now = day(18)
	soon, err := f.uc.DueSoon(ctx, 3)
	require.NoError(t, err)
	require.Len(t, soon, 1)
	assert.Equal(t, tr.ID, soon[0].ID)

	soon, err = f.uc.DueSoon(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, soon)

	_, err = f.uc.DueSoon(ctx, -1)
	assert.ErrorIs(t, err, domain.ErrValidation)

	overdue, err := f.uc.Overdue(ctx)
	require.NoError(t, err)
	assert.Empty(t, overdue)

	f.now = day(21)
	overdue, err = f.uc.Overdue(ctx)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, tr.ID, overdue[0].ID)

	_, err = f.uc.ReturnAsset(ctx, tr.ID, releaser, "tarde")
	require.NoError(t, err)
	overdue, err = f.uc.Overdue(ctx)
	require.NoError(t, err)
	assert.Empty(t, overdue, "devuelto deja de estar vencido")
}

func TestHistory(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	tr := f.completado(t)
	f.now = day(11)
	_, err := f.uc.ReturnAsset(ctx, tr.ID, releaser, "")
	require.NoError(t, err)
	_, err = f.uc.Create(ctx, maker, transfer.CreateInput{
		AssetID: "ACT-1", FromLocationID: "SEDE-A", ToLocationID: "SEDE-C",
		Type: entity.TransferPermanent, TransferDate: day(11),
	})
	require.NoError(t, err)

	list, err := f.uc.History(ctx, "ACT-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "SEDE-C", list[0].ToLocationID, "más reciente primero")

	_, err = f.uc.History(ctx, "")
	assert.ErrorIs(t, err, domain.ErrValidation)
}
