package transfer

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/jhoicas/Movimientos-api/internal/application/reservation"
	"github.com/jhoicas/Movimientos-api/internal/domain"
	"github.com/jhoicas/Movimientos-api/internal/domain/approval"
	"github.com/jhoicas/Movimientos-api/internal/domain/entity"
	"github.com/jhoicas/Movimientos-api/internal/domain/repository"
)

// CreateInput datos para crear un traslado.
type CreateInput struct {
	AssetID        string
	FromLocationID string
	ToLocationID   string
	Type           entity.TransferType
	TransferDate   time.Time
	ExpectedReturn *time.Time
}

// UseCase máquina de estados de traslados de activos y sus consultas de seguimiento.
type UseCase struct {
	tx    TxRunner
	reads repository.TransferRepository
	guard *reservation.Guard
	log   zerolog.Logger
	now   func() time.Time
}

// NewUseCase construye el caso de uso. reads se usa para consultas fuera de transacción.
func NewUseCase(tx TxRunner, reads repository.TransferRepository, guard *reservation.Guard, log zerolog.Logger) *UseCase {
	return &UseCase{
		tx:    tx,
		reads: reads,
		guard: guard,
		log:   log.With().Str("workflow", string(entity.WorkflowTransfer)).Logger(),
		now:   time.Now,
	}
}

// WithClock reemplaza el reloj (tests).
func (uc *UseCase) WithClock(now func() time.Time) *UseCase {
	uc.now = now
	return uc
}

// Create valida origen/destino, ubicación y estado actual del activo y las fechas; deja el traslado en Pending.
func (uc *UseCase) Create(ctx context.Context, actor entity.Actor, in CreateInput) (*entity.TransferRequest, error) {
	if in.FromLocationID == in.ToLocationID {
		return nil, domain.Validation("origen y destino deben ser distintos")
	}
	if !actor.Role.Valid() || !approval.Allowed(actor.Role, entity.WorkflowTransfer, entity.ActionCreate) {
		return nil, domain.Authorization("el rol %q no puede crear traslados", actor.Role)
	}
	if actor.ID == "" {
		return nil, domain.Validation("actor requerido")
	}
	if in.AssetID == "" || in.FromLocationID == "" || in.ToLocationID == "" {
		return nil, domain.Validation("asset_id, from_location_id y to_location_id son requeridos")
	}
	if !in.Type.Valid() {
		return nil, domain.Validation("tipo de traslado inválido: %q", in.Type)
	}
	if in.TransferDate.IsZero() {
		return nil, domain.Validation("transfer_date es requerido")
	}
	switch in.Type {
	case entity.TransferTemporary:
		if in.ExpectedReturn == nil {
			return nil, domain.Validation("expected_return es obligatorio en traslados temporales")
		}
		if !in.ExpectedReturn.After(in.TransferDate) {
			return nil, domain.Validation("expected return date must be after transfer date")
		}
	case entity.TransferPermanent:
		if in.ExpectedReturn != nil {
			return nil, domain.Validation("un traslado permanente no lleva expected_return")
		}
	}

	now := uc.now()
	t := &entity.TransferRequest{
		ID:             uuid.New().String(),
		AssetID:        in.AssetID,
		FromLocationID: in.FromLocationID,
		ToLocationID:   in.ToLocationID,
		Type:           in.Type,
		Status:         entity.TransferPending,
		TransferDate:   in.TransferDate,
		ExpectedReturn: in.ExpectedReturn,
		CreatedBy:      actor.ID,
		CreatedByRole:  actor.Role,
		Chain:          approval.BuildChain(entity.WorkflowTransfer, actor.Role),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	t.Steps = append(t.Steps, entity.ApprovalStep{
		ID: uuid.New().String(), Role: actor.Role, Action: entity.ActionCreate, ActorID: actor.ID, CreatedAt: now,
	})
	for _, step := range approval.ImpliedSteps(entity.WorkflowTransfer, actor.Role) {
		next, err := t.Status.Next(step.Action)
		if err != nil {
			return nil, err
		}
		t.Status = next
		t.Steps = append(t.Steps, entity.ApprovalStep{
			ID: uuid.New().String(), Role: actor.Role, Action: step.Action, ActorID: actor.ID,
			Notes: "implícito por la autoridad del originador", Automatic: true, CreatedAt: now,
		})
	}

	err := uc.tx.RunTransfer(ctx, func(items repository.ItemRepository, transfers repository.TransferRepository) error {
		asset, err := items.GetByID(ctx, in.AssetID)
		if err != nil {
			return err
		}
		if asset == nil {
			return domain.NotFound("activo %s no encontrado", in.AssetID)
		}
		if asset.Kind != entity.ItemKindAsset {
			return domain.Validation("el ítem %s no es un activo", in.AssetID)
		}
		if asset.LocationID != in.FromLocationID {
			return domain.State("el activo está en %s, no en %s", asset.LocationID, in.FromLocationID)
		}
		if !asset.Status.Transferable() {
			return domain.State("el activo en estado %q no puede trasladarse", asset.Status)
		}
		if err := ensureNoOutstandingReturn(ctx, transfers, in.AssetID); err != nil {
			return err
		}
		return transfers.Create(ctx, t)
	})
	if err != nil {
		return nil, domain.AsError(err)
	}
	uc.log.Info().Str("transfer_id", t.ID).Str("asset_id", t.AssetID).Str("type", string(t.Type)).
		Str("status", string(t.Status)).Msg("traslado creado")
	return t, nil
}

// Approve Pending -> Approved.
func (uc *UseCase) Approve(ctx context.Context, id string, actor entity.Actor, notes string) (*entity.TransferRequest, error) {
	return uc.transition(ctx, id, actor, entity.ActionApprove, notes, nil, nil)
}

// Complete Approved -> Completed moviendo el activo al destino en la misma transacción.
func (uc *UseCase) Complete(ctx context.Context, id string, actor entity.Actor, notes string) (*entity.TransferRequest, error) {
	return uc.transition(ctx, id, actor, entity.ActionComplete, notes, nil,
		func(items repository.ItemRepository, transfers repository.TransferRepository, t *entity.TransferRequest) error {
			if err := ensureNoOutstandingReturn(ctx, transfers, t.AssetID); err != nil {
				return err
			}
			return uc.guard.Relocate(ctx, items, []reservation.Move{{
				ItemID: t.AssetID, From: t.FromLocationID, To: t.ToLocationID,
			}})
		})
}

// ReturnAsset Completed -> Returned (solo temporales): devuelve el activo al origen y fija ActualReturn.
func (uc *UseCase) ReturnAsset(ctx context.Context, id string, actor entity.Actor, notes string) (*entity.TransferRequest, error) {
	return uc.transition(ctx, id, actor, entity.ActionReturn, notes,
		func(t *entity.TransferRequest) error {
			if t.ActualReturn != nil || t.Status == entity.TransferReturned {
				return domain.State("already returned")
			}
			if t.Type != entity.TransferTemporary {
				return domain.State("solo los traslados temporales admiten devolución")
			}
			return nil
		},
		func(items repository.ItemRepository, _ repository.TransferRepository, t *entity.TransferRequest) error {
			if err := uc.guard.Relocate(ctx, items, []reservation.Move{{
				ItemID: t.AssetID, From: t.ToLocationID, To: t.FromLocationID,
			}}); err != nil {
				return err
			}
			returned := uc.now()
			t.ActualReturn = &returned
			return nil
		})
}

// Cancel permitido desde Pending o Approved.
func (uc *UseCase) Cancel(ctx context.Context, id string, actor entity.Actor, reason string) (*entity.TransferRequest, error) {
	if reason == "" {
		return nil, domain.Validation("reason es requerido")
	}
	return uc.transition(ctx, id, actor, entity.ActionCancel, reason, nil, nil)
}

// Reject Pending -> Rejected por el aprobador.
func (uc *UseCase) Reject(ctx context.Context, id string, actor entity.Actor, reason string) (*entity.TransferRequest, error) {
	if reason == "" {
		return nil, domain.Validation("reason es requerido")
	}
	return uc.transition(ctx, id, actor, entity.ActionReject, reason, nil, nil)
}

// Get devuelve el traslado y el siguiente paso requerido (nil si no queda ninguno).
func (uc *UseCase) Get(ctx context.Context, id string) (*entity.TransferRequest, *entity.ChainStep, error) {
	t, err := uc.reads.GetByID(ctx, id)
	if err != nil {
		return nil, nil, domain.AsError(err)
	}
	if t == nil {
		return nil, nil, domain.NotFound("traslado %s no encontrado", id)
	}
	if next, ok := approval.NextApprover(t); ok {
		return t, &next, nil
	}
	return t, nil, nil
}

// Overdue temporales completados, sin devolución y con fecha esperada anterior a ahora.
func (uc *UseCase) Overdue(ctx context.Context) ([]*entity.TransferRequest, error) {
	now := uc.now()
	list, err := uc.reads.ListAwaitingReturn(ctx, nil, &now)
	if err != nil {
		return nil, domain.AsError(err)
	}
	out := make([]*entity.TransferRequest, 0, len(list))
	for _, t := range list {
		if t.Overdue(now) {
			out = append(out, t)
		}
	}
	return out, nil
}

// DueSoon temporales pendientes de devolución con fecha esperada en [ahora, ahora+days].
func (uc *UseCase) DueSoon(ctx context.Context, days int) ([]*entity.TransferRequest, error) {
	if days < 0 {
		return nil, domain.Validation("days no puede ser negativo")
	}
	now := uc.now()
	until := now.AddDate(0, 0, days)
	list, err := uc.reads.ListAwaitingReturn(ctx, &now, &until)
	if err != nil {
		return nil, domain.AsError(err)
	}
	out := make([]*entity.TransferRequest, 0, len(list))
	for _, t := range list {
		if t.DueWithin(now, days) {
			out = append(out, t)
		}
	}
	return out, nil
}

// History traslados de un activo, más recientes primero.
func (uc *UseCase) History(ctx context.Context, assetID string) ([]*entity.TransferRequest, error) {
	if assetID == "" {
		return nil, domain.Validation("asset_id es requerido")
	}
	list, err := uc.reads.ListByAsset(ctx, assetID)
	if err != nil {
		return nil, domain.AsError(err)
	}
	return list, nil
}

// Now reloj del caso de uso (para calcular Overdue en las respuestas).
func (uc *UseCase) Now() time.Time { return uc.now() }

type (
	precheckFunc func(t *entity.TransferRequest) error
	applyFunc    func(items repository.ItemRepository, transfers repository.TransferRepository, t *entity.TransferRequest) error
)

// ensureNoOutstandingReturn un temporal completado retiene el activo hasta su devolución.
func ensureNoOutstandingReturn(ctx context.Context, transfers repository.TransferRepository, assetID string) error {
	open, err := transfers.HasOutstandingReturn(ctx, assetID)
	if err != nil {
		return err
	}
	if open {
		return domain.State("el activo %s tiene un traslado temporal pendiente de devolución", assetID)
	}
	return nil
}

func (uc *UseCase) transition(ctx context.Context, id string, actor entity.Actor, action entity.Action, notes string, pre precheckFunc, apply applyFunc) (*entity.TransferRequest, error) {
	var out *entity.TransferRequest
	err := uc.tx.RunTransfer(ctx, func(items repository.ItemRepository, transfers repository.TransferRepository) error {
		t, err := transfers.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if t == nil {
			return domain.NotFound("traslado %s no encontrado", id)
		}
		if pre != nil {
			// rol antes que estado
			if !actor.Role.Valid() || !approval.Allowed(actor.Role, entity.WorkflowTransfer, action) {
				return domain.Authorization("el rol %q no puede ejecutar %q en un %s", actor.Role, action, entity.WorkflowTransfer)
			}
			if err := pre(t); err != nil {
				return err
			}
		}
		next, err := t.Status.Next(action)
		if err != nil {
			return err
		}
		if err := approval.Authorize(actor, t, action); err != nil {
			return err
		}
		if apply != nil {
			if err := apply(items, transfers, t); err != nil {
				return err
			}
		}
		now := uc.now()
		t.Status = next
		t.UpdatedAt = now
		if err := transfers.Update(ctx, t); err != nil {
			return err
		}
		step := entity.ApprovalStep{
			ID: uuid.New().String(), Role: actor.Role, Action: action, ActorID: actor.ID, Notes: notes, CreatedAt: now,
		}
		if err := transfers.AppendStep(ctx, t.ID, step); err != nil {
			return err
		}
		t.Steps = append(t.Steps, step)
		out = t
		return nil
	})
	if err != nil {
		return nil, domain.AsError(err)
	}
	uc.log.Info().Str("transfer_id", id).Str("action", string(action)).Str("actor_id", actor.ID).
		Str("status", string(out.Status)).Msg("transición de traslado")
	return out, nil
}
