package withdrawal

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/jhoicas/Movimientos-api/internal/application/reservation"
	"github.com/jhoicas/Movimientos-api/internal/domain"
	"github.com/jhoicas/Movimientos-api/internal/domain/approval"
	"github.com/jhoicas/Movimientos-api/internal/domain/entity"
	"github.com/jhoicas/Movimientos-api/internal/domain/repository"
)

// SoftCheckWarning se devuelve al crear: la disponibilidad puede cambiar antes del despacho.
const SoftCheckWarning = "solicitud creada; la disponibilidad se valida de nuevo al despachar"

// Condiciones de devolución aceptadas.
const (
	ConditionGood    = "good"
	ConditionDamaged = "damaged"
)

// Config parámetros del workflow de retiro.
type Config struct {
	// ReleaseChecklist claves que deben venir marcadas en true para despachar.
	ReleaseChecklist []string
}

// LineInput línea solicitada al crear un lote.
type LineInput struct {
	ItemID   string
	Quantity decimal.Decimal
}

// ReturnInput cantidad devuelta de un ítem del lote.
type ReturnInput struct {
	ItemID    string
	Quantity  decimal.Decimal
	Condition string
}

// UseCase máquina de estados de los lotes de retiro de consumibles.
type UseCase struct {
	tx    TxRunner
	reads repository.WithdrawalRepository
	guard *reservation.Guard
	cfg   Config
	log   zerolog.Logger
	now   func() time.Time
}

// NewUseCase construye el caso de uso. reads se usa para consultas fuera de transacción.
func NewUseCase(tx TxRunner, reads repository.WithdrawalRepository, guard *reservation.Guard, cfg Config, log zerolog.Logger) *UseCase {
	return &UseCase{
		tx:    tx,
		reads: reads,
		guard: guard,
		cfg:   cfg,
		log:   log.With().Str("workflow", string(entity.WorkflowWithdrawal)).Logger(),
		now:   time.Now,
	}
}

// WithClock reemplaza el reloj (tests).
func (uc *UseCase) WithClock(now func() time.Time) *UseCase {
	uc.now = now
	return uc
}

// Create valida las líneas contra el stock observado (chequeo blando) y deja el lote en
// PendingVerification. Si la autoridad del originador cubre pasos de la cadena, se registran
// automáticamente en la misma transacción.
func (uc *UseCase) Create(ctx context.Context, actor entity.Actor, lines []LineInput, receiver, purpose string) (*entity.WithdrawalRequest, error) {
	if !actor.Role.Valid() || !approval.Allowed(actor.Role, entity.WorkflowWithdrawal, entity.ActionCreate) {
		return nil, domain.Authorization("el rol %q no puede crear retiros", actor.Role)
	}
	if actor.ID == "" {
		return nil, domain.Validation("actor requerido")
	}
	if receiver == "" || purpose == "" {
		return nil, domain.Validation("receiver y purpose son requeridos")
	}
	if len(lines) == 0 {
		return nil, domain.Validation("el lote debe tener al menos una línea")
	}
	merged, order, err := mergeLines(lines)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	w := &entity.WithdrawalRequest{
		ID:            uuid.New().String(),
		Receiver:      receiver,
		Purpose:       purpose,
		Status:        entity.WithdrawalPendingVerification,
		CreatedBy:     actor.ID,
		CreatedByRole: actor.Role,
		Chain:         approval.BuildChain(entity.WorkflowWithdrawal, actor.Role),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for _, itemID := range order {
		w.Lines = append(w.Lines, entity.WithdrawalLine{
			ID:        uuid.New().String(),
			RequestID: w.ID,
			ItemID:    itemID,
			Requested: merged[itemID],
			Released:  decimal.Zero,
			Returned:  decimal.Zero,
		})
	}
	w.Steps = append(w.Steps, entity.ApprovalStep{
		ID: uuid.New().String(), Role: actor.Role, Action: entity.ActionCreate, ActorID: actor.ID, CreatedAt: now,
	})
	for _, step := range approval.ImpliedSteps(entity.WorkflowWithdrawal, actor.Role) {
		next, err := w.Status.Next(step.Action)
		if err != nil {
			return nil, err
		}
		w.Status = next
		w.Steps = append(w.Steps, entity.ApprovalStep{
			ID: uuid.New().String(), Role: actor.Role, Action: step.Action, ActorID: actor.ID,
			Notes: "implícito por la autoridad del originador", Automatic: true, CreatedAt: now,
		})
	}

	err = uc.tx.RunWithdrawal(ctx, func(items repository.ItemRepository, withdrawals repository.WithdrawalRepository) error {
		var shortfalls []domain.Shortfall
		for _, itemID := range order {
			it, err := items.GetByID(ctx, itemID)
			if err != nil {
				return err
			}
			if it == nil {
				return domain.NotFound("ítem %s no encontrado", itemID)
			}
			if it.Kind != entity.ItemKindConsumable {
				return domain.Validation("el ítem %s no es consumible", itemID)
			}
			if merged[itemID].GreaterThan(it.AvailableQuantity) {
				shortfalls = append(shortfalls, domain.Shortfall{ItemID: itemID, Requested: merged[itemID], Available: it.AvailableQuantity})
			}
		}
		if len(shortfalls) > 0 {
			return domain.InsufficientStock(shortfalls)
		}
		return withdrawals.Create(ctx, w)
	})
	if err != nil {
		return nil, domain.AsError(err)
	}
	uc.log.Info().Str("withdrawal_id", w.ID).Str("actor_id", actor.ID).Str("status", string(w.Status)).
		Int("lines", len(w.Lines)).Msg("retiro creado")
	return w, nil
}

// Verify PendingVerification -> PendingApproval.
func (uc *UseCase) Verify(ctx context.Context, id string, actor entity.Actor, notes string) (*entity.WithdrawalRequest, error) {
	return uc.transition(ctx, id, actor, entity.ActionVerify, notes, nil)
}

// Approve PendingApproval -> Approved.
func (uc *UseCase) Approve(ctx context.Context, id string, actor entity.Actor, notes string) (*entity.WithdrawalRequest, error) {
	return uc.transition(ctx, id, actor, entity.ActionApprove, notes, nil)
}

// Release Approved -> Released. Revalida todas las líneas contra la disponibilidad actual
// dentro de una sola transacción; si alguna no alcanza, el lote completo se rechaza con
// la lista de faltantes y nada cambia.
func (uc *UseCase) Release(ctx context.Context, id string, actor entity.Actor, checklist map[string]bool, notes string) (*entity.WithdrawalRequest, error) {
	w, err := uc.transition(ctx, id, actor, entity.ActionRelease, notes,
		func(items repository.ItemRepository, w *entity.WithdrawalRequest, next entity.WithdrawalStatus) (entity.WithdrawalStatus, error) {
			if err := uc.checkChecklist(checklist); err != nil {
				return "", err
			}
			deltas := make([]reservation.Delta, 0, len(w.Lines))
			for _, l := range w.Lines {
				deltas = append(deltas, reservation.Delta{ItemID: l.ItemID, Quantity: l.Requested.Neg()})
			}
			if err := uc.guard.Apply(ctx, items, deltas); err != nil {
				return "", err
			}
			for i := range w.Lines {
				w.Lines[i].Released = w.Lines[i].Requested
			}
			w.Checklist = checklist
			return next, nil
		})
	if err != nil {
		de := domain.AsError(err)
		if de.Kind == domain.KindInsufficientStock {
			uc.log.Warn().Str("withdrawal_id", id).Str("actor_id", actor.ID).
				Interface("shortfalls", de.Shortfalls).Msg("despacho rechazado por faltantes")
		}
		return nil, de
	}
	return w, nil
}

// Return registra devoluciones de consumibles retornables y repone stock por cada unidad.
// Pasa a Returned cuando todas las líneas retornables quedan conciliadas.
func (uc *UseCase) Return(ctx context.Context, id string, actor entity.Actor, returns []ReturnInput, notes string) (*entity.WithdrawalRequest, error) {
	if len(returns) == 0 {
		return nil, domain.Validation("debe indicar al menos un ítem devuelto")
	}
	return uc.transition(ctx, id, actor, entity.ActionReturn, notes,
		func(items repository.ItemRepository, w *entity.WithdrawalRequest, next entity.WithdrawalStatus) (entity.WithdrawalStatus, error) {
			returnable := make(map[string]bool, len(w.Lines))
			for _, l := range w.Lines {
				it, err := items.GetByID(ctx, l.ItemID)
				if err != nil {
					return "", err
				}
				returnable[l.ItemID] = it != nil && it.Returnable
			}

			totals := make(map[string]decimal.Decimal, len(returns))
			conditions := make(map[string]string, len(returns))
			for _, r := range returns {
				line, ok := w.Line(r.ItemID)
				if !ok {
					return "", domain.Validation("el ítem %s no pertenece al lote", r.ItemID)
				}
				if !returnable[r.ItemID] {
					return "", domain.Validation("el ítem %s no es retornable", r.ItemID)
				}
				if !r.Quantity.IsPositive() {
					return "", domain.Validation("la cantidad devuelta de %s debe ser positiva", r.ItemID)
				}
				cond := r.Condition
				if cond == "" {
					cond = ConditionGood
				}
				if cond != ConditionGood && cond != ConditionDamaged {
					return "", domain.Validation("condición inválida %q", r.Condition)
				}
				totals[r.ItemID] = totals[r.ItemID].Add(r.Quantity)
				conditions[r.ItemID] = cond
				if totals[r.ItemID].GreaterThan(line.Outstanding()) {
					return "", domain.Validation("la devolución de %s supera lo pendiente (%s)", r.ItemID, line.Outstanding())
				}
			}

			deltas := make([]reservation.Delta, 0, len(totals))
			for _, l := range w.Lines {
				if q, ok := totals[l.ItemID]; ok {
					deltas = append(deltas, reservation.Delta{ItemID: l.ItemID, Quantity: q})
				}
			}
			if err := uc.guard.Apply(ctx, items, deltas); err != nil {
				return "", err
			}

			reconciled := true
			for i := range w.Lines {
				l := &w.Lines[i]
				if q, ok := totals[l.ItemID]; ok {
					l.Returned = l.Returned.Add(q)
					l.ReturnCondition = conditions[l.ItemID]
				}
				if returnable[l.ItemID] && l.Outstanding().IsPositive() {
					reconciled = false
				}
			}
			if !reconciled {
				return entity.WithdrawalReleased, nil
			}
			return next, nil
		})
}

// Cancel permitido desde PendingVerification, PendingApproval o Approved.
func (uc *UseCase) Cancel(ctx context.Context, id string, actor entity.Actor, reason string) (*entity.WithdrawalRequest, error) {
	if reason == "" {
		return nil, domain.Validation("reason es requerido")
	}
	return uc.transition(ctx, id, actor, entity.ActionCancel, reason, nil)
}

// Reject lo ejecuta el rol del paso pendiente.
func (uc *UseCase) Reject(ctx context.Context, id string, actor entity.Actor, reason string) (*entity.WithdrawalRequest, error) {
	if reason == "" {
		return nil, domain.Validation("reason es requerido")
	}
	return uc.transition(ctx, id, actor, entity.ActionReject, reason, nil)
}

// Get devuelve el lote y el siguiente paso requerido (nil si no queda ninguno).
func (uc *UseCase) Get(ctx context.Context, id string) (*entity.WithdrawalRequest, *entity.ChainStep, error) {
	w, err := uc.reads.GetByID(ctx, id)
	if err != nil {
		return nil, nil, domain.AsError(err)
	}
	if w == nil {
		return nil, nil, domain.NotFound("retiro %s no encontrado", id)
	}
	if next, ok := approval.NextApprover(w); ok {
		return w, &next, nil
	}
	return w, nil, nil
}

// List lista lotes, opcionalmente filtrando por estado, junto con el total sin paginar.
func (uc *UseCase) List(ctx context.Context, status string, limit, offset int) ([]*entity.WithdrawalRequest, int, error) {
	var st entity.WithdrawalStatus
	if status != "" {
		parsed, err := entity.ParseWithdrawalStatus(status)
		if err != nil {
			return nil, 0, err
		}
		st = parsed
	}
	list, err := uc.reads.List(ctx, st, limit, offset)
	if err != nil {
		return nil, 0, domain.AsError(err)
	}
	total, err := uc.reads.Count(ctx, st)
	if err != nil {
		return nil, 0, domain.AsError(err)
	}
	return list, total, nil
}

type applyFunc func(items repository.ItemRepository, w *entity.WithdrawalRequest, next entity.WithdrawalStatus) (entity.WithdrawalStatus, error)

// transition: bloquea la solicitud, valida grafo y autorización, aplica efectos y registra el paso.
func (uc *UseCase) transition(ctx context.Context, id string, actor entity.Actor, action entity.Action, notes string, apply applyFunc) (*entity.WithdrawalRequest, error) {
	var out *entity.WithdrawalRequest
	err := uc.tx.RunWithdrawal(ctx, func(items repository.ItemRepository, withdrawals repository.WithdrawalRepository) error {
		w, err := withdrawals.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if w == nil {
			return domain.NotFound("retiro %s no encontrado", id)
		}
		next, err := w.Status.Next(action)
		if err != nil {
			return err
		}
		if err := approval.Authorize(actor, w, action); err != nil {
			return err
		}
		if apply != nil {
			if next, err = apply(items, w, next); err != nil {
				return err
			}
		}
		now := uc.now()
		w.Status = next
		w.UpdatedAt = now
		if err := withdrawals.Update(ctx, w); err != nil {
			return err
		}
		step := entity.ApprovalStep{
			ID: uuid.New().String(), Role: actor.Role, Action: action, ActorID: actor.ID, Notes: notes, CreatedAt: now,
		}
		if err := withdrawals.AppendStep(ctx, w.ID, step); err != nil {
			return err
		}
		w.Steps = append(w.Steps, step)
		out = w
		return nil
	})
	if err != nil {
		return nil, domain.AsError(err)
	}
	uc.log.Info().Str("withdrawal_id", id).Str("action", string(action)).Str("actor_id", actor.ID).
		Str("status", string(out.Status)).Msg("transición de retiro")
	return out, nil
}

func (uc *UseCase) checkChecklist(checklist map[string]bool) error {
	for _, key := range uc.cfg.ReleaseChecklist {
		if !checklist[key] {
			return domain.Validation("checklist incompleto: %s", key)
		}
	}
	for key, ok := range checklist {
		if !ok {
			return domain.Validation("checklist incompleto: %s", key)
		}
	}
	return nil
}

// mergeLines valida cantidades y suma líneas repetidas del mismo ítem, preservando el orden.
func mergeLines(lines []LineInput) (map[string]decimal.Decimal, []string, error) {
	merged := make(map[string]decimal.Decimal, len(lines))
	order := make([]string, 0, len(lines))
	for _, l := range lines {
		if l.ItemID == "" {
			return nil, nil, domain.Validation("item_id requerido en cada línea")
		}
		if !l.Quantity.IsPositive() {
			return nil, nil, domain.Validation("la cantidad de %s debe ser mayor que cero", l.ItemID)
		}
		if _, ok := merged[l.ItemID]; !ok {
			order = append(order, l.ItemID)
			merged[l.ItemID] = decimal.Zero
		}
		merged[l.ItemID] = merged[l.ItemID].Add(l.Quantity)
	}
	return merged, order, nil
}
