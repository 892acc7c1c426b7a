package entity

import (
	"time"

	"github.com/jhoicas/Movimientos-api/internal/domain"
)

// TransferType temporal (se espera devolución) o permanente.
type TransferType string

const (
	TransferTemporary TransferType = "temporary"
	TransferPermanent TransferType = "permanent"
)

// Valid indica si el tipo pertenece al conjunto cerrado.
func (t TransferType) Valid() bool {
	return t == TransferTemporary || t == TransferPermanent
}

// TransferStatus estado cerrado de un traslado de activo.
type TransferStatus string

const (
	TransferPending   TransferStatus = "pending"
	TransferApproved  TransferStatus = "approved"
	TransferCompleted TransferStatus = "completed"
	TransferReturned  TransferStatus = "returned"
	TransferCanceled  TransferStatus = "canceled"
	TransferRejected  TransferStatus = "rejected"
)

var transferTransitions = map[TransferStatus]map[Action]TransferStatus{
	TransferPending: {
		ActionApprove: TransferApproved,
		ActionCancel:  TransferCanceled,
		ActionReject:  TransferRejected,
	},
	TransferApproved: {
		ActionComplete: TransferCompleted,
		ActionCancel:   TransferCanceled,
	},
	TransferCompleted: {
		ActionReturn: TransferReturned,
	},
}

var pendingTransferAction = map[TransferStatus]Action{
	TransferPending:  ActionApprove,
	TransferApproved: ActionComplete,
}

// Next devuelve el estado destino de aplicar la acción, o StateError si no está en el grafo.
func (s TransferStatus) Next(a Action) (TransferStatus, error) {
	if to, ok := transferTransitions[s][a]; ok {
		return to, nil
	}
	return s, domain.State("la acción %q no está permitida en estado %q", a, s)
}

// Terminal indica si el estado no admite más transiciones.
func (s TransferStatus) Terminal() bool {
	_, ok := transferTransitions[s]
	return !ok
}

// TransferRequest traslado de un activo entre dos ubicaciones distintas.
type TransferRequest struct {
	ID             string
	AssetID        string
	FromLocationID string
	ToLocationID   string
	Type           TransferType
	Status         TransferStatus
	TransferDate   time.Time
	ExpectedReturn *time.Time // obligatorio si Type == temporary
	ActualReturn   *time.Time
	CreatedBy      string
	CreatedByRole  Role
	Chain          []ChainStep
	Steps          []ApprovalStep
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// WorkflowKind implementa approval.Subject.
func (t *TransferRequest) WorkflowKind() Workflow { return WorkflowTransfer }

// Originator implementa approval.Subject.
func (t *TransferRequest) Originator() (string, Role) { return t.CreatedBy, t.CreatedByRole }

// ApprovalChain implementa approval.Subject.
func (t *TransferRequest) ApprovalChain() []ChainStep { return t.Chain }

// PendingAction acción de cadena que el estado actual espera (si existe).
func (t *TransferRequest) PendingAction() (Action, bool) {
	a, ok := pendingTransferAction[t.Status]
	return a, ok
}

// Overdue temporal, completado, sin devolución real y con fecha esperada vencida.
func (t *TransferRequest) Overdue(now time.Time) bool {
	return t.awaitingReturn() && t.ExpectedReturn.Before(now)
}

// DueWithin temporal pendiente de devolución cuya fecha esperada cae en [now, now+days].
func (t *TransferRequest) DueWithin(now time.Time, days int) bool {
	if !t.awaitingReturn() {
		return false
	}
	limit := now.AddDate(0, 0, days)
	return !t.ExpectedReturn.Before(now) && !t.ExpectedReturn.After(limit)
}

func (t *TransferRequest) awaitingReturn() bool {
	return t.Type == TransferTemporary &&
		t.Status == TransferCompleted &&
		t.ActualReturn == nil &&
		t.ExpectedReturn != nil
}
