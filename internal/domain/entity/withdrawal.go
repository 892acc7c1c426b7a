package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/Movimientos-api/internal/domain"
)

// WithdrawalStatus estado cerrado de una solicitud de retiro (lote de consumibles).
type WithdrawalStatus string

const (
	WithdrawalPendingVerification WithdrawalStatus = "pending_verification"
	WithdrawalPendingApproval     WithdrawalStatus = "pending_approval"
	WithdrawalApproved            WithdrawalStatus = "approved"
	WithdrawalReleased            WithdrawalStatus = "released"
	WithdrawalReturned            WithdrawalStatus = "returned"
	WithdrawalCanceled            WithdrawalStatus = "canceled"
	WithdrawalRejected            WithdrawalStatus = "rejected"
)

// withdrawalTransitions grafo dirigido estado -> acción -> estado destino.
// Released -> return queda en Released mientras la devolución sea parcial.
var withdrawalTransitions = map[WithdrawalStatus]map[Action]WithdrawalStatus{
	WithdrawalPendingVerification: {
		ActionVerify: WithdrawalPendingApproval,
		ActionCancel: WithdrawalCanceled,
		ActionReject: WithdrawalRejected,
	},
	WithdrawalPendingApproval: {
		ActionApprove: WithdrawalApproved,
		ActionCancel:  WithdrawalCanceled,
		ActionReject:  WithdrawalRejected,
	},
	WithdrawalApproved: {
		ActionRelease: WithdrawalReleased,
		ActionCancel:  WithdrawalCanceled,
		ActionReject:  WithdrawalRejected,
	},
	WithdrawalReleased: {
		ActionReturn: WithdrawalReturned,
	},
}

// pendingWithdrawalAction acción de cadena que espera cada estado.
var pendingWithdrawalAction = map[WithdrawalStatus]Action{
	WithdrawalPendingVerification: ActionVerify,
	WithdrawalPendingApproval:     ActionApprove,
	WithdrawalApproved:            ActionRelease,
}

// ParseWithdrawalStatus valida un estado recibido como texto.
func ParseWithdrawalStatus(s string) (WithdrawalStatus, error) {
	st := WithdrawalStatus(s)
	if _, ok := withdrawalTransitions[st]; ok {
		return st, nil
	}
	switch st {
	case WithdrawalReturned, WithdrawalCanceled, WithdrawalRejected:
		return st, nil
	}
	return "", domain.Validation("estado de retiro inválido: %q", s)
}

// Next devuelve el estado destino de aplicar la acción, o StateError si no está en el grafo.
func (s WithdrawalStatus) Next(a Action) (WithdrawalStatus, error) {
	if to, ok := withdrawalTransitions[s][a]; ok {
		return to, nil
	}
	return s, domain.State("la acción %q no está permitida en estado %q", a, s)
}

// Terminal indica si el estado no admite más transiciones.
func (s WithdrawalStatus) Terminal() bool {
	_, ok := withdrawalTransitions[s]
	return !ok
}

// WithdrawalLine línea de un lote: un consumible y sus cantidades solicitada/despachada/devuelta.
type WithdrawalLine struct {
	ID              string
	RequestID       string
	ItemID          string
	Requested       decimal.Decimal
	Released        decimal.Decimal
	Returned        decimal.Decimal
	ReturnCondition string // good | damaged (última devolución)
}

// Outstanding cantidad despachada aún no devuelta.
func (l WithdrawalLine) Outstanding() decimal.Decimal {
	return l.Released.Sub(l.Returned)
}

// WithdrawalRequest lote de consumibles para un receptor y un propósito.
type WithdrawalRequest struct {
	ID            string
	Receiver      string
	Purpose       string
	Status        WithdrawalStatus
	Lines         []WithdrawalLine
	CreatedBy     string
	CreatedByRole Role
	Chain         []ChainStep
	Steps         []ApprovalStep
	Checklist     map[string]bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// WorkflowKind implementa approval.Subject.
func (w *WithdrawalRequest) WorkflowKind() Workflow { return WorkflowWithdrawal }

// Originator implementa approval.Subject.
func (w *WithdrawalRequest) Originator() (string, Role) { return w.CreatedBy, w.CreatedByRole }

// ApprovalChain implementa approval.Subject.
func (w *WithdrawalRequest) ApprovalChain() []ChainStep { return w.Chain }

// PendingAction acción de cadena que el estado actual espera (si existe).
func (w *WithdrawalRequest) PendingAction() (Action, bool) {
	a, ok := pendingWithdrawalAction[w.Status]
	return a, ok
}

// Open indica si la solicitud admite transiciones.
func (w *WithdrawalRequest) Open() bool { return !w.Status.Terminal() }

// Line busca una línea por ítem.
func (w *WithdrawalRequest) Line(itemID string) (*WithdrawalLine, bool) {
	for i := range w.Lines {
		if w.Lines[i].ItemID == itemID {
			return &w.Lines[i], true
		}
	}
	return nil, false
}
