package dto

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/Movimientos-api/internal/domain/entity"
)

// WithdrawalLineInput línea solicitada en POST /api/withdrawals.
type WithdrawalLineInput struct {
	ItemID   string          `json:"item_id"`
	Quantity decimal.Decimal `json:"quantity"`
}

// CreateWithdrawalRequest body para POST /api/withdrawals.
type CreateWithdrawalRequest struct {
	Lines    []WithdrawalLineInput `json:"lines"`
	Receiver string                `json:"receiver"`
	Purpose  string                `json:"purpose"`
}

// ReleaseWithdrawalRequest body para POST /api/withdrawals/{id}/release.
type ReleaseWithdrawalRequest struct {
	Checklist map[string]bool `json:"checklist"`
	Notes     string          `json:"notes"`
}

// ReturnLineInput cantidad y condición devuelta por ítem.
type ReturnLineInput struct {
	ItemID    string          `json:"item_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	Condition string          `json:"condition"` // good | damaged
}

// ReturnWithdrawalRequest body para POST /api/withdrawals/{id}/return.
type ReturnWithdrawalRequest struct {
	Items []ReturnLineInput `json:"items"`
	Notes string            `json:"notes"`
}

// WithdrawalLineResponse línea con sus cantidades.
type WithdrawalLineResponse struct {
	ItemID          string          `json:"item_id"`
	Requested       decimal.Decimal `json:"requested"`
	Released        decimal.Decimal `json:"released"`
	Returned        decimal.Decimal `json:"returned"`
	ReturnCondition string          `json:"return_condition,omitempty"`
}

// WithdrawalResponse lote de retiro completo.
type WithdrawalResponse struct {
	ID            string                   `json:"id"`
	Receiver      string                   `json:"receiver"`
	Purpose       string                   `json:"purpose"`
	Status        string                   `json:"status"`
	Lines         []WithdrawalLineResponse `json:"lines"`
	CreatedBy     string                   `json:"created_by"`
	CreatedByRole string                   `json:"created_by_role"`
	Chain         []ChainStepDTO           `json:"chain"`
	NextApprover  *ChainStepDTO            `json:"next_approver,omitempty"`
	Steps         []ApprovalStepDTO        `json:"steps"`
	CreatedAt     time.Time                `json:"created_at"`
	UpdatedAt     time.Time                `json:"updated_at"`
}

// WithdrawalListResponse listado paginado.
type WithdrawalListResponse struct {
	Items []WithdrawalResponse `json:"items"`
	Page  PageResponse         `json:"page"`
}

// NewWithdrawalResponse mapea la entidad; next puede ser nil.
func NewWithdrawalResponse(w *entity.WithdrawalRequest, next *entity.ChainStep) WithdrawalResponse {
	lines := make([]WithdrawalLineResponse, 0, len(w.Lines))
	for _, l := range w.Lines {
		lines = append(lines, WithdrawalLineResponse{
			ItemID:          l.ItemID,
			Requested:       l.Requested,
			Released:        l.Released,
			Returned:        l.Returned,
			ReturnCondition: l.ReturnCondition,
		})
	}
	return WithdrawalResponse{
		ID:            w.ID,
		Receiver:      w.Receiver,
		Purpose:       w.Purpose,
		Status:        string(w.Status),
		Lines:         lines,
		CreatedBy:     w.CreatedBy,
		CreatedByRole: string(w.CreatedByRole),
		Chain:         toChainDTO(w.Chain),
		NextApprover:  toNextDTO(next),
		Steps:         toStepsDTO(w.Steps),
		CreatedAt:     w.CreatedAt,
		UpdatedAt:     w.UpdatedAt,
	}
}
