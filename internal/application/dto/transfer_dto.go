package dto

import (
	"time"

	"github.com/jhoicas/Movimientos-api/internal/domain/entity"
)

// CreateTransferRequest body para POST /api/transfers.
type CreateTransferRequest struct {
	AssetID        string     `json:"asset_id"`
	FromLocationID string     `json:"from_location_id"`
	ToLocationID   string     `json:"to_location_id"`
	Type           string     `json:"type"` // temporary | permanent
	TransferDate   time.Time  `json:"transfer_date"`
	ExpectedReturn *time.Time `json:"expected_return,omitempty"`
}

// TransferResponse traslado completo.
type TransferResponse struct {
	ID             string            `json:"id"`
	AssetID        string            `json:"asset_id"`
	FromLocationID string            `json:"from_location_id"`
	ToLocationID   string            `json:"to_location_id"`
	Type           string            `json:"type"`
	Status         string            `json:"status"`
	TransferDate   time.Time         `json:"transfer_date"`
	ExpectedReturn *time.Time        `json:"expected_return,omitempty"`
	ActualReturn   *time.Time        `json:"actual_return,omitempty"`
	Overdue        bool              `json:"overdue"`
	CreatedBy      string            `json:"created_by"`
	Chain          []ChainStepDTO    `json:"chain"`
	NextApprover   *ChainStepDTO     `json:"next_approver,omitempty"`
	Steps          []ApprovalStepDTO `json:"steps"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// NewTransferResponse mapea la entidad; next puede ser nil.
func NewTransferResponse(t *entity.TransferRequest, next *entity.ChainStep, now time.Time) TransferResponse {
	return TransferResponse{
		ID:             t.ID,
		AssetID:        t.AssetID,
		FromLocationID: t.FromLocationID,
		ToLocationID:   t.ToLocationID,
		Type:           string(t.Type),
		Status:         string(t.Status),
		TransferDate:   t.TransferDate,
		ExpectedReturn: t.ExpectedReturn,
		ActualReturn:   t.ActualReturn,
		Overdue:        t.Overdue(now),
		CreatedBy:      t.CreatedBy,
		Chain:          toChainDTO(t.Chain),
		NextApprover:   toNextDTO(next),
		Steps:          toStepsDTO(t.Steps),
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

// ItemResponse ítem disponible en una ubicación.
type ItemResponse struct {
	ID                string `json:"id"`
	Code              string `json:"code"`
	Name              string `json:"name"`
	Kind              string `json:"kind"`
	LocationID        string `json:"location_id"`
	Status            string `json:"status"`
	Returnable        bool   `json:"returnable"`
	AvailableQuantity string `json:"available_quantity"`
	TotalQuantity     string `json:"total_quantity"`
}

// NewItemResponse mapea la entidad.
func NewItemResponse(it *entity.Item) ItemResponse {
	return ItemResponse{
		ID:                it.ID,
		Code:              it.Code,
		Name:              it.Name,
		Kind:              string(it.Kind),
		LocationID:        it.LocationID,
		Status:            string(it.Status),
		Returnable:        it.Returnable,
		AvailableQuantity: it.AvailableQuantity.String(),
		TotalQuantity:     it.TotalQuantity.String(),
	}
}
