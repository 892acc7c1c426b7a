package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ItemKind distingue activos fijos de consumibles con cantidad.
type ItemKind string

const (
	ItemKindAsset      ItemKind = "asset"
	ItemKindConsumable ItemKind = "consumable"
)

// ItemStatus estado físico/operativo de un ítem.
type ItemStatus string

const (
	ItemStatusAvailable   ItemStatus = "available"
	ItemStatusInUse       ItemStatus = "in_use"
	ItemStatusInTransit   ItemStatus = "in_transit"
	ItemStatusMaintenance ItemStatus = "maintenance"
	ItemStatusRetired     ItemStatus = "retired"
)

// Transferable indica si un activo en este estado puede moverse de ubicación.
func (s ItemStatus) Transferable() bool {
	return s == ItemStatusAvailable || s == ItemStatusInUse
}

// Item activo o consumible. AvailableQuantity y LocationID solo se escriben vía ReservationGuard.
type Item struct {
	ID                string
	Code              string // código de referencia
	Name              string
	Kind              ItemKind
	LocationID        string
	Status            ItemStatus
	Returnable        bool // consumible que se devuelve tras su uso
	AvailableQuantity decimal.Decimal
	TotalQuantity     decimal.Decimal
	UpdatedAt         time.Time
}
