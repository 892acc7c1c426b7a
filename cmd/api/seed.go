package main

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/Movimientos-api/internal/domain/entity"
	"github.com/jhoicas/Movimientos-api/internal/infrastructure/memory"
)

// seedDemo carga un inventario mínimo para probar la API con APP_STORE=memory.
func seedDemo(st *memory.Store) {
	now := time.Now()
	qty := decimal.NewFromInt
	for _, it := range []entity.Item{
		{ID: "CON-001", Code: "CON-001", Name: "Guantes de nitrilo (caja)", Kind: entity.ItemKindConsumable,
			LocationID: "BOD-CENTRAL", Status: entity.ItemStatusAvailable, AvailableQuantity: qty(40), TotalQuantity: qty(40)},
		{ID: "CON-002", Code: "CON-002", Name: "Cinta de señalización", Kind: entity.ItemKindConsumable,
			LocationID: "BOD-CENTRAL", Status: entity.ItemStatusAvailable, AvailableQuantity: qty(12), TotalQuantity: qty(12)},
		{ID: "CON-003", Code: "CON-003", Name: "Conos de tráfico", Kind: entity.ItemKindConsumable, Returnable: true,
			LocationID: "BOD-CENTRAL", Status: entity.ItemStatusAvailable, AvailableQuantity: qty(20), TotalQuantity: qty(20)},
		{ID: "ACT-100", Code: "ACT-100", Name: "Taladro percutor", Kind: entity.ItemKindAsset,
			LocationID: "BOD-CENTRAL", Status: entity.ItemStatusAvailable, AvailableQuantity: qty(1), TotalQuantity: qty(1)},
		{ID: "ACT-101", Code: "ACT-101", Name: "Proyector", Kind: entity.ItemKindAsset,
			LocationID: "OFICINA-1", Status: entity.ItemStatusInUse, AvailableQuantity: qty(1), TotalQuantity: qty(1)},
	} {
		it.UpdatedAt = now
		st.PutItem(it)
	}
}
