package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/jhoicas/Movimientos-api/internal/application/transfer"
	"github.com/jhoicas/Movimientos-api/internal/application/withdrawal"
	"github.com/jhoicas/Movimientos-api/internal/domain/entity"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Withdrawals *withdrawal.UseCase
	Transfers   *transfer.UseCase
	Items       itemLister
	JWTSecret   string
	JWTIssuer   string
	DueSoonDays int
	Log         zerolog.Logger
}

// Router registra las rutas de la API. Todas requieren Bearer Token con un rol conocido;
// la autorización por transición la decide la cadena de aprobación.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api",
		AuthMiddleware(deps.JWTSecret, deps.JWTIssuer),
		RequireRole(
			string(entity.RoleMaker),
			string(entity.RoleVerifier),
			string(entity.RoleApprover),
			string(entity.RoleReleaser),
		),
	)

	withdrawals := api.Group("/withdrawals")
	wh := NewWithdrawalHandler(deps.Withdrawals, deps.Log)
	withdrawals.Post("/", wh.Create)
	withdrawals.Get("/", wh.List)
	withdrawals.Get("/:id", wh.GetByID)
	withdrawals.Post("/:id/verify", wh.Verify)
	withdrawals.Post("/:id/approve", wh.Approve)
	withdrawals.Post("/:id/release", wh.Release)
	withdrawals.Post("/:id/return", wh.Return)
	withdrawals.Post("/:id/cancel", wh.Cancel)
	withdrawals.Post("/:id/reject", wh.Reject)

	transfers := api.Group("/transfers")
	th := NewTransferHandler(deps.Transfers, deps.DueSoonDays, deps.Log)
	transfers.Post("/", th.Create)
	transfers.Get("/overdue", th.Overdue)
	transfers.Get("/due-soon", th.DueSoon)
	transfers.Get("/:id", th.GetByID)
	transfers.Post("/:id/approve", th.Approve)
	transfers.Post("/:id/complete", th.Complete)
	transfers.Post("/:id/return", th.Return)
	transfers.Post("/:id/cancel", th.Cancel)
	transfers.Post("/:id/reject", th.Reject)

	api.Get("/assets/:id/transfers", th.History)

	ih := NewItemHandler(deps.Items, deps.Log)
	api.Get("/locations/:id/items", ih.ListByLocation)
}
