package http

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/jhoicas/Movimientos-api/internal/application/dto"
	"github.com/jhoicas/Movimientos-api/internal/application/transfer"
	"github.com/jhoicas/Movimientos-api/internal/domain/entity"
)

// TransferHandler maneja las peticiones HTTP de traslados de activos.
type TransferHandler struct {
	uc          *transfer.UseCase
	dueSoonDays int
	log         zerolog.Logger
}

// NewTransferHandler construye el handler. dueSoonDays es la ventana por defecto de due-soon.
func NewTransferHandler(uc *transfer.UseCase, dueSoonDays int, log zerolog.Logger) *TransferHandler {
	return &TransferHandler{uc: uc, dueSoonDays: dueSoonDays, log: log}
}

// Create godoc
// @Summary      Crear traslado de activo
// @Description  Temporal requiere expected_return posterior a transfer_date; permanente no lo admite.
// @Tags         transfers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.CreateTransferRequest  true  "asset_id, from/to, type, fechas"
// @Success      201   {object}  dto.Envelope{data=dto.TransferResponse}
// @Failure      400   {object}  dto.Envelope
// @Failure      404   {object}  dto.Envelope
// @Failure      409   {object}  dto.Envelope
// @Router       /api/transfers [post]
func (h *TransferHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateTransferRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	t, err := h.uc.Create(c.Context(), GetActor(c), transfer.CreateInput{
		AssetID:        in.AssetID,
		FromLocationID: in.FromLocationID,
		ToLocationID:   in.ToLocationID,
		Type:           entity.TransferType(in.Type),
		TransferDate:   in.TransferDate,
		ExpectedReturn: in.ExpectedReturn,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.OK("traslado creado", dto.NewTransferResponse(t, nextStep(t), h.uc.Now())))
}

// GetByID godoc
// @Summary      Obtener traslado con su bitácora
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID del traslado"
// @Success      200  {object}  dto.Envelope{data=dto.TransferResponse}
// @Failure      404  {object}  dto.Envelope
// @Router       /api/transfers/{id} [get]
func (h *TransferHandler) GetByID(c *fiber.Ctx) error {
	t, next, err := h.uc.Get(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.OK("ok", dto.NewTransferResponse(t, next, h.uc.Now())))
}

// Approve godoc
// @Summary      Aprobar traslado (pending -> approved)
// @Tags         transfers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path      string            true   "ID del traslado"
// @Param        body  body      dto.NotesRequest  false  "notas"
// @Success      200   {object}  dto.Envelope{data=dto.StatusResponse}
// @Failure      403   {object}  dto.Envelope
// @Failure      409   {object}  dto.Envelope
// @Router       /api/transfers/{id}/approve [post]
func (h *TransferHandler) Approve(c *fiber.Ctx) error {
	return h.withNotes(c, h.uc.Approve)
}

// Complete godoc
// @Summary      Completar traslado: el activo pasa a la ubicación destino
// @Tags         transfers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path      string            true   "ID del traslado"
// @Param        body  body      dto.NotesRequest  false  "notas"
// @Success      200   {object}  dto.Envelope{data=dto.StatusResponse}
// @Failure      403   {object}  dto.Envelope
// @Failure      409   {object}  dto.Envelope
// @Router       /api/transfers/{id}/complete [post]
func (h *TransferHandler) Complete(c *fiber.Ctx) error {
	return h.withNotes(c, h.uc.Complete)
}

// Return godoc
// @Summary      Devolver activo de un traslado temporal al origen
// @Tags         transfers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path      string            true   "ID del traslado"
// @Param        body  body      dto.NotesRequest  false  "notas"
// @Success      200   {object}  dto.Envelope{data=dto.StatusResponse}
// @Failure      409   {object}  dto.Envelope
// @Router       /api/transfers/{id}/return [post]
func (h *TransferHandler) Return(c *fiber.Ctx) error {
	return h.withNotes(c, h.uc.ReturnAsset)
}

// Cancel godoc
// @Summary      Cancelar traslado
// @Tags         transfers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path      string             true  "ID del traslado"
// @Param        body  body      dto.ReasonRequest  true  "motivo"
// @Success      200   {object}  dto.Envelope{data=dto.StatusResponse}
// @Failure      400   {object}  dto.Envelope
// @Failure      409   {object}  dto.Envelope
// @Router       /api/transfers/{id}/cancel [post]
func (h *TransferHandler) Cancel(c *fiber.Ctx) error {
	return h.withReason(c, h.uc.Cancel)
}

// Reject godoc
// @Summary      Rechazar traslado
// @Tags         transfers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path      string             true  "ID del traslado"
// @Param        body  body      dto.ReasonRequest  true  "motivo"
// @Success      200   {object}  dto.Envelope{data=dto.StatusResponse}
// @Failure      403   {object}  dto.Envelope
// @Failure      409   {object}  dto.Envelope
// @Router       /api/transfers/{id}/reject [post]
func (h *TransferHandler) Reject(c *fiber.Ctx) error {
	return h.withReason(c, h.uc.Reject)
}

// Overdue godoc
// @Summary      Traslados temporales vencidos sin devolución
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.Envelope{data=[]dto.TransferResponse}
// @Router       /api/transfers/overdue [get]
func (h *TransferHandler) Overdue(c *fiber.Ctx) error {
	list, err := h.uc.Overdue(c.Context())
	return h.list(c, list, err)
}

// DueSoon godoc
// @Summary      Traslados temporales con devolución en los próximos N días
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Param        days  query     int  false  "Ventana en días (por defecto WORKFLOW_DUE_SOON_DAYS)"
// @Success      200   {object}  dto.Envelope{data=[]dto.TransferResponse}
// @Failure      400   {object}  dto.Envelope
// @Router       /api/transfers/due-soon [get]
func (h *TransferHandler) DueSoon(c *fiber.Ctx) error {
	days := h.dueSoonDays
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.Fail("VALIDATION", "days debe ser un entero", nil))
		}
		days = n
	}
	list, err := h.uc.DueSoon(c.Context(), days)
	return h.list(c, list, err)
}

// History godoc
// @Summary      Historial de traslados de un activo
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID del activo"
// @Success      200  {object}  dto.Envelope{data=[]dto.TransferResponse}
// @Router       /api/assets/{id}/transfers [get]
func (h *TransferHandler) History(c *fiber.Ctx) error {
	list, err := h.uc.History(c.Context(), c.Params("id"))
	return h.list(c, list, err)
}

type transferTransition func(ctx context.Context, id string, actor entity.Actor, text string) (*entity.TransferRequest, error)

func (h *TransferHandler) withNotes(c *fiber.Ctx, fn transferTransition) error {
	var in dto.NotesRequest
	if err := parseOptionalBody(c, &in); err != nil {
		return badBody(c)
	}
	t, err := fn(c.Context(), c.Params("id"), GetActor(c), in.Notes)
	return h.status(c, t, err)
}

func (h *TransferHandler) withReason(c *fiber.Ctx, fn transferTransition) error {
	var in dto.ReasonRequest
	if err := parseOptionalBody(c, &in); err != nil {
		return badBody(c)
	}
	t, err := fn(c.Context(), c.Params("id"), GetActor(c), in.Reason)
	return h.status(c, t, err)
}

func (h *TransferHandler) status(c *fiber.Ctx, t *entity.TransferRequest, err error) error {
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.OK("ok", dto.StatusResponse{ID: t.ID, Status: string(t.Status)}))
}

func (h *TransferHandler) list(c *fiber.Ctx, list []*entity.TransferRequest, err error) error {
	if err != nil {
		return writeError(c, h.log, err)
	}
	now := h.uc.Now()
	out := make([]dto.TransferResponse, 0, len(list))
	for _, t := range list {
		out = append(out, dto.NewTransferResponse(t, nextStep(t), now))
	}
	return c.JSON(dto.OK("ok", out))
}
