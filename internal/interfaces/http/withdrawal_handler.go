package http

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/jhoicas/Movimientos-api/internal/application/dto"
	"github.com/jhoicas/Movimientos-api/internal/application/withdrawal"
	"github.com/jhoicas/Movimientos-api/internal/domain/entity"
)

// WithdrawalHandler maneja las peticiones HTTP de lotes de retiro de consumibles.
type WithdrawalHandler struct {
	uc  *withdrawal.UseCase
	log zerolog.Logger
}

// NewWithdrawalHandler construye el handler.
func NewWithdrawalHandler(uc *withdrawal.UseCase, log zerolog.Logger) *WithdrawalHandler {
	return &WithdrawalHandler{uc: uc, log: log}
}

// Create godoc
// @Summary      Crear lote de retiro
// @Description  Valida cada línea contra el stock observado (chequeo blando). El stock se revalida al despachar.
// @Tags         withdrawals
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.CreateWithdrawalRequest  true  "lines, receiver, purpose"
// @Success      201   {object}  dto.Envelope{data=dto.WithdrawalResponse}
// @Failure      400   {object}  dto.Envelope
// @Failure      403   {object}  dto.Envelope
// @Failure      404   {object}  dto.Envelope
// @Failure      409   {object}  dto.Envelope{errors=[]domain.Shortfall}
// @Router       /api/withdrawals [post]
func (h *WithdrawalHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateWithdrawalRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	lines := make([]withdrawal.LineInput, 0, len(in.Lines))
	for _, l := range in.Lines {
		lines = append(lines, withdrawal.LineInput{ItemID: l.ItemID, Quantity: l.Quantity})
	}
	w, err := h.uc.Create(c.Context(), GetActor(c), lines, in.Receiver, in.Purpose)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.OK(withdrawal.SoftCheckWarning, dto.NewWithdrawalResponse(w, nextStep(w))))
}

// List godoc
// @Summary      Listar lotes de retiro
// @Tags         withdrawals
// @Security     Bearer
// @Produce      json
// @Param        status  query     string  false  "Estado (pending_verification, approved, released, ...)"
// @Param        limit   query     int     false  "Máximo 100"
// @Param        offset  query     int     false  "Desplazamiento"
// @Success      200     {object}  dto.Envelope{data=dto.WithdrawalListResponse}
// @Failure      400     {object}  dto.Envelope
// @Router       /api/withdrawals [get]
func (h *WithdrawalHandler) List(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.Fail("INVALID_QUERY", "parámetros de paginación inválidos", nil))
	}
	page.DefaultPage()
	list, total, err := h.uc.List(c.Context(), c.Query("status"), page.Limit, page.Offset)
	if err != nil {
		return writeError(c, h.log, err)
	}
	items := make([]dto.WithdrawalResponse, 0, len(list))
	for _, w := range list {
		items = append(items, dto.NewWithdrawalResponse(w, nextStep(w)))
	}
	return c.JSON(dto.OK("ok", dto.WithdrawalListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Total: total},
	}))
}

// GetByID godoc
// @Summary      Obtener lote de retiro con su bitácora
// @Tags         withdrawals
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID del lote"
// @Success      200  {object}  dto.Envelope{data=dto.WithdrawalResponse}
// @Failure      404  {object}  dto.Envelope
// @Router       /api/withdrawals/{id} [get]
func (h *WithdrawalHandler) GetByID(c *fiber.Ctx) error {
	w, next, err := h.uc.Get(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.OK("ok", dto.NewWithdrawalResponse(w, next)))
}

// Verify godoc
// @Summary      Verificar lote (pending_verification -> pending_approval)
// @Tags         withdrawals
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path      string            true   "ID del lote"
// @Param        body  body      dto.NotesRequest  false  "notas"
// @Success      200   {object}  dto.Envelope{data=dto.StatusResponse}
// @Failure      403   {object}  dto.Envelope
// @Failure      409   {object}  dto.Envelope
// @Router       /api/withdrawals/{id}/verify [post]
func (h *WithdrawalHandler) Verify(c *fiber.Ctx) error {
	return h.withNotes(c, h.uc.Verify)
}

// Approve godoc
// @Summary      Aprobar lote (pending_approval -> approved)
// @Tags         withdrawals
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path      string            true   "ID del lote"
// @Param        body  body      dto.NotesRequest  false  "notas"
// @Success      200   {object}  dto.Envelope{data=dto.StatusResponse}
// @Failure      403   {object}  dto.Envelope
// @Failure      409   {object}  dto.Envelope
// @Router       /api/withdrawals/{id}/approve [post]
func (h *WithdrawalHandler) Approve(c *fiber.Ctx) error {
	return h.withNotes(c, h.uc.Approve)
}

// Release godoc
// @Summary      Despachar lote (approved -> released)
// @Description  Revalida todas las líneas en una transacción: o se descuentan todas o ninguna.
// @Tags         withdrawals
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path      string                        true  "ID del lote"
// @Param        body  body      dto.ReleaseWithdrawalRequest  true  "checklist y notas"
// @Success      200   {object}  dto.Envelope{data=dto.StatusResponse}
// @Failure      400   {object}  dto.Envelope
// @Failure      409   {object}  dto.Envelope{errors=[]domain.Shortfall}
// @Failure      503   {object}  dto.Envelope
// @Router       /api/withdrawals/{id}/release [post]
func (h *WithdrawalHandler) Release(c *fiber.Ctx) error {
	var in dto.ReleaseWithdrawalRequest
	if err := parseOptionalBody(c, &in); err != nil {
		return badBody(c)
	}
	w, err := h.uc.Release(c.Context(), c.Params("id"), GetActor(c), in.Checklist, in.Notes)
	return h.status(c, w, err)
}

// Return godoc
// @Summary      Registrar devolución (released -> returned cuando todo queda conciliado)
// @Tags         withdrawals
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path      string                       true  "ID del lote"
// @Param        body  body      dto.ReturnWithdrawalRequest  true  "ítems devueltos con cantidad y condición"
// @Success      200   {object}  dto.Envelope{data=dto.StatusResponse}
// @Failure      400   {object}  dto.Envelope
// @Failure      409   {object}  dto.Envelope
// @Router       /api/withdrawals/{id}/return [post]
func (h *WithdrawalHandler) Return(c *fiber.Ctx) error {
	var in dto.ReturnWithdrawalRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	returns := make([]withdrawal.ReturnInput, 0, len(in.Items))
	for _, r := range in.Items {
		returns = append(returns, withdrawal.ReturnInput{ItemID: r.ItemID, Quantity: r.Quantity, Condition: r.Condition})
	}
	w, err := h.uc.Return(c.Context(), c.Params("id"), GetActor(c), returns, in.Notes)
	return h.status(c, w, err)
}

// Cancel godoc
// @Summary      Cancelar lote
// @Tags         withdrawals
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path      string             true  "ID del lote"
// @Param        body  body      dto.ReasonRequest  true  "motivo"
// @Success      200   {object}  dto.Envelope{data=dto.StatusResponse}
// @Failure      400   {object}  dto.Envelope
// @Failure      409   {object}  dto.Envelope
// @Router       /api/withdrawals/{id}/cancel [post]
func (h *WithdrawalHandler) Cancel(c *fiber.Ctx) error {
	return h.withReason(c, h.uc.Cancel)
}

// Reject godoc
// @Summary      Rechazar lote
// @Tags         withdrawals
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path      string             true  "ID del lote"
// @Param        body  body      dto.ReasonRequest  true  "motivo"
// @Success      200   {object}  dto.Envelope{data=dto.StatusResponse}
// @Failure      403   {object}  dto.Envelope
// @Failure      409   {object}  dto.Envelope
// @Router       /api/withdrawals/{id}/reject [post]
func (h *WithdrawalHandler) Reject(c *fiber.Ctx) error {
	return h.withReason(c, h.uc.Reject)
}

type withdrawalTransition func(ctx context.Context, id string, actor entity.Actor, text string) (*entity.WithdrawalRequest, error)

func (h *WithdrawalHandler) withNotes(c *fiber.Ctx, fn withdrawalTransition) error {
	var in dto.NotesRequest
	if err := parseOptionalBody(c, &in); err != nil {
		return badBody(c)
	}
	w, err := fn(c.Context(), c.Params("id"), GetActor(c), in.Notes)
	return h.status(c, w, err)
}

func (h *WithdrawalHandler) withReason(c *fiber.Ctx, fn withdrawalTransition) error {
	var in dto.ReasonRequest
	if err := parseOptionalBody(c, &in); err != nil {
		return badBody(c)
	}
	w, err := fn(c.Context(), c.Params("id"), GetActor(c), in.Reason)
	return h.status(c, w, err)
}

func (h *WithdrawalHandler) status(c *fiber.Ctx, w *entity.WithdrawalRequest, err error) error {
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.OK("ok", dto.StatusResponse{ID: w.ID, Status: string(w.Status)}))
}
