package http

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/jhoicas/Movimientos-api/internal/application/dto"
	"github.com/jhoicas/Movimientos-api/internal/domain/entity"
)

// itemLister lo implementa repository.ItemRepository.
type itemLister interface {
	ListAvailable(ctx context.Context, locationID string) ([]*entity.Item, error)
}

// ItemHandler consulta de ítems disponibles por ubicación.
type ItemHandler struct {
	items itemLister
	log   zerolog.Logger
}

// NewItemHandler construye el handler.
func NewItemHandler(items itemLister, log zerolog.Logger) *ItemHandler {
	return &ItemHandler{items: items, log: log}
}

// ListByLocation godoc
// @Summary      Ítems disponibles en una ubicación
// @Tags         items
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID de la ubicación"
// @Success      200  {object}  dto.Envelope{data=[]dto.ItemResponse}
// @Router       /api/locations/{id}/items [get]
func (h *ItemHandler) ListByLocation(c *fiber.Ctx) error {
	list, err := h.items.ListAvailable(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	out := make([]dto.ItemResponse, 0, len(list))
	for _, it := range list {
		out = append(out, dto.NewItemResponse(it))
	}
	return c.JSON(dto.OK("ok", out))
}
