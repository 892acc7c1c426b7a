package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/Movimientos-api/internal/domain/approval"
	"github.com/jhoicas/Movimientos-api/internal/domain/entity"
)

// parseOptionalBody acepta cuerpo vacío (notas opcionales) y parsea JSON si viene.
func parseOptionalBody(c *fiber.Ctx, out any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	return c.BodyParser(out)
}

func nextStep(s approval.Subject) *entity.ChainStep {
	if next, ok := approval.NextApprover(s); ok {
		return &next
	}
	return nil
}
