package httpx

import (
	"github.com/gofiber/fiber/v2"

	"configtree/internal/httpx/kit"
)

// HealthHandler reports service health.
//
//	@Summary		Health check
//	@Description	Reports whether the API is up
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	map[string]string	"healthy"
//	@Router			/health [get]
func HealthHandler(c *fiber.Ctx) error {
	return kit.OK(c, fiber.Map{"status": "ok"})
}
