package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/pricepally/forecasting/internal/analytics/forecast"
	"github.com/pricepally/forecasting/internal/models"
)

// Methods lists the forecast methods a row can carry and the registered heuristics
// GET /v1/methods
func (h *Handler) Methods(c *fiber.Ctx) error {
	methods := forecast.Methods()
	names := make([]string, len(methods))
	for i, m := range methods {
		names[i] = string(m)
	}

	return c.JSON(models.MethodsResponse{
		Methods:    names,
		Heuristics: forecast.ListHeuristics(),
	})
}
