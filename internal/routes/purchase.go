package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/upline-net/upline_net/internal/purchase"
)

// RegisterPurchaseRoutes wires package activation endpoints.
func RegisterPurchaseRoutes(r fiber.Router, h *purchase.Handler) {
	r.Post("/packages/activate", h.Activate)
}
