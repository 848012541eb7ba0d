package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/upline-net/upline_net/internal/tree"
)

// RegisterTreeRoutes wires tree view endpoints.
func RegisterTreeRoutes(r fiber.Router, h *tree.Handler) {
	r.Get("/tree/:accountId", h.Get)
}
