package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/upline-net/upline_net/internal/network"
)

// RegisterNetworkRoutes wires placement endpoints.
func RegisterNetworkRoutes(r fiber.Router, h *network.Handler) {
	r.Post("/placements", h.Place)
	r.Get("/placements/:accountId", h.Node)
}
