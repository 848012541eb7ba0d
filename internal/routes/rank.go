package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/upline-net/upline_net/internal/rank"
)

// RegisterRankRoutes wires rank evaluation endpoints.
func RegisterRankRoutes(r fiber.Router, h *rank.Handler) {
	r.Get("/ranks/:accountId", h.Evaluate)
}
