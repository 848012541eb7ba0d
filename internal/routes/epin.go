package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/upline-net/upline_net/internal/epin"
)

// RegisterEPinRoutes wires e-pin lifecycle endpoints.
func RegisterEPinRoutes(r fiber.Router, h *epin.Handler) {
	r.Post("/epins/requests", h.SubmitRequest)
	r.Get("/epins/requests/pending", h.Pending)
	r.Post("/epins/requests/:requestId/approve", h.Approve)
	r.Post("/epins/requests/:requestId/reject", h.Reject)
	r.Post("/epins/redeem", h.Redeem)
	r.Post("/epins/expire-sweep", h.ExpireSweep)
	r.Get("/epins/holders/:accountId", h.Pins)
}
