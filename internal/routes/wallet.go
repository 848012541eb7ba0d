package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/upline-net/upline_net/internal/ledger"
)

// RegisterWalletRoutes wires wallet and ledger endpoints.
func RegisterWalletRoutes(r fiber.Router, h *ledger.Handler) {
	r.Get("/wallets/:accountId/:walletType", h.Balance)
	r.Get("/wallets/:accountId", h.Statement)
	r.Post("/wallets/:accountId/withdrawals", h.Withdraw)
}
