package routes

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/upline-net/upline_net/internal/identity"
	"github.com/upline-net/upline_net/internal/network"
)

// RegisterEnrollmentRoutes wires the combined register-and-place endpoint.
// Creating the account and attaching it to the tree are the two halves of
// member enrollment; the account is created first and placement failures are
// surfaced so the caller can retry placement alone.
func RegisterEnrollmentRoutes(r fiber.Router, accounts *identity.Service, net *network.Service, logger *slog.Logger, limiter fiber.Handler) {
	r.Post("/members", limiter, func(c *fiber.Ctx) error {
		var req struct {
			Username    string `json:"username"`
			Password    string `json:"password"`
			DisplayName string `json:"display_name"`
			SponsorCode string `json:"sponsor_code"`
			Leg         string `json:"leg"`
			Root        bool   `json:"root"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}

		account, err := accounts.Register(c.UserContext(), identity.Credentials{
			Username:    req.Username,
			Password:    req.Password,
			DisplayName: req.DisplayName,
		})
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}

		var (
			node       network.Node
			redirected bool
		)
		if req.Root {
			node, err = net.CreateRoot(c.UserContext(), account.ID)
		} else {
			var result network.PlacementResult
			result, err = net.Place(c.UserContext(), network.PlaceInput{
				AccountID:   account.ID,
				SponsorCode: req.SponsorCode,
				Leg:         req.Leg,
			})
			node = result.Node
			redirected = result.Redirected
		}
		if err != nil {
			// The account exists but holds no tree position yet.
			status := http.StatusBadRequest
			switch {
			case errors.Is(err, network.ErrSponsorNotFound):
				status = http.StatusNotFound
			case errors.Is(err, network.ErrSponsorFull), errors.Is(err, network.ErrLegOccupied):
				status = http.StatusConflict
			}
			return c.Status(status).JSON(fiber.Map{
				"account_id":    account.ID,
				"referral_code": account.ReferralCode,
				"placed":        false,
				"error":         err.Error(),
			})
		}

		if logger != nil {
			logger.Info("member enrolled",
				slog.String("account_id", account.ID),
				slog.String("username", account.Username),
				slog.String("leg", string(node.Leg)),
				slog.Bool("redirected", redirected),
			)
		}
		return c.Status(http.StatusCreated).JSON(fiber.Map{
			"account_id":    account.ID,
			"referral_code": account.ReferralCode,
			"placed":        true,
			"leg":           node.Leg,
			"redirected":    redirected,
		})
	})
}
