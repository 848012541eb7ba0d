package purchase

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/upline-net/upline_net/internal/ledger"
	"github.com/upline-net/upline_net/internal/network"
)

// Handler exposes package activation HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a package activation handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type activateRequest struct {
	AccountID    string `json:"account_id"`
	PackageValue int64  `json:"package_value"`
	PackageName  string `json:"package_name"`
	Reference    string `json:"reference"`
}

// Activate debits the package price and fans out commissions.
func (h *Handler) Activate(c *fiber.Ctx) error {
	var req activateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	outcome, err := h.service.Activate(c.UserContext(), ActivateInput{
		AccountID:    req.AccountID,
		PackageValue: req.PackageValue,
		PackageName:  req.PackageName,
		Reference:    req.Reference,
	})
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrInsufficientBalance):
			return fiber.NewError(http.StatusConflict, err.Error())
		case errors.Is(err, network.ErrNodeNotFound):
			return fiber.NewError(http.StatusNotFound, err.Error())
		default:
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
	}

	failures := make([]string, 0, len(outcome.CommissionFailures))
	for _, f := range outcome.CommissionFailures {
		failures = append(failures, f.Error())
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"purchase_entry_id":   outcome.Purchase.ID,
		"balance_after":       outcome.Purchase.BalanceAfter,
		"commissions_posted":  len(outcome.CommissionEntries),
		"commission_failures": failures,
		"completed_at":        outcome.CompletedAt,
	})
}
