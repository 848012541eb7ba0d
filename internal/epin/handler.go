package epin

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/upline-net/upline_net/internal/identity"
)

// Handler exposes e-pin HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds an e-pin HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type requestRequest struct {
	RequesterID  string `json:"requester_id"`
	Quantity     int    `json:"quantity"`
	FaceValue    int64  `json:"face_value"`
	PackageName  string `json:"package_name"`
	PaymentMode  string `json:"payment_mode"`
	ExternalTxID string `json:"external_tx_id"`
	ProofRef     string `json:"proof_ref"`
}

type decisionRequest struct {
	AdminID string `json:"admin_id"`
}

type redeemRequest struct {
	Code       string `json:"code"`
	RedeemerID string `json:"redeemer_id"`
}

type pinResponse struct {
	Code      string `json:"code"`
	FaceValue int64  `json:"face_value"`
	Package   string `json:"package_name,omitempty"`
	Status    string `json:"status"`
	HolderID  string `json:"holder_id,omitempty"`
}

// SubmitRequest records a pending batch request.
func (h *Handler) SubmitRequest(c *fiber.Ctx) error {
	var req requestRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	request, err := h.service.SubmitRequest(c.UserContext(), RequestInput{
		RequesterID:  req.RequesterID,
		Quantity:     req.Quantity,
		FaceValue:    req.FaceValue,
		PackageName:  req.PackageName,
		PaymentMode:  req.PaymentMode,
		ExternalTxID: req.ExternalTxID,
		ProofRef:     req.ProofRef,
	})
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"request_id": request.ID,
		"status":     request.Status,
	})
}

// Approve mints the requested batch.
func (h *Handler) Approve(c *fiber.Ctx) error {
	var req decisionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	request, pins, err := h.service.Approve(c.UserContext(), c.Params("requestId"), req.AdminID)
	if err != nil {
		switch {
		case errors.Is(err, ErrAlreadyProcessed):
			return fiber.NewError(http.StatusConflict, err.Error())
		case errors.Is(err, ErrRequestNotFound), errors.Is(err, identity.ErrNotFound):
			return fiber.NewError(http.StatusNotFound, err.Error())
		case len(pins) > 0:
			// Approved but short-minted; surface the partial batch.
			return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
				"request_id": request.ID,
				"status":     request.Status,
				"pins":       toPinResponses(pins),
				"error":      "minting incomplete",
			})
		default:
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"request_id": request.ID,
		"status":     request.Status,
		"pins":       toPinResponses(pins),
	})
}

// Reject declines a pending request.
func (h *Handler) Reject(c *fiber.Ctx) error {
	var req decisionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	request, err := h.service.Reject(c.UserContext(), c.Params("requestId"), req.AdminID)
	if err != nil {
		switch {
		case errors.Is(err, ErrAlreadyProcessed):
			return fiber.NewError(http.StatusConflict, err.Error())
		case errors.Is(err, ErrRequestNotFound), errors.Is(err, identity.ErrNotFound):
			return fiber.NewError(http.StatusNotFound, err.Error())
		default:
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"request_id": request.ID,
		"status":     request.Status,
	})
}

// Redeem consumes a pin and credits the redeemer's shopping wallet.
func (h *Handler) Redeem(c *fiber.Ctx) error {
	var req redeemRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	pin, entry, err := h.service.Redeem(c.UserContext(), req.Code, req.RedeemerID)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCode), errors.Is(err, identity.ErrNotFound):
			return fiber.NewError(http.StatusNotFound, err.Error())
		case errors.Is(err, ErrAlreadyUsed), errors.Is(err, ErrExpired), errors.Is(err, ErrNotAllocated):
			return fiber.NewError(http.StatusConflict, err.Error())
		default:
			return fiber.NewError(http.StatusInternalServerError, "redemption failed")
		}
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"code":       pin.Code,
		"face_value": pin.FaceValue,
		"status":     pin.Status,
		"balance":    entry.BalanceAfter,
	})
}

// Pending lists requests awaiting a decision.
func (h *Handler) Pending(c *fiber.Ctx) error {
	requests, err := h.service.PendingRequests(c.UserContext())
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, "request lookup failed")
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"requests": requests, "count": len(requests)})
}

// Pins lists pins allocated to a holder.
func (h *Handler) Pins(c *fiber.Ctx) error {
	pins, err := h.service.Pins(c.UserContext(), c.Params("accountId"))
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, "pin lookup failed")
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"pins": toPinResponses(pins)})
}

// ExpireSweep applies the time-based expiry transition; the scheduler calling
// it lives outside this service.
func (h *Handler) ExpireSweep(c *fiber.Ctx) error {
	expired, err := h.service.ExpireDue(c.UserContext(), time.Now().UTC())
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, "expiry sweep failed")
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"expired": expired})
}

func toPinResponses(pins []Pin) []pinResponse {
	out := make([]pinResponse, 0, len(pins))
	for _, pin := range pins {
		out = append(out, pinResponse{
			Code:      pin.Code,
			FaceValue: pin.FaceValue,
			Package:   pin.PackageName,
			Status:    string(pin.Status),
			HolderID:  pin.HolderID,
		})
	}
	return out
}
