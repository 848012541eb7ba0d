package network

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes placement HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a placement HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type placeRequest struct {
	AccountID   string `json:"account_id"`
	SponsorCode string `json:"sponsor_code"`
	Leg         string `json:"leg"`
}

type nodeResponse struct {
	AccountID  string `json:"account_id"`
	SponsorID  string `json:"sponsor_id,omitempty"`
	ParentID   string `json:"parent_id,omitempty"`
	Leg        string `json:"leg,omitempty"`
	LeftCount  int64  `json:"left_count"`
	RightCount int64  `json:"right_count"`
	Redirected bool   `json:"redirected,omitempty"`
}

// Place attaches an account to the placement tree.
func (h *Handler) Place(c *fiber.Ctx) error {
	var req placeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	result, err := h.service.Place(c.UserContext(), PlaceInput{
		AccountID:   req.AccountID,
		SponsorCode: req.SponsorCode,
		Leg:         req.Leg,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrSponsorNotFound):
			return fiber.NewError(http.StatusNotFound, err.Error())
		case errors.Is(err, ErrSponsorFull), errors.Is(err, ErrLegOccupied), errors.Is(err, ErrAlreadyPlaced):
			return fiber.NewError(http.StatusConflict, err.Error())
		default:
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
	}

	return c.Status(http.StatusCreated).JSON(toNodeResponse(result.Node, result.Redirected))
}

// Node returns an account's placement node.
func (h *Handler) Node(c *fiber.Ctx) error {
	node, err := h.service.Node(c.UserContext(), c.Params("accountId"))
	if err != nil {
		return fiber.NewError(http.StatusNotFound, err.Error())
	}
	return c.Status(http.StatusOK).JSON(toNodeResponse(node, false))
}

func toNodeResponse(node Node, redirected bool) nodeResponse {
	return nodeResponse{
		AccountID:  node.AccountID,
		SponsorID:  node.SponsorID,
		ParentID:   node.ParentID,
		Leg:        string(node.Leg),
		LeftCount:  node.LeftCount,
		RightCount: node.RightCount,
		Redirected: redirected,
	}
}
