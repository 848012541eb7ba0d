package tree

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/upline-net/upline_net/internal/network"
)

// Handler exposes tree view HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a tree HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Get returns a bounded-depth tree view rooted at the account.
func (h *Handler) Get(c *fiber.Ctx) error {
	mode, err := ParseMode(c.Query("mode"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	depth := 0
	if raw := c.Query("depth"); raw != "" {
		depth, err = strconv.Atoi(raw)
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, "depth must be an integer")
		}
	}

	root, err := h.service.Build(c.UserContext(), c.Params("accountId"), depth, mode)
	if err != nil {
		if errors.Is(err, network.ErrNodeNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, "tree build failed")
	}
	return c.Status(http.StatusOK).JSON(root)
}
