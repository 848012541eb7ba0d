package rank

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes rank evaluation HTTP endpoints.
type Handler struct {
	evaluator *Evaluator
}

// NewHandler builds a rank HTTP handler.
func NewHandler(evaluator *Evaluator) *Handler {
	return &Handler{evaluator: evaluator}
}

type progressResponse struct {
	Earnings     float64 `json:"earnings_pct"`
	TeamSize     float64 `json:"team_size_pct"`
	PackageValue float64 `json:"package_value_pct"`
}

type evaluationResponse struct {
	Achieved     string           `json:"achieved,omitempty"`
	Next         string           `json:"next,omitempty"`
	Progress     progressResponse `json:"progress"`
	Earnings     int64            `json:"earnings"`
	TeamSize     int64            `json:"team_size"`
	PackageValue int64            `json:"package_value"`
}

// Evaluate computes the member's achieved and next rank.
func (h *Handler) Evaluate(c *fiber.Ctx) error {
	eval, err := h.evaluator.Evaluate(c.UserContext(), c.Params("accountId"))
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, "rank evaluation failed")
	}

	resp := evaluationResponse{
		Progress: progressResponse{
			Earnings:     eval.Progress.Earnings,
			TeamSize:     eval.Progress.TeamSize,
			PackageValue: eval.Progress.PackageValue,
		},
		Earnings:     eval.Earnings,
		TeamSize:     eval.TeamSize,
		PackageValue: eval.PackageValue,
	}
	if eval.Achieved != nil {
		resp.Achieved = eval.Achieved.Label
	}
	if eval.Next != nil {
		resp.Next = eval.Next.Label
	}
	return c.Status(http.StatusOK).JSON(resp)
}
