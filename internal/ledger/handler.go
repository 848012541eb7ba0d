package ledger

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	store Store
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

type walletResponse struct {
	AccountID         string    `json:"account_id"`
	WalletType        string    `json:"wallet_type"`
	Balance           int64     `json:"balance"`
	LifetimeEarned    int64     `json:"lifetime_earned"`
	LifetimeWithdrawn int64     `json:"lifetime_withdrawn"`
	AsOf              time.Time `json:"as_of"`
}

type entryResponse struct {
	ID            string    `json:"id"`
	WalletType    string    `json:"wallet_type"`
	Direction     string    `json:"direction"`
	Amount        int64     `json:"amount"`
	BalanceBefore int64     `json:"balance_before"`
	BalanceAfter  int64     `json:"balance_after"`
	Category      string    `json:"category"`
	Reference     string    `json:"reference,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Balance returns the wallet state for an account and wallet type.
func (h *Handler) Balance(c *fiber.Ctx) error {
	walletType, err := ParseWalletType(c.Params("walletType"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	accountID := c.Params("accountId")

	w, err := h.store.Wallet(c.UserContext(), accountID, walletType)
	if err != nil {
		if errors.Is(err, ErrWalletNotFound) {
			// A wallet that was never credited reads as empty, not missing.
			w = Wallet{AccountID: accountID, Type: walletType}
		} else {
			return fiber.NewError(http.StatusInternalServerError, "wallet lookup failed")
		}
	}
	return c.Status(http.StatusOK).JSON(walletResponse{
		AccountID:         accountID,
		WalletType:        string(walletType),
		Balance:           w.Balance,
		LifetimeEarned:    w.LifetimeEarned,
		LifetimeWithdrawn: w.LifetimeWithdrawn,
		AsOf:              time.Now().UTC(),
	})
}

// Statement lists an account's ledger entries.
func (h *Handler) Statement(c *fiber.Ctx) error {
	entries, err := h.store.Entries(c.UserContext(), c.Params("accountId"))
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, "statement lookup failed")
	}
	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryResponse(e))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"entries": out})
}

type withdrawRequest struct {
	Amount    int64  `json:"amount"`
	Reference string `json:"reference"`
}

// Withdraw debits the earnings wallet.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	var req withdrawRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	entry, err := h.store.Transfer(c.UserContext(), TransferInput{
		AccountID:  c.Params("accountId"),
		WalletType: WalletEarnings,
		Direction:  Debit,
		Amount:     req.Amount,
		Category:   CategoryWithdrawal,
		Reference:  req.Reference,
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientBalance) {
			return fiber.NewError(http.StatusConflict, err.Error())
		}
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusCreated).JSON(toEntryResponse(entry))
}

func toEntryResponse(e Entry) entryResponse {
	return entryResponse{
		ID:            e.ID,
		WalletType:    string(e.WalletType),
		Direction:     string(e.Direction),
		Amount:        e.Amount,
		BalanceBefore: e.BalanceBefore,
		BalanceAfter:  e.BalanceAfter,
		Category:      string(e.Category),
		Reference:     e.Reference,
		CreatedAt:     e.CreatedAt,
	}
}
