package epin

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/upline-net/upline_net/internal/identity"
	"github.com/upline-net/upline_net/internal/ledger"
	"github.com/upline-net/upline_net/internal/notification"
)

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Codes are fixed-length uppercase alphanumerics; generation retries on
// collision this many times per pin before giving up.
const maxCodeAttempts = 5

// Service drives the e-pin lifecycle: request, approval minting, redemption
// and expiry.
type Service struct {
	store      Store
	ledger     ledger.Store
	accounts   identity.Repository
	notifier   notification.Notifier
	logger     *slog.Logger
	codeLength int
	validity   time.Duration
}

// NewService builds an e-pin service.
func NewService(store Store, ledgerStore ledger.Store, accounts identity.Repository, notifier notification.Notifier, logger *slog.Logger, codeLength int, validity time.Duration) *Service {
	if codeLength <= 0 {
		codeLength = 12
	}
	return &Service{
		store:      store,
		ledger:     ledgerStore,
		accounts:   accounts,
		notifier:   notifier,
		logger:     logger,
		codeLength: codeLength,
		validity:   validity,
	}
}

// RequestInput captures a holder's ask for a batch of pins.
type RequestInput struct {
	RequesterID  string
	Quantity     int
	FaceValue    int64
	PackageName  string
	PaymentMode  string
	ExternalTxID string
	ProofRef     string
}

// SubmitRequest records a pending batch request.
func (s *Service) SubmitRequest(ctx context.Context, input RequestInput) (Request, error) {
	if input.Quantity <= 0 {
		return Request{}, errors.New("quantity must be positive")
	}
	if input.FaceValue <= 0 {
		return Request{}, errors.New("face value must be positive")
	}
	if _, err := s.accounts.FindByID(ctx, input.RequesterID); err != nil {
		return Request{}, err
	}

	request := Request{
		ID:           uuid.New().String(),
		RequesterID:  input.RequesterID,
		Quantity:     input.Quantity,
		FaceValue:    input.FaceValue,
		PackageName:  input.PackageName,
		PaymentMode:  input.PaymentMode,
		ExternalTxID: input.ExternalTxID,
		ProofRef:     input.ProofRef,
		Status:       RequestPending,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.CreateRequest(ctx, request); err != nil {
		return Request{}, err
	}
	return request, nil
}

// Approve transitions a pending request to APPROVED and mints exactly
// quantity pins allocated to the requester. The status transition wins
// exactly once, so concurrent approvals cannot double-mint.
func (s *Service) Approve(ctx context.Context, requestID, adminID string) (Request, []Pin, error) {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return Request{}, nil, err
	}

	now := time.Now().UTC()
	request, err := s.store.MarkRequest(ctx, requestID, RequestApproved, adminID, now)
	if err != nil {
		return Request{}, nil, err
	}

	pins := make([]Pin, 0, request.Quantity)
	for i := 0; i < request.Quantity; i++ {
		pin, err := s.mintOne(ctx, request, now)
		if err != nil {
			// The approval already happened; report what was minted so the
			// shortfall can be reconciled.
			if s.logger != nil {
				s.logger.Error("e-pin mint failed",
					slog.String("request_id", requestID),
					slog.Int("minted", len(pins)),
					slog.Int("wanted", request.Quantity),
					slog.Any("error", err),
				)
			}
			return request, pins, fmt.Errorf("minted %d of %d pins: %w", len(pins), request.Quantity, err)
		}
		pins = append(pins, pin)
	}

	return request, pins, nil
}

// Reject transitions a pending request to REJECTED. Nothing is minted.
func (s *Service) Reject(ctx context.Context, requestID, adminID string) (Request, error) {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return Request{}, err
	}
	return s.store.MarkRequest(ctx, requestID, RequestRejected, adminID, time.Now().UTC())
}

// Redeem flips an unused pin to USED and credits the redeemer's shopping
// wallet by the pin's face value. The transition is irreversible; retrying
// after ErrAlreadyUsed yields ErrAlreadyUsed again with no balance change.
func (s *Service) Redeem(ctx context.Context, code, redeemerID string) (Pin, ledger.Entry, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return Pin{}, ledger.Entry{}, ErrInvalidCode
	}
	if _, err := s.accounts.FindByID(ctx, redeemerID); err != nil {
		return Pin{}, ledger.Entry{}, err
	}

	pin, err := s.store.MarkRedeemed(ctx, code, redeemerID, time.Now().UTC())
	if err != nil {
		return Pin{}, ledger.Entry{}, err
	}

	entry, err := s.ledger.Transfer(ctx, ledger.TransferInput{
		AccountID:  redeemerID,
		WalletType: ledger.WalletShopping,
		Direction:  ledger.Credit,
		Amount:     pin.FaceValue,
		Category:   ledger.CategoryEPinRedeem,
		Reference:  "epin:" + pin.Code,
	})
	if err != nil {
		// The pin is already consumed; this needs manual reconciliation.
		if s.logger != nil {
			s.logger.Error("redeemed pin credit failed",
				slog.String("code", pin.Code),
				slog.String("redeemer_id", redeemerID),
				slog.Any("error", err),
			)
		}
		return pin, ledger.Entry{}, fmt.Errorf("credit redeemed pin: %w", err)
	}

	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindEPinRedeem,
			Destination: redeemerID,
			Body:        fmt.Sprintf("E-Pin %s redeemed for %d", pin.Code, pin.FaceValue),
		})
	}

	return pin, entry, nil
}

// ExpireDue applies the time-based UNUSED to EXPIRED transition. The caller
// owns scheduling.
func (s *Service) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	return s.store.ExpireDue(ctx, now)
}

// PendingRequests lists requests awaiting a decision.
func (s *Service) PendingRequests(ctx context.Context) ([]Request, error) {
	return s.store.RequestsByStatus(ctx, RequestPending)
}

// Pins lists the pins allocated to a holder.
func (s *Service) Pins(ctx context.Context, holderID string) ([]Pin, error) {
	return s.store.PinsByHolder(ctx, holderID)
}

func (s *Service) mintOne(ctx context.Context, request Request, now time.Time) (Pin, error) {
	var lastErr error
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := s.generateCode()
		if err != nil {
			return Pin{}, err
		}
		pin := Pin{
			Code:        code,
			FaceValue:   request.FaceValue,
			PackageName: request.PackageName,
			Status:      StatusUnused,
			GeneratedBy: request.ProcessedBy,
			HolderID:    request.RequesterID,
			CreatedAt:   now,
			ExpiresAt:   now.Add(s.validity),
		}
		if err := s.store.InsertPin(ctx, pin); err != nil {
			if errors.Is(err, ErrCodeTaken) {
				lastErr = err
				continue
			}
			return Pin{}, err
		}
		return pin, nil
	}
	return Pin{}, fmt.Errorf("generate unique code after %d attempts: %w", maxCodeAttempts, lastErr)
}

func (s *Service) generateCode() (string, error) {
	buf := make([]byte, s.codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate e-pin code: %w", err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}

func (s *Service) requireAdmin(ctx context.Context, adminID string) error {
	account, err := s.accounts.FindByID(ctx, adminID)
	if err != nil {
		return err
	}
	if account.Role != identity.RoleAdmin {
		return errors.New("admin role required")
	}
	return nil
}
