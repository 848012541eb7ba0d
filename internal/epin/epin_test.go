package epin

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/upline-net/upline_net/internal/identity"
	"github.com/upline-net/upline_net/internal/ledger"
	"github.com/upline-net/upline_net/internal/logging"
)

func newTestService(t *testing.T) (*Service, ledger.Store) {
	t.Helper()
	accounts := identity.NewMemoryRepository()
	ctx := context.Background()
	for _, account := range []identity.Account{
		{ID: "admin", Username: "admin", Role: identity.RoleAdmin, Status: identity.StatusActive},
		{ID: "holder", Username: "holder", Role: identity.RoleMember, Status: identity.StatusActive},
		{ID: "member", Username: "member", Role: identity.RoleMember, Status: identity.StatusActive},
	} {
		if err := accounts.Create(ctx, account); err != nil {
			t.Fatalf("seed account %s: %v", account.ID, err)
		}
	}
	ledgerStore := ledger.NewInMemory()
	svc := NewService(NewInMemory(), ledgerStore, accounts, nil, logging.Discard(), 12, 90*24*time.Hour)
	return svc, ledgerStore
}

func approvedPins(t *testing.T, svc *Service, quantity int, faceValue int64) []Pin {
	t.Helper()
	ctx := context.Background()
	request, err := svc.SubmitRequest(ctx, RequestInput{
		RequesterID: "holder",
		Quantity:    quantity,
		FaceValue:   faceValue,
		PackageName: "starter",
	})
	if err != nil {
		t.Fatalf("submit request: %v", err)
	}
	_, pins, err := svc.Approve(ctx, request.ID, "admin")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	return pins
}

func TestApproveMintsExactQuantityOfUniquePins(t *testing.T) {
	svc, _ := newTestService(t)
	pins := approvedPins(t, svc, 5, 200)

	if len(pins) != 5 {
		t.Fatalf("expected 5 pins, got %d", len(pins))
	}
	seen := make(map[string]bool)
	for _, pin := range pins {
		if len(pin.Code) != 12 {
			t.Fatalf("unexpected code length: %q", pin.Code)
		}
		if seen[pin.Code] {
			t.Fatalf("duplicate code minted: %q", pin.Code)
		}
		seen[pin.Code] = true
		if pin.Status != StatusUnused || pin.HolderID != "holder" || pin.FaceValue != 200 {
			t.Fatalf("unexpected pin: %+v", pin)
		}
	}

	held, err := svc.Pins(context.Background(), "holder")
	if err != nil {
		t.Fatalf("pins by holder: %v", err)
	}
	if len(held) != 5 {
		t.Fatalf("expected 5 allocated pins, got %d", len(held))
	}
}

func TestApproveWinsExactlyOnce(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	request, err := svc.SubmitRequest(ctx, RequestInput{RequesterID: "holder", Quantity: 2, FaceValue: 100})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, _, err := svc.Approve(ctx, request.ID, "admin"); err != nil {
		t.Fatalf("first approve: %v", err)
	}
	if _, _, err := svc.Approve(ctx, request.ID, "admin"); !errors.Is(err, ErrAlreadyProcessed) {
		t.Fatalf("expected already processed, got %v", err)
	}
	if _, err := svc.Reject(ctx, request.ID, "admin"); !errors.Is(err, ErrAlreadyProcessed) {
		t.Fatalf("expected already processed on reject, got %v", err)
	}
}

func TestApproveRequiresAdminRole(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	request, err := svc.SubmitRequest(ctx, RequestInput{RequesterID: "holder", Quantity: 1, FaceValue: 100})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, _, err := svc.Approve(ctx, request.ID, "member"); err == nil {
		t.Fatalf("expected role error for non-admin approver")
	}

	pending, err := svc.PendingRequests(ctx)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("request must remain pending, got %d pending", len(pending))
	}
}

func TestRejectMintsNothing(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	request, err := svc.SubmitRequest(ctx, RequestInput{RequesterID: "holder", Quantity: 3, FaceValue: 100})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	rejected, err := svc.Reject(ctx, request.ID, "admin")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != RequestRejected {
		t.Fatalf("unexpected status: %s", rejected.Status)
	}
	held, _ := svc.Pins(ctx, "holder")
	if len(held) != 0 {
		t.Fatalf("rejected request must mint nothing, got %d pins", len(held))
	}
}

func TestRedeemCreditsShoppingWalletOnce(t *testing.T) {
	svc, ledgerStore := newTestService(t)
	ctx := context.Background()
	pin := approvedPins(t, svc, 1, 200)[0]

	redeemed, entry, err := svc.Redeem(ctx, pin.Code, "holder")
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if redeemed.Status != StatusUsed || redeemed.RedeemedBy != "holder" {
		t.Fatalf("unexpected pin after redeem: %+v", redeemed)
	}
	if entry.Category != ledger.CategoryEPinRedeem || entry.Amount != 200 {
		t.Fatalf("unexpected entry: %+v", entry)
	}

	balance, _ := ledgerStore.Balance(ctx, "holder", ledger.WalletShopping)
	if balance != 200 {
		t.Fatalf("expected shopping balance 200, got %d", balance)
	}

	// Second redemption attempt must fail without moving money.
	if _, _, err := svc.Redeem(ctx, pin.Code, "holder"); !errors.Is(err, ErrAlreadyUsed) {
		t.Fatalf("expected already used, got %v", err)
	}
	balance, _ = ledgerStore.Balance(ctx, "holder", ledger.WalletShopping)
	if balance != 200 {
		t.Fatalf("double redeem changed balance: %d", balance)
	}
}

func TestRedeemNormalizesCode(t *testing.T) {
	svc, _ := newTestService(t)
	pin := approvedPins(t, svc, 1, 100)[0]

	raw := "  " + pin.Code + " "
	if _, _, err := svc.Redeem(context.Background(), raw, "holder"); err != nil {
		t.Fatalf("redeem with surrounding whitespace: %v", err)
	}
}

func TestRedeemByNonHolderRejected(t *testing.T) {
	svc, ledgerStore := newTestService(t)
	ctx := context.Background()
	pin := approvedPins(t, svc, 1, 100)[0]

	if _, _, err := svc.Redeem(ctx, pin.Code, "member"); !errors.Is(err, ErrNotAllocated) {
		t.Fatalf("expected not allocated, got %v", err)
	}
	balance, _ := ledgerStore.Balance(ctx, "member", ledger.WalletShopping)
	if balance != 0 {
		t.Fatalf("rejected redemption moved money: %d", balance)
	}
}

func TestRedeemUnknownCode(t *testing.T) {
	svc, _ := newTestService(t)
	if _, _, err := svc.Redeem(context.Background(), "NOSUCHCODE99", "member"); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected invalid code, got %v", err)
	}
}

func TestExpireDueBlocksRedemption(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	pin := approvedPins(t, svc, 1, 100)[0]

	expired, err := svc.ExpireDue(ctx, time.Now().UTC().Add(120*24*time.Hour))
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if expired != 1 {
		t.Fatalf("expected 1 expired pin, got %d", expired)
	}
	if _, _, err := svc.Redeem(ctx, pin.Code, "holder"); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected expired, got %v", err)
	}
}
