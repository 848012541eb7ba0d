package purchase

import (
	"context"
	"errors"
	"testing"

	"github.com/upline-net/upline_net/internal/commission"
	"github.com/upline-net/upline_net/internal/ledger"
	"github.com/upline-net/upline_net/internal/logging"
	"github.com/upline-net/upline_net/internal/network"
	"github.com/upline-net/upline_net/internal/rank"
)

func newTestService(t *testing.T) (*Service, ledger.Store, network.Store) {
	t.Helper()
	ledgerStore := ledger.NewInMemory()
	networkStore := network.NewInMemory()
	marks := commission.NewMemoryMarkStore()
	ranks := rank.NewEvaluator(ledgerStore, networkStore, nil)
	engine := commission.NewEngine(ledgerStore, networkStore, marks, ranks, nil, logging.Discard(), commission.Rates{
		DirectBps:     1_000,
		MatchingBonus: 50,
		PairSize:      1,
	})
	return NewService(ledgerStore, engine), ledgerStore, networkStore
}

func TestActivateDebitsAndPaysSponsor(t *testing.T) {
	svc, ledgerStore, networkStore := newTestService(t)
	ctx := context.Background()
	networkStore.CreateRoot(ctx, "sponsor")
	networkStore.Attach(ctx, "buyer", "sponsor", "sponsor", network.LegLeft, false)
	ledger.SeedBalance(ledgerStore, "buyer", ledger.WalletShopping, 1_000)

	outcome, err := svc.Activate(ctx, ActivateInput{AccountID: "buyer", PackageValue: 1_000, PackageName: "starter"})
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if outcome.Purchase.Category != ledger.CategoryPackagePurchase || outcome.Purchase.Amount != 1_000 {
		t.Fatalf("unexpected purchase entry: %+v", outcome.Purchase)
	}
	if len(outcome.CommissionFailures) != 0 {
		t.Fatalf("unexpected failures: %v", outcome.CommissionFailures)
	}

	shopping, _ := ledgerStore.Balance(ctx, "buyer", ledger.WalletShopping)
	if shopping != 0 {
		t.Fatalf("buyer shopping balance: %d", shopping)
	}
	sponsorEarnings, _ := ledgerStore.Balance(ctx, "sponsor", ledger.WalletEarnings)
	if sponsorEarnings != 100 {
		t.Fatalf("sponsor direct income: %d", sponsorEarnings)
	}
}

func TestActivateInsufficientBalance(t *testing.T) {
	svc, ledgerStore, networkStore := newTestService(t)
	ctx := context.Background()
	networkStore.CreateRoot(ctx, "sponsor")
	networkStore.Attach(ctx, "buyer", "sponsor", "sponsor", network.LegLeft, false)
	ledger.SeedBalance(ledgerStore, "buyer", ledger.WalletShopping, 400)

	if _, err := svc.Activate(ctx, ActivateInput{AccountID: "buyer", PackageValue: 500}); !errors.Is(err, ledger.ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}

	// Nothing moved anywhere.
	shopping, _ := ledgerStore.Balance(ctx, "buyer", ledger.WalletShopping)
	if shopping != 400 {
		t.Fatalf("failed activation changed balance: %d", shopping)
	}
	sponsorEarnings, _ := ledgerStore.Balance(ctx, "sponsor", ledger.WalletEarnings)
	if sponsorEarnings != 0 {
		t.Fatalf("failed activation paid commission: %d", sponsorEarnings)
	}
}

func TestActivateUnplacedMemberKeepsPurchase(t *testing.T) {
	svc, ledgerStore, _ := newTestService(t)
	ctx := context.Background()
	ledger.SeedBalance(ledgerStore, "loner", ledger.WalletShopping, 500)

	outcome, err := svc.Activate(ctx, ActivateInput{AccountID: "loner", PackageValue: 500})
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if len(outcome.CommissionFailures) != 1 {
		t.Fatalf("expected the fan-out failure to be reported, got %v", outcome.CommissionFailures)
	}

	// The purchase debit stands even though no commissions ran.
	shopping, _ := ledgerStore.Balance(ctx, "loner", ledger.WalletShopping)
	if shopping != 0 {
		t.Fatalf("purchase rolled back: %d", shopping)
	}
}

func TestActivateRejectsNonPositiveValue(t *testing.T) {
	svc, _, _ := newTestService(t)
	if _, err := svc.Activate(context.Background(), ActivateInput{AccountID: "buyer", PackageValue: 0}); err == nil {
		t.Fatalf("expected error for zero package value")
	}
}
