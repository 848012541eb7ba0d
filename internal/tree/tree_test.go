package tree

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/upline-net/upline_net/internal/identity"
	"github.com/upline-net/upline_net/internal/ledger"
	"github.com/upline-net/upline_net/internal/network"
	"github.com/upline-net/upline_net/internal/rank"
)

type fixture struct {
	network  network.Store
	ledger   ledger.Store
	accounts identity.Repository
	service  *Service
}

func newFixture(t *testing.T, cache *Cache, maxDepth int) *fixture {
	t.Helper()
	f := &fixture{
		network:  network.NewInMemory(),
		ledger:   ledger.NewInMemory(),
		accounts: identity.NewMemoryRepository(),
	}
	ranks := rank.NewEvaluator(f.ledger, f.network, nil)
	f.service = NewService(f.network, f.ledger, f.accounts, ranks, cache, maxDepth)
	return f
}

func (f *fixture) member(t *testing.T, id, parent string, leg network.Leg) {
	t.Helper()
	ctx := context.Background()
	account := identity.Account{ID: id, Username: "u-" + id, DisplayName: "Member " + id, Role: identity.RoleMember, Status: identity.StatusActive}
	if err := f.accounts.Create(ctx, account); err != nil {
		t.Fatalf("create account %s: %v", id, err)
	}
	if parent == "" {
		if _, err := f.network.CreateRoot(ctx, id); err != nil {
			t.Fatalf("create root: %v", err)
		}
		return
	}
	if _, err := f.network.Attach(ctx, id, parent, parent, leg, false); err != nil {
		t.Fatalf("attach %s: %v", id, err)
	}
}

func TestBuildPlacementMarksOpenSlots(t *testing.T) {
	f := newFixture(t, nil, 4)
	f.member(t, "root", "", "")
	f.member(t, "a", "root", network.LegLeft)

	view, err := f.service.Build(context.Background(), "root", 1, ModePlacement)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(view.Children) != 2 {
		t.Fatalf("placement views always carry both legs, got %d", len(view.Children))
	}
	left, right := view.Children[0], view.Children[1]
	if left.AccountID != "a" || left.OpenSlot {
		t.Fatalf("unexpected left child: %+v", left)
	}
	if !right.OpenSlot || right.Leg != "right" || right.AccountID != "" {
		t.Fatalf("expected open right slot, got %+v", right)
	}
	if view.Username != "u-root" || view.DisplayName != "Member root" {
		t.Fatalf("profile fields missing: %+v", view)
	}
}

func TestBuildClampsDepth(t *testing.T) {
	f := newFixture(t, nil, 2)
	f.member(t, "root", "", "")
	f.member(t, "a", "root", network.LegLeft)
	f.member(t, "b", "a", network.LegLeft)
	f.member(t, "c", "b", network.LegLeft)

	// Requested depth 10 exceeds the service bound of 2.
	view, err := f.service.Build(context.Background(), "root", 10, ModePlacement)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	a := view.Children[0]
	if a.AccountID != "a" {
		t.Fatalf("unexpected level 1: %+v", a)
	}
	b := a.Children[0]
	if b.AccountID != "b" {
		t.Fatalf("unexpected level 2: %+v", b)
	}
	if len(b.Children) != 0 {
		t.Fatalf("depth bound exceeded: %+v", b.Children)
	}
	// The subtree below the cut is flagged without being expanded.
	if !b.HasDescendants {
		t.Fatalf("truncated node must report descendants")
	}
}

func TestBuildSponsorModeFansOut(t *testing.T) {
	f := newFixture(t, nil, 4)
	f.member(t, "root", "", "")
	// Three members sponsored by root, placed in a chain because the binary
	// tree only has two direct legs.
	f.member(t, "a", "root", network.LegLeft)
	f.member(t, "b", "root", network.LegRight)
	ctx := context.Background()
	if err := f.accounts.Create(ctx, identity.Account{ID: "c", Username: "u-c", Role: identity.RoleMember, Status: identity.StatusActive}); err != nil {
		t.Fatalf("create c: %v", err)
	}
	if _, err := f.network.Attach(ctx, "c", "root", "a", network.LegLeft, false); err != nil {
		t.Fatalf("attach c: %v", err)
	}

	view, err := f.service.Build(ctx, "root", 1, ModeSponsor)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(view.Children) != 3 {
		t.Fatalf("expected 3 direct referrals, got %d", len(view.Children))
	}
	for _, child := range view.Children {
		if child.OpenSlot {
			t.Fatalf("sponsor views have no slots: %+v", child)
		}
	}
}

func TestBuildUnknownRoot(t *testing.T) {
	f := newFixture(t, nil, 4)
	if _, err := f.service.Build(context.Background(), "ghost", 2, ModePlacement); !errors.Is(err, network.ErrNodeNotFound) {
		t.Fatalf("expected node not found, got %v", err)
	}
}

func TestBuildIncludesEarningsAndRank(t *testing.T) {
	f := newFixture(t, nil, 4)
	f.member(t, "root", "", "")
	f.ledger.Transfer(context.Background(), ledger.TransferInput{
		AccountID:  "root",
		WalletType: ledger.WalletEarnings,
		Direction:  ledger.Credit,
		Amount:     750,
		Category:   ledger.CategoryDirectIncome,
	})

	view, err := f.service.Build(context.Background(), "root", 1, ModePlacement)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if view.Earnings != 750 {
		t.Fatalf("earnings: %d", view.Earnings)
	}
	if view.Rank != "" {
		t.Fatalf("no rank thresholds met, got %q", view.Rank)
	}
}

func TestCacheRoundTripAndMiss(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewCache(client, time.Minute, nil)

	f := newFixture(t, cache, 4)
	f.member(t, "root", "", "")
	f.member(t, "a", "root", network.LegLeft)
	ctx := context.Background()

	first, err := f.service.Build(ctx, "root", 2, ModePlacement)
	if err != nil {
		t.Fatalf("first build: %v", err)
	}

	// A placement after the cached build stays invisible until the TTL runs
	// out, then the next build sees it.
	f.member(t, "b", "root", network.LegRight)

	cached, err := f.service.Build(ctx, "root", 2, ModePlacement)
	if err != nil {
		t.Fatalf("cached build: %v", err)
	}
	if len(cached.Children) != len(first.Children) || !cached.Children[1].OpenSlot {
		t.Fatalf("expected the cached view, got %+v", cached.Children)
	}

	mr.FastForward(2 * time.Minute)

	fresh, err := f.service.Build(ctx, "root", 2, ModePlacement)
	if err != nil {
		t.Fatalf("fresh build: %v", err)
	}
	if fresh.Children[1].OpenSlot || fresh.Children[1].AccountID != "b" {
		t.Fatalf("expected fresh view after expiry, got %+v", fresh.Children[1])
	}
}

func TestParseMode(t *testing.T) {
	if mode, err := ParseMode(""); err != nil || mode != ModePlacement {
		t.Fatalf("empty mode should default to placement: %v %v", mode, err)
	}
	if _, err := ParseMode("upline"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}
