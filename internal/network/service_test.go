package network

import (
	"context"
	"errors"
	"testing"

	"github.com/upline-net/upline_net/internal/identity"
	"github.com/upline-net/upline_net/internal/logging"
)

func newPlaceService(t *testing.T, strict bool) (*Service, identity.Repository, Store) {
	t.Helper()
	accounts := identity.NewMemoryRepository()
	store := NewInMemory()
	svc := NewService(store, accounts, nil, logging.Discard(), strict)
	return svc, accounts, store
}

func seedSponsor(t *testing.T, accounts identity.Repository, store Store) identity.Account {
	t.Helper()
	ctx := context.Background()
	sponsor := identity.Account{
		ID:           "sponsor-id",
		Username:     "sponsor",
		ReferralCode: "SPONSOR1",
		Role:         identity.RoleMember,
		Status:       identity.StatusActive,
	}
	if err := accounts.Create(ctx, sponsor); err != nil {
		t.Fatalf("seed sponsor: %v", err)
	}
	if _, err := store.CreateRoot(ctx, sponsor.ID); err != nil {
		t.Fatalf("root: %v", err)
	}
	return sponsor
}

func TestPlaceResolvesSponsorCode(t *testing.T) {
	svc, accounts, store := newPlaceService(t, false)
	sponsor := seedSponsor(t, accounts, store)

	result, err := svc.Place(context.Background(), PlaceInput{
		AccountID:   "member-id",
		SponsorCode: sponsor.ReferralCode,
		Leg:         "L",
	})
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if result.Node.SponsorID != sponsor.ID || result.Node.ParentID != sponsor.ID {
		t.Fatalf("unexpected node: %+v", result.Node)
	}
	if result.Node.Leg != LegLeft {
		t.Fatalf("expected left leg, got %s", result.Node.Leg)
	}
}

func TestPlaceUnknownSponsorCode(t *testing.T) {
	svc, _, _ := newPlaceService(t, false)
	_, err := svc.Place(context.Background(), PlaceInput{AccountID: "m", SponsorCode: "NOPE", Leg: "left"})
	if !errors.Is(err, ErrSponsorNotFound) {
		t.Fatalf("expected sponsor not found, got %v", err)
	}
}

func TestPlaceSponsorWithoutNode(t *testing.T) {
	svc, accounts, _ := newPlaceService(t, false)
	ctx := context.Background()
	// Registered account, but never placed in the tree.
	if err := accounts.Create(ctx, identity.Account{ID: "s", Username: "s", ReferralCode: "CODE1234", Status: identity.StatusActive}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	_, err := svc.Place(ctx, PlaceInput{AccountID: "m", SponsorCode: "CODE1234", Leg: "left"})
	if !errors.Is(err, ErrSponsorNotFound) {
		t.Fatalf("expected sponsor not found, got %v", err)
	}
}

func TestPlaceInvalidLeg(t *testing.T) {
	svc, accounts, store := newPlaceService(t, false)
	sponsor := seedSponsor(t, accounts, store)

	if _, err := svc.Place(context.Background(), PlaceInput{AccountID: "m", SponsorCode: sponsor.ReferralCode, Leg: "center"}); err == nil {
		t.Fatalf("expected error for invalid leg")
	}
}

func TestPlaceStrictModeRejectsOccupiedLeg(t *testing.T) {
	svc, accounts, store := newPlaceService(t, true)
	sponsor := seedSponsor(t, accounts, store)
	ctx := context.Background()

	if _, err := svc.Place(ctx, PlaceInput{AccountID: "m1", SponsorCode: sponsor.ReferralCode, Leg: "left"}); err != nil {
		t.Fatalf("first place: %v", err)
	}
	if _, err := svc.Place(ctx, PlaceInput{AccountID: "m2", SponsorCode: sponsor.ReferralCode, Leg: "left"}); !errors.Is(err, ErrLegOccupied) {
		t.Fatalf("expected leg occupied, got %v", err)
	}
}
