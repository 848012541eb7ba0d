package identity

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	account, err := svc.Register(ctx, Credentials{Username: " alice ", Password: "secret123", DisplayName: "Alice"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if account.Username != "alice" {
		t.Fatalf("username not trimmed: %q", account.Username)
	}
	if len(account.ReferralCode) != referralCodeLength {
		t.Fatalf("unexpected referral code: %q", account.ReferralCode)
	}
	if account.Role != RoleMember || account.Status != StatusActive {
		t.Fatalf("unexpected defaults: %+v", account)
	}
	if string(account.PasswordHash) == "secret123" {
		t.Fatalf("password stored in the clear")
	}

	got, err := svc.Authenticate(ctx, Credentials{Username: "alice", Password: "secret123"})
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.ID != account.ID {
		t.Fatalf("authenticated wrong account: %s", got.ID)
	}

	if _, err := svc.Authenticate(ctx, Credentials{Username: "alice", Password: "wrong"}); err == nil {
		t.Fatalf("expected failure on wrong password")
	}
	if _, err := svc.Authenticate(ctx, Credentials{Username: "nobody", Password: "secret123"}); err == nil {
		t.Fatalf("expected failure on unknown username")
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	if _, err := svc.Register(ctx, Credentials{Username: "", Password: "secret123"}); err == nil {
		t.Fatalf("expected error for empty username")
	}
	if _, err := svc.Register(ctx, Credentials{Username: "bob", Password: "short"}); err == nil {
		t.Fatalf("expected error for short password")
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	if _, err := svc.Register(ctx, Credentials{Username: "carol", Password: "secret123"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Register(ctx, Credentials{Username: "carol", Password: "secret123"}); err == nil {
		t.Fatalf("expected error for duplicate username")
	}
}

func TestFindByReferralCode(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)
	ctx := context.Background()

	account, err := svc.Register(ctx, Credentials{Username: "dave", Password: "secret123"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	found, err := repo.FindByCode(ctx, account.ReferralCode)
	if err != nil {
		t.Fatalf("find by code: %v", err)
	}
	if found.ID != account.ID {
		t.Fatalf("wrong account: %s", found.ID)
	}

	if _, err := repo.FindByCode(ctx, "NOPE1234"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestFindByCodePrefersUsernameOverReferralCode(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	// One account's username collides with another account's referral code.
	owner := Account{ID: "id-owner", Username: "alpha", ReferralCode: "OWNERCOD", Status: StatusActive}
	other := Account{ID: "id-other", Username: "bravo", ReferralCode: "alpha", Status: StatusActive}
	for _, account := range []Account{owner, other} {
		if err := repo.Create(ctx, account); err != nil {
			t.Fatalf("seed %s: %v", account.ID, err)
		}
	}

	found, err := repo.FindByCode(ctx, "alpha")
	if err != nil {
		t.Fatalf("find by code: %v", err)
	}
	if found.ID != owner.ID {
		t.Fatalf("username must win over referral code, got %s", found.ID)
	}

	found, err = repo.FindByCode(ctx, "OWNERCOD")
	if err != nil || found.ID != owner.ID {
		t.Fatalf("referral code lookup: %v %v", found.ID, err)
	}
	found, err = repo.FindByCode(ctx, "id-other")
	if err != nil || found.ID != other.ID {
		t.Fatalf("id lookup: %v %v", found.ID, err)
	}
}

func TestAuthenticateSuspendedAccount(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := repo.Create(ctx, Account{
		ID:           "erin-id",
		Username:     "erin",
		PasswordHash: hash,
		Role:         RoleMember,
		Status:       StatusSuspended,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := NewService(repo).Authenticate(ctx, Credentials{Username: "erin", Password: "secret123"}); err == nil {
		t.Fatalf("expected suspended account to fail authentication")
	}
}
