package identity

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const referralCodeLength = 8

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Service manages account lifecycle.
type Service struct {
	repo Repository
}

// NewService creates a new identity service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Register creates a new member account with a hashed password and a
// generated referral code.
func (s *Service) Register(ctx context.Context, creds Credentials) (Account, error) {
	username := strings.TrimSpace(creds.Username)
	if username == "" {
		return Account{}, errors.New("username is required")
	}
	if len(creds.Password) < 6 {
		return Account{}, errors.New("password must be at least 6 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcrypt.DefaultCost)
	if err != nil {
		return Account{}, err
	}

	code, err := randomCode(referralCodeLength)
	if err != nil {
		return Account{}, err
	}

	account := Account{
		ID:           uuid.New().String(),
		Username:     username,
		ReferralCode: code,
		DisplayName:  strings.TrimSpace(creds.DisplayName),
		PasswordHash: hash,
		Role:         RoleMember,
		Status:       StatusActive,
		CreatedAt:    time.Now().UTC(),
	}
	if account.DisplayName == "" {
		account.DisplayName = username
	}

	if err := s.repo.Create(ctx, account); err != nil {
		return Account{}, err
	}

	return account, nil
}

// Authenticate verifies username/password credentials.
func (s *Service) Authenticate(ctx context.Context, creds Credentials) (Account, error) {
	account, err := s.repo.FindByUsername(ctx, strings.TrimSpace(creds.Username))
	if err != nil {
		return Account{}, errors.New("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword(account.PasswordHash, []byte(creds.Password)); err != nil {
		return Account{}, errors.New("invalid credentials")
	}
	if account.Status != StatusActive {
		return Account{}, errors.New("account is not active")
	}
	return account, nil
}

// Role returns the role held by the account.
func (s *Service) Role(ctx context.Context, accountID string) (string, error) {
	account, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		return "", err
	}
	return account.Role, nil
}

func randomCode(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate referral code: %w", err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}
