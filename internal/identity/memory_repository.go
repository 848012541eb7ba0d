package identity

import (
	"context"
	"errors"
	"sync"
)

type memoryRepository struct {
	mu       sync.RWMutex
	accounts map[string]Account // keyed by id
}

// NewMemoryRepository builds an in-memory account store for testing and dev mode.
func NewMemoryRepository() Repository {
	return &memoryRepository{accounts: make(map[string]Account)}
}

func (r *memoryRepository) Create(_ context.Context, account Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.accounts {
		if existing.Username == account.Username {
			return errors.New("username taken")
		}
	}
	r.accounts[account.ID] = account
	return nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	account, ok := r.accounts[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	return account, nil
}

func (r *memoryRepository) FindByUsername(_ context.Context, username string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, account := range r.accounts {
		if account.Username == username {
			return account, nil
		}
	}
	return Account{}, ErrNotFound
}

func (r *memoryRepository) FindByCode(_ context.Context, code string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	// Username, then referral code, then id, so the precedence matches the
	// Postgres repository when one account's code is another's username.
	for _, account := range r.accounts {
		if account.Username == code {
			return account, nil
		}
	}
	for _, account := range r.accounts {
		if account.ReferralCode == code {
			return account, nil
		}
	}
	if account, ok := r.accounts[code]; ok {
		return account, nil
	}
	return Account{}, ErrNotFound
}
