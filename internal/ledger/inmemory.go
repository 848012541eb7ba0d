package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type walletKey struct {
	accountID  string
	walletType WalletType
}

type inMemoryStore struct {
	mu      sync.RWMutex
	wallets map[walletKey]Wallet
	entries []Entry
}

// NewInMemory creates a concurrency-safe in-memory ledger useful for unit
// tests and dev mode.
func NewInMemory() Store {
	return &inMemoryStore{wallets: make(map[walletKey]Wallet)}
}

func (s *inMemoryStore) Transfer(_ context.Context, input TransferInput) (Entry, error) {
	if err := validateTransfer(input); err != nil {
		return Entry{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := walletKey{accountID: input.AccountID, walletType: input.WalletType}
	w, ok := s.wallets[key]
	if !ok {
		if input.Direction == Debit {
			return Entry{}, ErrInsufficientBalance
		}
		// Wallets are created lazily on first credit.
		w = Wallet{AccountID: input.AccountID, Type: input.WalletType, CreatedAt: time.Now().UTC()}
	}

	before := w.Balance
	switch input.Direction {
	case Credit:
		w.Balance += input.Amount
		if earningCategory(input.Category) {
			w.LifetimeEarned += input.Amount
		}
	case Debit:
		if w.Balance < input.Amount {
			return Entry{}, ErrInsufficientBalance
		}
		w.Balance -= input.Amount
		if input.Category == CategoryWithdrawal {
			w.LifetimeWithdrawn += input.Amount
		}
	}

	entry := Entry{
		ID:            uuid.New().String(),
		AccountID:     input.AccountID,
		WalletType:    input.WalletType,
		Direction:     input.Direction,
		Amount:        input.Amount,
		BalanceBefore: before,
		BalanceAfter:  w.Balance,
		Category:      input.Category,
		Reference:     input.Reference,
		CreatedAt:     time.Now().UTC(),
	}

	s.wallets[key] = w
	s.entries = append(s.entries, entry)
	return entry, nil
}

func (s *inMemoryStore) Wallet(_ context.Context, accountID string, walletType WalletType) (Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.wallets[walletKey{accountID: accountID, walletType: walletType}]
	if !ok {
		return Wallet{}, ErrWalletNotFound
	}
	return w, nil
}

func (s *inMemoryStore) Balance(_ context.Context, accountID string, walletType WalletType) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.wallets[walletKey{accountID: accountID, walletType: walletType}]
	if !ok {
		return 0, nil
	}
	return w.Balance, nil
}

func (s *inMemoryStore) Entries(_ context.Context, accountID string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Entry
	for _, e := range s.entries {
		if e.AccountID == accountID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *inMemoryStore) EarningsTotal(_ context.Context, accountID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total int64
	for _, e := range s.entries {
		if e.AccountID == accountID && e.Direction == Credit && earningCategory(e.Category) {
			total += e.Amount
		}
	}
	return total, nil
}

func (s *inMemoryStore) SumByCategory(_ context.Context, accountID string, category Category) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total int64
	for _, e := range s.entries {
		if e.AccountID == accountID && e.Category == category {
			total += e.Amount
		}
	}
	return total, nil
}
