package ledger

import "time"

// SeedBalance is a test helper that seeds a wallet balance when using the
// in-memory store.
func SeedBalance(s Store, accountID string, walletType WalletType, amount int64) {
	if mem, ok := s.(*inMemoryStore); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		key := walletKey{accountID: accountID, walletType: walletType}
		w, exists := mem.wallets[key]
		if !exists {
			w = Wallet{AccountID: accountID, Type: walletType, CreatedAt: time.Now().UTC()}
		}
		w.Balance = amount
		mem.wallets[key] = w
	}
}
