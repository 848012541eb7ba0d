package ledger

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrInsufficientBalance occurs when a debit would take a wallet below zero.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrUnknownCategory indicates an entry category outside the closed set.
	ErrUnknownCategory = errors.New("unknown ledger category")

	// ErrWalletNotFound indicates no wallet exists for the account and type.
	ErrWalletNotFound = errors.New("wallet not found")
)

// WalletType identifies which of a member's wallets an operation targets.
type WalletType string

const (
	WalletEarnings WalletType = "earnings"
	WalletShopping WalletType = "shopping"
)

// ParseWalletType normalizes raw wallet type input.
func ParseWalletType(raw string) (WalletType, error) {
	switch WalletType(raw) {
	case WalletEarnings, WalletShopping:
		return WalletType(raw), nil
	}
	return "", errors.New("wallet type must be earnings or shopping")
}

// Direction of a ledger entry.
type Direction string

const (
	Credit Direction = "credit"
	Debit  Direction = "debit"
)

// Category classifies a ledger entry. The set is closed; transfers with an
// unlisted category are rejected so reporting aggregations stay trustworthy.
type Category string

const (
	CategoryDirectIncome    Category = "direct_income"
	CategoryMatchingIncome  Category = "matching_income"
	CategoryRankBonus       Category = "rank_bonus"
	CategoryEPinRedeem      Category = "epin_redeem"
	CategoryPackagePurchase Category = "package_purchase"
	CategoryWithdrawal      Category = "withdrawal"
)

// ValidCategory reports whether c belongs to the closed category set.
func ValidCategory(c Category) bool {
	switch c {
	case CategoryDirectIncome, CategoryMatchingIncome, CategoryRankBonus,
		CategoryEPinRedeem, CategoryPackagePurchase, CategoryWithdrawal:
		return true
	}
	return false
}

// earningCategory reports whether credits of this category count toward
// lifetime earnings.
func earningCategory(c Category) bool {
	switch c {
	case CategoryDirectIncome, CategoryMatchingIncome, CategoryRankBonus, CategoryEPinRedeem:
		return true
	}
	return false
}

// Wallet holds the mutable balance for one account and wallet type.
type Wallet struct {
	AccountID         string
	Type              WalletType
	Balance           int64
	LifetimeEarned    int64
	LifetimeWithdrawn int64
	CreatedAt         time.Time
}

// Entry is one immutable ledger record. Corrections are new entries, never edits.
type Entry struct {
	ID            string
	AccountID     string
	WalletType    WalletType
	Direction     Direction
	Amount        int64
	BalanceBefore int64
	BalanceAfter  int64
	Category      Category
	Reference     string
	CreatedAt     time.Time
}

// TransferInput captures one balance movement request.
type TransferInput struct {
	AccountID  string
	WalletType WalletType
	Direction  Direction
	Amount     int64
	Category   Category
	Reference  string
}

// Store is the contract implemented by ledger backends. Every balance change
// and its matching entry are applied as a single atomic unit, serialized per
// (account, wallet type).
type Store interface {
	Transfer(ctx context.Context, input TransferInput) (Entry, error)
	Wallet(ctx context.Context, accountID string, walletType WalletType) (Wallet, error)
	Balance(ctx context.Context, accountID string, walletType WalletType) (int64, error)
	Entries(ctx context.Context, accountID string) ([]Entry, error)
	// EarningsTotal sums income credits for the account across its entries.
	EarningsTotal(ctx context.Context, accountID string) (int64, error)
	// SumByCategory totals entry amounts for an account and category.
	SumByCategory(ctx context.Context, accountID string, category Category) (int64, error)
}

func validateTransfer(input TransferInput) error {
	if input.AccountID == "" {
		return errors.New("account id is required")
	}
	if input.Amount <= 0 {
		return errors.New("amount must be positive")
	}
	if _, err := ParseWalletType(string(input.WalletType)); err != nil {
		return err
	}
	if input.Direction != Credit && input.Direction != Debit {
		return errors.New("direction must be credit or debit")
	}
	if !ValidCategory(input.Category) {
		return ErrUnknownCategory
	}
	return nil
}
