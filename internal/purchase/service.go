package purchase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/upline-net/upline_net/internal/commission"
	"github.com/upline-net/upline_net/internal/ledger"
)

// Service activates membership packages: the member's shopping wallet is
// debited, then the commission engine fans earnings out to the uplines.
type Service struct {
	ledger      ledger.Store
	commissions *commission.Engine
}

// NewService builds a package activation service.
func NewService(ledgerStore ledger.Store, commissions *commission.Engine) *Service {
	return &Service{ledger: ledgerStore, commissions: commissions}
}

// ActivateInput captures a package activation request.
type ActivateInput struct {
	AccountID    string
	PackageValue int64
	PackageName  string
	Reference    string
}

// Outcome describes the ledger effect of an activation. CommissionFailures
// reports upline credits that were skipped; the purchase debit itself is
// never rolled back once posted.
type Outcome struct {
	Purchase           ledger.Entry
	CommissionEntries  []ledger.Entry
	CommissionFailures []error
	CompletedAt        time.Time
}

// Activate debits the package price from the member's shopping wallet and
// triggers the commission fan-out. ErrInsufficientBalance propagates with no
// state change.
func (s *Service) Activate(ctx context.Context, input ActivateInput) (Outcome, error) {
	if input.PackageValue <= 0 {
		return Outcome{}, errors.New("package value must be positive")
	}
	reference := input.Reference
	if reference == "" {
		reference = "package:" + uuid.New().String()
	}
	if input.PackageName != "" {
		reference = reference + ":" + input.PackageName
	}

	entry, err := s.ledger.Transfer(ctx, ledger.TransferInput{
		AccountID:  input.AccountID,
		WalletType: ledger.WalletShopping,
		Direction:  ledger.Debit,
		Amount:     input.PackageValue,
		Category:   ledger.CategoryPackagePurchase,
		Reference:  reference,
	})
	if err != nil {
		return Outcome{}, err
	}

	outcome := Outcome{Purchase: entry, CompletedAt: time.Now().UTC()}

	result, err := s.commissions.OnPackageActivation(ctx, input.AccountID, input.PackageValue)
	if err != nil {
		// The purchase stands; commissions are reconciled separately.
		outcome.CommissionFailures = append(outcome.CommissionFailures, err)
		return outcome, nil
	}
	outcome.CommissionEntries = result.Entries
	outcome.CommissionFailures = result.Failures
	return outcome, nil
}
