package commission

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/upline-net/upline_net/internal/ledger"
	"github.com/upline-net/upline_net/internal/network"
	"github.com/upline-net/upline_net/internal/notification"
	"github.com/upline-net/upline_net/internal/rank"
)

// Rates holds the business parameters of the commission plan.
type Rates struct {
	DirectBps     int   // direct income as basis points of package value
	MatchingBonus int64 // payout per newly completed left/right pair
	PairSize      int64 // left/right growth needed per matched pair
}

// ActivationResult collects the outcome of a package activation fan-out.
// Each credit is an independent unit of work: failures are collected, not
// rolled back.
type ActivationResult struct {
	Entries  []ledger.Entry
	Failures []error
}

// Engine computes and posts earnings triggered by package activations.
type Engine struct {
	ledger   ledger.Store
	network  network.Store
	marks    MarkStore
	ranks    *rank.Evaluator
	notifier notification.Notifier
	logger   *slog.Logger
	rates    Rates
}

// NewEngine builds a commission engine.
func NewEngine(ledgerStore ledger.Store, networkStore network.Store, marks MarkStore, ranks *rank.Evaluator, notifier notification.Notifier, logger *slog.Logger, rates Rates) *Engine {
	if rates.PairSize <= 0 {
		rates.PairSize = 1
	}
	return &Engine{
		ledger:   ledgerStore,
		network:  networkStore,
		marks:    marks,
		ranks:    ranks,
		notifier: notifier,
		logger:   logger,
		rates:    rates,
	}
}

// credit is one self-contained commission command. Marked-payout commands are
// planned only after their mark claim succeeded, so a credit that fails here
// leaves a claimed-but-unpaid span to reconcile rather than a double payment.
type credit struct {
	accountID string
	amount    int64
	category  ledger.Category
	reference string
}

// OnPackageActivation posts the direct income, matching income and rank bonus
// credits that a package activation triggers. The returned result carries the
// successful entries plus an error per failed leg; partial completion is an
// accepted, logged outcome. Only a missing activating node aborts the whole
// fan-out.
func (e *Engine) OnPackageActivation(ctx context.Context, accountID string, packageValue int64) (ActivationResult, error) {
	var result ActivationResult
	if packageValue <= 0 {
		return result, fmt.Errorf("package value must be positive")
	}

	node, err := e.network.Node(ctx, accountID)
	if err != nil {
		return result, err
	}

	// Direct income to the sponsor.
	if node.SponsorID != "" && e.rates.DirectBps > 0 {
		if amount := packageValue * int64(e.rates.DirectBps) / 10_000; amount > 0 {
			e.run(ctx, []credit{{
				accountID: node.SponsorID,
				amount:    amount,
				category:  ledger.CategoryDirectIncome,
				reference: "activation:" + node.AccountID,
			}}, &result)
		}
	}

	// Matching income up the placement chain. A failing ancestor becomes one
	// collected failure; the credits already planned still post.
	if e.rates.MatchingBonus > 0 {
		e.run(ctx, e.planMatching(ctx, node, &result), &result)
	}

	// Rank bonuses are planned after the income credits above have landed,
	// since those credits move the earnings aggregates the evaluator reads.
	// Every upline credited by this activation is re-evaluated, not just the
	// direct sponsor: matching income can push a higher ancestor over a
	// threshold too.
	if e.ranks != nil {
		credited := result.Entries
		seen := make(map[string]bool, len(credited))
		for _, entry := range credited {
			if seen[entry.AccountID] {
				continue
			}
			seen[entry.AccountID] = true
			bonus, err := e.planRankBonus(ctx, entry.AccountID)
			if err != nil {
				result.Failures = append(result.Failures, fmt.Errorf("rank bonus planning for %s: %w", entry.AccountID, err))
			}
			e.run(ctx, bonus, &result)
		}
	}

	return result, nil
}

func (e *Engine) run(ctx context.Context, commands []credit, result *ActivationResult) {
	for _, cmd := range commands {
		entry, err := e.ledger.Transfer(ctx, ledger.TransferInput{
			AccountID:  cmd.accountID,
			WalletType: ledger.WalletEarnings,
			Direction:  ledger.Credit,
			Amount:     cmd.amount,
			Category:   cmd.category,
			Reference:  cmd.reference,
		})
		if err != nil {
			wrapped := fmt.Errorf("%s credit to %s: %w", cmd.category, cmd.accountID, err)
			result.Failures = append(result.Failures, wrapped)
			if e.logger != nil {
				e.logger.Error("commission credit failed",
					slog.String("account_id", cmd.accountID),
					slog.String("category", string(cmd.category)),
					slog.Int64("amount", cmd.amount),
					slog.Any("error", err),
				)
			}
			continue
		}
		result.Entries = append(result.Entries, entry)
		if e.notifier != nil {
			_ = e.notifier.Send(ctx, notification.Message{
				Kind:        notification.KindCommission,
				Destination: cmd.accountID,
				Body:        fmt.Sprintf("Earned %d (%s)", cmd.amount, cmd.category),
			})
		}
	}
}

// planMatching walks the placement chain claiming newly completed pairs per
// ancestor. The claim is the atomic step: whatever span it returns belongs to
// this activation alone, even against a concurrent trigger on the same chain.
func (e *Engine) planMatching(ctx context.Context, node network.Node, result *ActivationResult) []credit {
	var commands []credit
	parentID := node.ParentID
	for parentID != "" {
		ancestor, err := e.network.Node(ctx, parentID)
		if err != nil {
			// Without this ancestor's row the chain above it is unreachable;
			// record the gap and keep what was already planned.
			result.Failures = append(result.Failures, fmt.Errorf("matching walk at %s: %w", parentID, err))
			return commands
		}

		pairs := min64(ancestor.LeftCount, ancestor.RightCount) / e.rates.PairSize
		claimed, err := e.marks.ClaimPairs(ctx, ancestor.AccountID, pairs)
		if err != nil {
			result.Failures = append(result.Failures, fmt.Errorf("claim pairs for %s: %w", ancestor.AccountID, err))
			parentID = ancestor.ParentID
			continue
		}
		if claimed > 0 {
			commands = append(commands, credit{
				accountID: ancestor.AccountID,
				amount:    claimed * e.rates.MatchingBonus,
				category:  ledger.CategoryMatchingIncome,
				reference: fmt.Sprintf("pairs:%d-%d", pairs-claimed+1, pairs),
			})
		}

		parentID = ancestor.ParentID
	}
	return commands
}

// planRankBonus claims and pays every newly reached tier once, lowest first.
func (e *Engine) planRankBonus(ctx context.Context, accountID string) ([]credit, error) {
	achieved, err := e.ranks.AchievedIndex(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if achieved < 0 {
		return nil, nil
	}

	table := e.ranks.Table()
	var commands []credit
	for i := 0; i <= achieved; i++ {
		if table[i].Bonus <= 0 {
			continue
		}
		won, err := e.marks.ClaimRank(ctx, accountID, i)
		if err != nil {
			// Tiers claimed so far still get paid by the caller.
			return commands, err
		}
		if !won {
			continue
		}
		commands = append(commands, credit{
			accountID: accountID,
			amount:    table[i].Bonus,
			category:  ledger.CategoryRankBonus,
			reference: "rank:" + table[i].Label,
		})
	}
	return commands, nil
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
