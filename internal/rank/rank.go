package rank

import (
	"context"
	"errors"

	"github.com/upline-net/upline_net/internal/ledger"
	"github.com/upline-net/upline_net/internal/network"
)

// Threshold is one tier of the rank ladder. A rank is achieved only when all
// three dimensions meet their thresholds.
type Threshold struct {
	Label        string
	Earnings     int64 // cumulative income credits
	TeamSize     int64 // left + right subtree counts
	PackageValue int64 // summed package purchases
	Bonus        int64 // one-time payout on first reaching the rank
}

// DefaultTable is the built-in rank ladder, ordered by ascending thresholds.
func DefaultTable() []Threshold {
	return []Threshold{
		{Label: "Bronze", Earnings: 1_000, TeamSize: 5, PackageValue: 500, Bonus: 100},
		{Label: "Silver", Earnings: 5_000, TeamSize: 20, PackageValue: 1_500, Bonus: 500},
		{Label: "Gold", Earnings: 20_000, TeamSize: 60, PackageValue: 4_000, Bonus: 2_000},
		{Label: "Platinum", Earnings: 75_000, TeamSize: 150, PackageValue: 10_000, Bonus: 7_500},
		{Label: "Diamond", Earnings: 250_000, TeamSize: 400, PackageValue: 25_000, Bonus: 25_000},
	}
}

// Progress reports how far the member is toward the next rank, per dimension,
// as percentages capped at 100.
type Progress struct {
	Earnings     float64
	TeamSize     float64
	PackageValue float64
}

// Evaluation is the outcome of a rank computation. Achieved is nil when no
// rank is met yet; Next is nil at the top of the ladder.
type Evaluation struct {
	Achieved *Threshold
	Next     *Threshold
	Progress Progress

	Earnings     int64
	TeamSize     int64
	PackageValue int64
}

// Evaluator derives a member's rank from ledger and network aggregates. No
// cached rank is trusted; every input is read as of call time.
type Evaluator struct {
	ledger  ledger.Store
	network network.Store
	table   []Threshold
}

// NewEvaluator builds a rank evaluator over the given threshold table. A nil
// table selects the default ladder.
func NewEvaluator(ledgerStore ledger.Store, networkStore network.Store, table []Threshold) *Evaluator {
	if table == nil {
		table = DefaultTable()
	}
	return &Evaluator{ledger: ledgerStore, network: networkStore, table: table}
}

// Table returns the threshold table in ascending order.
func (e *Evaluator) Table() []Threshold {
	return e.table
}

// Evaluate computes the achieved and next rank for the member.
func (e *Evaluator) Evaluate(ctx context.Context, accountID string) (Evaluation, error) {
	earnings, err := e.ledger.EarningsTotal(ctx, accountID)
	if err != nil {
		return Evaluation{}, err
	}
	packageValue, err := e.ledger.SumByCategory(ctx, accountID, ledger.CategoryPackagePurchase)
	if err != nil {
		return Evaluation{}, err
	}

	var teamSize int64
	node, err := e.network.Node(ctx, accountID)
	if err == nil {
		teamSize = node.TeamSize()
	} else if !errors.Is(err, network.ErrNodeNotFound) {
		return Evaluation{}, err
	}

	eval := Evaluation{Earnings: earnings, TeamSize: teamSize, PackageValue: packageValue}

	for i := range e.table {
		t := e.table[i]
		if earnings >= t.Earnings && teamSize >= t.TeamSize && packageValue >= t.PackageValue {
			eval.Achieved = &e.table[i]
			continue
		}
		eval.Next = &e.table[i]
		break
	}

	if eval.Next == nil {
		// Max rank reached; every dimension reports complete.
		eval.Progress = Progress{Earnings: 100, TeamSize: 100, PackageValue: 100}
		return eval, nil
	}

	eval.Progress = Progress{
		Earnings:     percent(earnings, eval.Next.Earnings),
		TeamSize:     percent(teamSize, eval.Next.TeamSize),
		PackageValue: percent(packageValue, eval.Next.PackageValue),
	}
	return eval, nil
}

// AchievedIndex returns the index into the table of the highest achieved
// rank, or -1. The commission engine uses it as a high-water mark for rank
// bonus payouts.
func (e *Evaluator) AchievedIndex(ctx context.Context, accountID string) (int, error) {
	eval, err := e.Evaluate(ctx, accountID)
	if err != nil {
		return -1, err
	}
	if eval.Achieved == nil {
		return -1, nil
	}
	for i := range e.table {
		if e.table[i].Label == eval.Achieved.Label {
			return i, nil
		}
	}
	return -1, nil
}

func percent(current, threshold int64) float64 {
	if threshold <= 0 {
		return 100
	}
	pct := float64(current) / float64(threshold) * 100
	if pct > 100 {
		return 100
	}
	return pct
}
