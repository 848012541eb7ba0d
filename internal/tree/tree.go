package tree

import (
	"context"
	"errors"

	"github.com/upline-net/upline_net/internal/identity"
	"github.com/upline-net/upline_net/internal/ledger"
	"github.com/upline-net/upline_net/internal/network"
	"github.com/upline-net/upline_net/internal/rank"
)

// Mode selects which edges a tree view follows.
type Mode string

const (
	// ModePlacement follows placement-parent edges; at most two children per
	// node, missing legs are shown as open slots.
	ModePlacement Mode = "placement"
	// ModeSponsor follows sponsor edges with unbounded fan-out.
	ModeSponsor Mode = "sponsor"
)

// ParseMode normalizes raw mode input.
func ParseMode(raw string) (Mode, error) {
	switch Mode(raw) {
	case ModePlacement, ModeSponsor:
		return Mode(raw), nil
	case "":
		return ModePlacement, nil
	}
	return "", errors.New("mode must be placement or sponsor")
}

// Node is one entry in a bounded-depth tree view. OpenSlot entries mark free
// legs so occupancy is structurally obvious to consumers.
type Node struct {
	AccountID      string  `json:"account_id,omitempty"`
	Username       string  `json:"username,omitempty"`
	DisplayName    string  `json:"display_name,omitempty"`
	Leg            string  `json:"leg,omitempty"`
	Rank           string  `json:"rank,omitempty"`
	Earnings       int64   `json:"earnings"`
	HasDescendants bool    `json:"has_descendants"`
	OpenSlot       bool    `json:"open_slot,omitempty"`
	Children       []*Node `json:"children,omitempty"`
}

// Service produces bounded-depth tree views. It is read-only: nothing here
// mutates network or ledger state.
type Service struct {
	network  network.Store
	ledger   ledger.Store
	accounts identity.Repository
	ranks    *rank.Evaluator
	cache    *Cache
	maxDepth int
}

// NewService builds a tree query service. cache may be nil.
func NewService(networkStore network.Store, ledgerStore ledger.Store, accounts identity.Repository, ranks *rank.Evaluator, cache *Cache, maxDepth int) *Service {
	if maxDepth <= 0 {
		maxDepth = 4
	}
	return &Service{
		network:  networkStore,
		ledger:   ledgerStore,
		accounts: accounts,
		ranks:    ranks,
		cache:    cache,
		maxDepth: maxDepth,
	}
}

// Build assembles the tree rooted at rootID down to maxDepth levels. Levels
// past the bound are omitted, not erred. A zero maxDepth uses the service
// default; requests above the default are clamped to it.
func (s *Service) Build(ctx context.Context, rootID string, maxDepth int, mode Mode) (*Node, error) {
	if maxDepth <= 0 || maxDepth > s.maxDepth {
		maxDepth = s.maxDepth
	}

	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, rootID, maxDepth, mode); ok {
			return cached, nil
		}
	}

	rootNode, err := s.network.Node(ctx, rootID)
	if err != nil {
		return nil, err
	}

	root, err := s.describe(ctx, rootNode)
	if err != nil {
		return nil, err
	}

	// Explicit queue traversal so the depth bound is structural rather than
	// a recursion convention.
	type item struct {
		view  *Node
		node  network.Node
		depth int
	}
	queue := []item{{view: root, node: rootNode, depth: 0}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= maxDepth {
			continue
		}

		switch mode {
		case ModeSponsor:
			referrals, err := s.network.DirectReferrals(ctx, cur.node.AccountID)
			if err != nil {
				return nil, err
			}
			for _, ref := range referrals {
				child, err := s.describe(ctx, ref)
				if err != nil {
					return nil, err
				}
				cur.view.Children = append(cur.view.Children, child)
				queue = append(queue, item{view: child, node: ref, depth: cur.depth + 1})
			}
		default:
			children, err := s.network.Children(ctx, cur.node.AccountID)
			if err != nil {
				return nil, err
			}
			for _, leg := range []network.Leg{network.LegLeft, network.LegRight} {
				childNode, ok := children[leg]
				if !ok {
					cur.view.Children = append(cur.view.Children, &Node{Leg: string(leg), OpenSlot: true})
					continue
				}
				child, err := s.describe(ctx, childNode)
				if err != nil {
					return nil, err
				}
				cur.view.Children = append(cur.view.Children, child)
				queue = append(queue, item{view: child, node: childNode, depth: cur.depth + 1})
			}
		}
	}

	if s.cache != nil {
		s.cache.Put(ctx, rootID, maxDepth, mode, root)
	}

	return root, nil
}

func (s *Service) describe(ctx context.Context, node network.Node) (*Node, error) {
	view := &Node{
		AccountID:      node.AccountID,
		Leg:            string(node.Leg),
		HasDescendants: node.HasDescendants(),
	}

	if account, err := s.accounts.FindByID(ctx, node.AccountID); err == nil {
		view.Username = account.Username
		view.DisplayName = account.DisplayName
	}

	// Earnings are summed from the entry log at call time, never cached.
	earnings, err := s.ledger.EarningsTotal(ctx, node.AccountID)
	if err != nil {
		return nil, err
	}
	view.Earnings = earnings

	if s.ranks != nil {
		eval, err := s.ranks.Evaluate(ctx, node.AccountID)
		if err != nil {
			return nil, err
		}
		if eval.Achieved != nil {
			view.Rank = eval.Achieved.Label
		}
	}

	return view, nil
}
