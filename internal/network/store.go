package network

import (
	"context"
	"errors"
)

var (
	// ErrSponsorNotFound indicates the sponsor code resolved to no member node.
	ErrSponsorNotFound = errors.New("sponsor not found")

	// ErrSponsorFull indicates both legs under the sponsor are occupied.
	ErrSponsorFull = errors.New("both positions occupied, choose another sponsor")

	// ErrLegOccupied indicates the requested leg is taken and redirection is
	// disabled.
	ErrLegOccupied = errors.New("requested position is occupied")

	// ErrNodeNotFound indicates no placement node exists for the account.
	ErrNodeNotFound = errors.New("member node not found")

	// ErrAlreadyPlaced indicates the account already has a node in the tree.
	ErrAlreadyPlaced = errors.New("member already placed")
)

// Store is the contract implemented by placement tree backends. Attach is the
// single mutating operation: it serializes on the parent node, verifies leg
// occupancy, inserts the new node and bumps the subtree count of every
// ancestor up to the root, all-or-nothing.
type Store interface {
	// CreateRoot inserts the first node of the tree.
	CreateRoot(ctx context.Context, accountID string) (Node, error)
	// Attach places accountID under parentID. When the requested leg is taken
	// and the other is free the node is redirected there unless strict is
	// set, in which case ErrLegOccupied is returned. Both legs taken yields
	// ErrSponsorFull.
	Attach(ctx context.Context, accountID, sponsorID, parentID string, requested Leg, strict bool) (PlacementResult, error)
	Node(ctx context.Context, accountID string) (Node, error)
	// Children returns the occupied legs directly under the parent.
	Children(ctx context.Context, parentID string) (map[Leg]Node, error)
	// DirectReferrals lists nodes whose sponsor is the given account.
	DirectReferrals(ctx context.Context, sponsorID string) ([]Node, error)
}
