package network

import (
	"errors"
	"strings"
	"time"
)

// Leg identifies the position a node occupies under its placement parent.
type Leg string

const (
	LegLeft  Leg = "left"
	LegRight Leg = "right"
)

// ParseLeg normalizes raw position input once at the boundary. Business logic
// below this point only ever compares Leg values.
func ParseLeg(raw string) (Leg, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "l", "left":
		return LegLeft, nil
	case "r", "right":
		return LegRight, nil
	}
	return "", errors.New("leg must be left or right")
}

// Opposite returns the other leg.
func (l Leg) Opposite() Leg {
	if l == LegLeft {
		return LegRight
	}
	return LegLeft
}

// Node is one member's position in the placement tree. Sponsor and leg are
// immutable once set; only the cached subtree counts change as descendants
// attach beneath the node.
type Node struct {
	AccountID  string
	SponsorID  string // who referred the member; empty only for the root
	ParentID   string // whose leg the member occupies; may differ from sponsor
	Leg        Leg
	LeftCount  int64
	RightCount int64
	JoinedAt   time.Time
}

// HasDescendants reports whether anything sits below this node.
func (n Node) HasDescendants() bool {
	return n.LeftCount > 0 || n.RightCount > 0
}

// TeamSize is the total descendant count across both legs.
func (n Node) TeamSize() int64 {
	return n.LeftCount + n.RightCount
}

// PlacementResult describes the outcome of a successful placement.
type PlacementResult struct {
	Node       Node
	Redirected bool // the requested leg was taken and the free one was used
}
