package network

import (
	"context"
	"sync"
	"time"
)

type childKey struct {
	parentID string
	leg      Leg
}

type inMemoryStore struct {
	mu       sync.RWMutex
	nodes    map[string]*Node
	children map[childKey]string // parent+leg -> child account id
	rootSet  bool
}

// NewInMemory creates a concurrency-safe in-memory placement store useful for
// unit tests and dev mode.
func NewInMemory() Store {
	return &inMemoryStore{
		nodes:    make(map[string]*Node),
		children: make(map[childKey]string),
	}
}

func (s *inMemoryStore) CreateRoot(_ context.Context, accountID string) (Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.nodes[accountID]; exists {
		return Node{}, ErrAlreadyPlaced
	}
	node := &Node{AccountID: accountID, JoinedAt: time.Now().UTC()}
	s.nodes[accountID] = node
	s.rootSet = true
	return *node, nil
}

func (s *inMemoryStore) Attach(_ context.Context, accountID, sponsorID, parentID string, requested Leg, strict bool) (PlacementResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.nodes[accountID]; exists {
		return PlacementResult{}, ErrAlreadyPlaced
	}
	parent, ok := s.nodes[parentID]
	if !ok {
		return PlacementResult{}, ErrSponsorNotFound
	}

	_, requestedTaken := s.children[childKey{parentID: parentID, leg: requested}]
	_, otherTaken := s.children[childKey{parentID: parentID, leg: requested.Opposite()}]

	leg := requested
	redirected := false
	switch {
	case requestedTaken && otherTaken:
		return PlacementResult{}, ErrSponsorFull
	case requestedTaken:
		if strict {
			return PlacementResult{}, ErrLegOccupied
		}
		leg = requested.Opposite()
		redirected = true
	}

	node := &Node{
		AccountID: accountID,
		SponsorID: sponsorID,
		ParentID:  parentID,
		Leg:       leg,
		JoinedAt:  time.Now().UTC(),
	}
	s.nodes[accountID] = node
	s.children[childKey{parentID: parentID, leg: leg}] = accountID

	// Bump the subtree count of every ancestor along the placement chain so
	// subtree size reads stay O(1).
	side := leg
	for cur := parent; cur != nil; {
		if side == LegLeft {
			cur.LeftCount++
		} else {
			cur.RightCount++
		}
		if cur.ParentID == "" {
			break
		}
		side = cur.Leg
		cur = s.nodes[cur.ParentID]
	}

	return PlacementResult{Node: *node, Redirected: redirected}, nil
}

func (s *inMemoryStore) Node(_ context.Context, accountID string) (Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	node, ok := s.nodes[accountID]
	if !ok {
		return Node{}, ErrNodeNotFound
	}
	return *node, nil
}

func (s *inMemoryStore) Children(_ context.Context, parentID string) (map[Leg]Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[Leg]Node, 2)
	for _, leg := range []Leg{LegLeft, LegRight} {
		if childID, ok := s.children[childKey{parentID: parentID, leg: leg}]; ok {
			out[leg] = *s.nodes[childID]
		}
	}
	return out, nil
}

func (s *inMemoryStore) DirectReferrals(_ context.Context, sponsorID string) ([]Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Node
	for _, node := range s.nodes {
		if node.SponsorID == sponsorID {
			out = append(out, *node)
		}
	}
	return out, nil
}
