package epin

import (
	"context"
	"sync"
	"time"
)

type inMemoryStore struct {
	mu       sync.RWMutex
	requests map[string]Request
	pins     map[string]Pin
}

// NewInMemory creates a concurrency-safe in-memory e-pin store useful for
// unit tests and dev mode.
func NewInMemory() Store {
	return &inMemoryStore{
		requests: make(map[string]Request),
		pins:     make(map[string]Pin),
	}
}

func (s *inMemoryStore) CreateRequest(_ context.Context, request Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[request.ID] = request
	return nil
}

func (s *inMemoryStore) Request(_ context.Context, id string) (Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	request, ok := s.requests[id]
	if !ok {
		return Request{}, ErrRequestNotFound
	}
	return request, nil
}

func (s *inMemoryStore) RequestsByStatus(_ context.Context, status RequestStatus) ([]Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Request
	for _, request := range s.requests {
		if request.Status == status {
			out = append(out, request)
		}
	}
	return out, nil
}

func (s *inMemoryStore) MarkRequest(_ context.Context, id string, to RequestStatus, processedBy string, at time.Time) (Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	request, ok := s.requests[id]
	if !ok {
		return Request{}, ErrRequestNotFound
	}
	if request.Status != RequestPending {
		return Request{}, ErrAlreadyProcessed
	}
	request.Status = to
	request.ProcessedAt = at
	request.ProcessedBy = processedBy
	s.requests[id] = request
	return request, nil
}

func (s *inMemoryStore) InsertPin(_ context.Context, pin Pin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.pins[pin.Code]; exists {
		return ErrCodeTaken
	}
	s.pins[pin.Code] = pin
	return nil
}

func (s *inMemoryStore) Pin(_ context.Context, code string) (Pin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pin, ok := s.pins[code]
	if !ok {
		return Pin{}, ErrInvalidCode
	}
	return pin, nil
}

func (s *inMemoryStore) PinsByHolder(_ context.Context, holderID string) ([]Pin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Pin
	for _, pin := range s.pins {
		if pin.HolderID == holderID {
			out = append(out, pin)
		}
	}
	return out, nil
}

func (s *inMemoryStore) MarkRedeemed(_ context.Context, code, redeemerID string, at time.Time) (Pin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pin, ok := s.pins[code]
	if !ok {
		return Pin{}, ErrInvalidCode
	}
	switch pin.Status {
	case StatusUsed:
		return Pin{}, ErrAlreadyUsed
	case StatusExpired:
		return Pin{}, ErrExpired
	}
	if pin.HolderID != "" && pin.HolderID != redeemerID {
		return Pin{}, ErrNotAllocated
	}
	pin.Status = StatusUsed
	pin.RedeemedBy = redeemerID
	pin.RedeemedAt = at
	s.pins[code] = pin
	return pin, nil
}

func (s *inMemoryStore) ExpireDue(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	expired := 0
	for code, pin := range s.pins {
		if pin.Status == StatusUnused && !pin.ExpiresAt.IsZero() && pin.ExpiresAt.Before(now) {
			pin.Status = StatusExpired
			s.pins[code] = pin
			expired++
		}
	}
	return expired, nil
}
