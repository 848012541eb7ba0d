package network

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/upline-net/upline_net/internal/identity"
	"github.com/upline-net/upline_net/internal/notification"
)

// Service exposes placement operations on top of the placement store.
type Service struct {
	store     Store
	accounts  identity.Repository
	notifier  notification.Notifier
	logger    *slog.Logger
	strictLeg bool
}

// NewService builds a placement service. When strictLeg is set a request for
// an occupied leg is rejected instead of redirected to the free one.
func NewService(store Store, accounts identity.Repository, notifier notification.Notifier, logger *slog.Logger, strictLeg bool) *Service {
	return &Service{store: store, accounts: accounts, notifier: notifier, logger: logger, strictLeg: strictLeg}
}

// PlaceInput captures a placement request.
type PlaceInput struct {
	AccountID   string
	SponsorCode string
	Leg         string
}

// Place resolves the sponsor code, selects a leg and attaches the member
// under the sponsor. No partial state is committed on failure.
func (s *Service) Place(ctx context.Context, input PlaceInput) (PlacementResult, error) {
	if input.AccountID == "" {
		return PlacementResult{}, errors.New("account id is required")
	}
	leg, err := ParseLeg(input.Leg)
	if err != nil {
		return PlacementResult{}, err
	}

	sponsor, err := s.accounts.FindByCode(ctx, input.SponsorCode)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return PlacementResult{}, ErrSponsorNotFound
		}
		return PlacementResult{}, err
	}

	// Sponsor accounts must participate in the network themselves.
	if _, err := s.store.Node(ctx, sponsor.ID); err != nil {
		if errors.Is(err, ErrNodeNotFound) {
			return PlacementResult{}, ErrSponsorNotFound
		}
		return PlacementResult{}, err
	}

	// This design places directly under the sponsor; no spillover.
	result, err := s.store.Attach(ctx, input.AccountID, sponsor.ID, sponsor.ID, leg, s.strictLeg)
	if err != nil {
		return PlacementResult{}, err
	}

	if s.logger != nil {
		s.logger.Info("member placed",
			slog.String("account_id", input.AccountID),
			slog.String("sponsor_id", sponsor.ID),
			slog.String("leg", string(result.Node.Leg)),
			slog.Bool("redirected", result.Redirected),
		)
	}
	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindPlacement,
			Destination: sponsor.ID,
			Body:        fmt.Sprintf("New member joined your %s leg", result.Node.Leg),
		})
	}

	return result, nil
}

// CreateRoot seeds the tree with its first node.
func (s *Service) CreateRoot(ctx context.Context, accountID string) (Node, error) {
	return s.store.CreateRoot(ctx, accountID)
}

// Node returns the placement node for an account.
func (s *Service) Node(ctx context.Context, accountID string) (Node, error) {
	return s.store.Node(ctx, accountID)
}
