package epin

import (
	"context"
	"time"
)

// Store is the contract implemented by e-pin backends. MarkRequest and
// MarkRedeemed are compare-and-set transitions; MarkRedeemed serializes on
// the pin row so a code cannot be redeemed twice.
type Store interface {
	CreateRequest(ctx context.Context, request Request) error
	Request(ctx context.Context, id string) (Request, error)
	RequestsByStatus(ctx context.Context, status RequestStatus) ([]Request, error)
	// MarkRequest transitions the request from PENDING to the given terminal
	// status, failing with ErrAlreadyProcessed when it already left PENDING.
	MarkRequest(ctx context.Context, id string, to RequestStatus, processedBy string, at time.Time) (Request, error)

	InsertPin(ctx context.Context, pin Pin) error
	Pin(ctx context.Context, code string) (Pin, error)
	PinsByHolder(ctx context.Context, holderID string) ([]Pin, error)
	// MarkRedeemed flips an UNUSED pin to USED for the redeemer, enforcing
	// holder allocation and expiry. Terminal states map to ErrAlreadyUsed
	// and ErrExpired.
	MarkRedeemed(ctx context.Context, code, redeemerID string, at time.Time) (Pin, error)
	// ExpireDue flips UNUSED pins whose expiry passed to EXPIRED and returns
	// how many changed.
	ExpireDue(ctx context.Context, now time.Time) (int, error)
}
