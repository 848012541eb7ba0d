package epin

import (
	"errors"
	"time"
)

var (
	// ErrInvalidCode indicates no pin exists for the code.
	ErrInvalidCode = errors.New("invalid e-pin code")

	// ErrAlreadyUsed indicates the pin was redeemed before.
	ErrAlreadyUsed = errors.New("e-pin already used")

	// ErrExpired indicates the pin lapsed before redemption.
	ErrExpired = errors.New("e-pin expired")

	// ErrNotAllocated indicates the pin belongs to a different holder.
	ErrNotAllocated = errors.New("e-pin not allocated to you")

	// ErrAlreadyProcessed indicates the request left PENDING earlier.
	ErrAlreadyProcessed = errors.New("request already processed")

	// ErrRequestNotFound indicates no request exists for the id.
	ErrRequestNotFound = errors.New("request not found")

	// ErrCodeTaken indicates a generated code collided with an existing pin.
	ErrCodeTaken = errors.New("code already exists")
)

// Pin statuses. UNUSED is the only non-terminal state.
type Status string

const (
	StatusUnused  Status = "unused"
	StatusUsed    Status = "used"
	StatusExpired Status = "expired"
)

// Pin is a single-use prepaid voucher.
type Pin struct {
	Code        string
	FaceValue   int64
	PackageName string
	Status      Status
	GeneratedBy string
	HolderID    string // empty means unassigned; anyone may redeem
	RedeemedBy  string
	CreatedAt   time.Time
	ExpiresAt   time.Time
	RedeemedAt  time.Time
}

// Request statuses.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

// Request is a holder's ask for a batch of pins against a claimed payment.
// Approval is the sole minting path and is irreversible.
type Request struct {
	ID           string
	RequesterID  string
	Quantity     int
	FaceValue    int64
	PackageName  string
	PaymentMode  string
	ExternalTxID string
	ProofRef     string // opaque reference, never validated here
	Status       RequestStatus
	CreatedAt    time.Time
	ProcessedAt  time.Time
	ProcessedBy  string
}
