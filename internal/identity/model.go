package identity

import "time"

// Roles an account may hold. The network core only distinguishes admins
// (who may approve e-pin requests) from ordinary members.
const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

// Account statuses.
const (
	StatusActive    = "active"
	StatusSuspended = "suspended"
)

// Account represents a registered network participant.
type Account struct {
	ID           string
	Username     string
	ReferralCode string
	DisplayName  string
	PasswordHash []byte
	Role         string
	Status       string
	CreatedAt    time.Time
}

// Credentials request structure.
type Credentials struct {
	Username    string
	Password    string
	DisplayName string
}
