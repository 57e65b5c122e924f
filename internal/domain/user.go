package domain

import "time"

// Role enumerates the platform roles carried by tokens and sessions.
type Role string

const (
	RoleAdmin       Role = "ADMIN"
	RoleParticipant Role = "PARTICIPANT"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleParticipant
}

// User is the domain model for platform accounts. The lockout fields are
// part of the persisted record and are mutated on every login attempt.
type User struct {
	ID             int64
	Username       string
	Email          string
	PasswordHash   string
	Role           Role
	FailedAttempts int
	Locked         bool
	LockTime       *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
