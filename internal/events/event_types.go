package events

import (
	"time"

	"github.com/spec-kit/quiz-platform/internal/domain"
)

// EventType enumerates supported audit event identifiers.
type EventType string

const (
	EventUserRegistered    EventType = "user_registered"
	EventLoginSucceeded    EventType = "login_succeeded"
	EventLoginFailed       EventType = "login_failed"
	EventAccountLocked     EventType = "account_locked"
	EventAccountUnlocked   EventType = "account_unlocked"
	EventSessionRegistered EventType = "session_registered"
	EventSessionEvicted    EventType = "session_evicted"
	EventPasswordChanged   EventType = "password_changed"
)

// Event represents an audit event emitted by the auth flows.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Username  string      `json:"username"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// LoginFailedPayload payload.
type LoginFailedPayload struct {
	FailedAttempts int    `json:"failed_attempts"`
	Reason         string `json:"reason"`
}

// AccountLockedPayload payload.
type AccountLockedPayload struct {
	LockTime time.Time `json:"lock_time"`
	Email    string    `json:"email"`
}

// AccountUnlockedPayload payload.
type AccountUnlockedPayload struct {
	UnlockedBy string `json:"unlocked_by,omitempty"`
}

// SessionPayload payload for session registration/eviction.
type SessionPayload struct {
	SessionID string `json:"session_id"`
}

// UserRegisteredPayload payload.
type UserRegisteredPayload struct {
	Role  domain.Role `json:"role"`
	Email string      `json:"email"`
}
