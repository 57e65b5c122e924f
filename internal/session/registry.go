// Package session tracks interactive logins and enforces the per-user
// concurrency limit. A registry is an explicit injected store with process
// lifecycle, not a package-level singleton: the service builds one at start
// and hands it to whoever needs it.
package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned for unknown, revoked or expired session IDs.
var ErrNotFound = errors.New("session: not found")

// Session is one interactive login. Sessions are created on successful
// authentication with a freshly minted identifier (a pre-login identifier is
// never promoted, as a session-fixation defense) and die on logout,
// inactivity expiry or oldest-first eviction.
type Session struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
	LastSeen  time.Time `json:"last_seen"`
}

// Registry bounds live sessions per account. When registering a session
// would exceed the limit, the oldest-created session for that account is
// evicted (creation order, not recency of activity).
type Registry interface {
	// Register creates a session with a new identifier, evicting the oldest
	// session beyond the per-user limit.
	Register(ctx context.Context, username string) (*Session, error)

	// Touch resolves a session ID, refreshing its inactivity clock. Expired
	// sessions are removed and reported as ErrNotFound.
	Touch(ctx context.Context, sessionID string) (*Session, error)

	// Revoke removes a session.
	Revoke(ctx context.Context, sessionID string) error

	// Active lists the live sessions for an account, oldest first.
	Active(ctx context.Context, username string) ([]Session, error)
}
