package auth

import (
	"context"
	"errors"
	"time"
)

// ErrAccountLocked signals a login attempt during an active lock window.
var ErrAccountLocked = errors.New("auth: account locked")

// LockoutState mirrors the persisted lockout fields of a user record.
// Invariant: Locked implies LockTime is non-nil.
type LockoutState struct {
	FailedAttempts int
	Locked         bool
	LockTime       *time.Time
}

// LockoutStore is the persistence collaborator for lockout accounting.
// Implementations must apply RecordFailure as a single atomic
// read-modify-write for a given user: two concurrent failed attempts must
// observe distinct counter values, never a lost update.
type LockoutStore interface {
	ReadLockout(ctx context.Context, userID int64) (LockoutState, error)

	// RecordFailure increments the failed-attempt counter and, when the new
	// count reaches threshold, atomically applies the lock transition with
	// the given lock timestamp. Returns the resulting state.
	RecordFailure(ctx context.Context, userID int64, threshold int, lockTime time.Time) (LockoutState, error)

	// ClearLockout resets the counter to zero and clears any lock. This is
	// a real write, used both for successful logins and expired locks.
	ClearLockout(ctx context.Context, userID int64) error
}

// LockoutTracker drives the per-user lockout state machine: OPEN accounts
// accumulate failures until the threshold trips them into LOCKED, and a
// LOCKED account reopens on the first attempt after the lock window passes.
type LockoutTracker struct {
	store     LockoutStore
	threshold int
	window    time.Duration
	now       func() time.Time
}

// NewLockoutTracker builds a tracker over the given store.
func NewLockoutTracker(store LockoutStore, threshold int, window time.Duration) *LockoutTracker {
	if threshold <= 0 {
		threshold = 5
	}
	if window <= 0 {
		window = 30 * time.Minute
	}
	return &LockoutTracker{store: store, threshold: threshold, window: window, now: time.Now}
}

// CheckGate is the first step of every login attempt and must run before
// any credential comparison, so a locked account cannot leak whether the
// submitted password would have matched. An active lock yields
// ErrAccountLocked; an expired lock is cleared here, as a write, without
// assuming any background sweep has run.
func (t *LockoutTracker) CheckGate(ctx context.Context, userID int64) error {
	state, err := t.store.ReadLockout(ctx, userID)
	if err != nil {
		return err
	}
	if !state.Locked {
		return nil
	}
	if state.LockTime == nil || t.now().Sub(*state.LockTime) >= t.window {
		return t.store.ClearLockout(ctx, userID)
	}
	return ErrAccountLocked
}

// RecordFailure accounts one failed credential comparison. It reports
// whether this attempt tripped the lock.
func (t *LockoutTracker) RecordFailure(ctx context.Context, userID int64) (bool, error) {
	state, err := t.store.RecordFailure(ctx, userID, t.threshold, t.now())
	if err != nil {
		return false, err
	}
	return state.Locked, nil
}

// RecordSuccess resets the counter after a successful login.
func (t *LockoutTracker) RecordSuccess(ctx context.Context, userID int64) error {
	return t.store.ClearLockout(ctx, userID)
}

// Threshold exposes the configured failure threshold.
func (t *LockoutTracker) Threshold() int {
	return t.threshold
}
