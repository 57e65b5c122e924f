package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryLockoutStore applies the same atomicity contract as the Postgres
// store: the whole read-modify-write happens under one lock.
type memoryLockoutStore struct {
	mu     sync.Mutex
	states map[int64]LockoutState
}

func newMemoryLockoutStore() *memoryLockoutStore {
	return &memoryLockoutStore{states: make(map[int64]LockoutState)}
}

func (s *memoryLockoutStore) ReadLockout(_ context.Context, userID int64) (LockoutState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[userID], nil
}

func (s *memoryLockoutStore) RecordFailure(_ context.Context, userID int64, threshold int, lockTime time.Time) (LockoutState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.states[userID]
	state.FailedAttempts++
	if state.FailedAttempts >= threshold && !state.Locked {
		state.Locked = true
		lt := lockTime
		state.LockTime = &lt
	}
	s.states[userID] = state
	return state, nil
}

func (s *memoryLockoutStore) ClearLockout(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[userID] = LockoutState{}
	return nil
}

func TestLockoutTracker_LocksAtThreshold(t *testing.T) {
	store := newMemoryLockoutStore()
	tracker := NewLockoutTracker(store, 5, 30*time.Minute)
	ctx := context.Background()

	for i := 1; i <= 4; i++ {
		locked, err := tracker.RecordFailure(ctx, 1)
		require.NoError(t, err)
		assert.False(t, locked, "attempt %d should not lock", i)
		assert.NoError(t, tracker.CheckGate(ctx, 1))
	}

	locked, err := tracker.RecordFailure(ctx, 1)
	require.NoError(t, err)
	assert.True(t, locked, "fifth failure must trip the lock")

	// The sixth attempt is rejected at the gate, before any credential work.
	assert.ErrorIs(t, tracker.CheckGate(ctx, 1), ErrAccountLocked)
}

func TestLockoutTracker_SuccessResetsCounter(t *testing.T) {
	store := newMemoryLockoutStore()
	tracker := NewLockoutTracker(store, 5, 30*time.Minute)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := tracker.RecordFailure(ctx, 1)
		require.NoError(t, err)
	}
	require.NoError(t, tracker.RecordSuccess(ctx, 1))

	state, err := store.ReadLockout(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, state.FailedAttempts)
	assert.False(t, state.Locked)

	// Counting starts over: four more failures still do not lock.
	for i := 0; i < 4; i++ {
		locked, err := tracker.RecordFailure(ctx, 1)
		require.NoError(t, err)
		assert.False(t, locked)
	}
}

func TestLockoutTracker_ExpiredLockClearsOnNextAttempt(t *testing.T) {
	store := newMemoryLockoutStore()
	tracker := NewLockoutTracker(store, 5, 30*time.Minute)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := tracker.RecordFailure(ctx, 1)
		require.NoError(t, err)
	}
	require.ErrorIs(t, tracker.CheckGate(ctx, 1), ErrAccountLocked)

	// Jump past the lock window. The gate itself performs the clearing
	// write; no sweep is assumed.
	tracker.now = func() time.Time { return time.Now().Add(31 * time.Minute) }

	require.NoError(t, tracker.CheckGate(ctx, 1))

	state, err := store.ReadLockout(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, state.FailedAttempts)
	assert.False(t, state.Locked)
	assert.Nil(t, state.LockTime)
}

func TestLockoutTracker_LockInsideWindowHolds(t *testing.T) {
	store := newMemoryLockoutStore()
	tracker := NewLockoutTracker(store, 5, 30*time.Minute)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := tracker.RecordFailure(ctx, 1)
		require.NoError(t, err)
	}

	tracker.now = func() time.Time { return time.Now().Add(29 * time.Minute) }
	assert.ErrorIs(t, tracker.CheckGate(ctx, 1), ErrAccountLocked)
}

func TestLockoutTracker_ConcurrentFailuresLoseNoUpdates(t *testing.T) {
	store := newMemoryLockoutStore()
	tracker := NewLockoutTracker(store, 100, 30*time.Minute)
	ctx := context.Background()

	const attempts = 50
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := tracker.RecordFailure(ctx, 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	state, err := store.ReadLockout(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, attempts, state.FailedAttempts)
	assert.False(t, state.Locked)
}

func TestLockoutTracker_ConcurrentFailuresSingleLockTransition(t *testing.T) {
	store := newMemoryLockoutStore()
	tracker := NewLockoutTracker(store, 5, 30*time.Minute)
	ctx := context.Background()

	const attempts = 10
	lockCount := 0
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			locked, err := tracker.RecordFailure(ctx, 1)
			assert.NoError(t, err)
			if locked {
				mu.Lock()
				lockCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	state, err := store.ReadLockout(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, attempts, state.FailedAttempts)
	assert.True(t, state.Locked)
	require.NotNil(t, state.LockTime)

	// Increments serialize, so every goroutine observed a distinct counter
	// value and exactly those at or past the threshold saw the locked state.
	assert.Equal(t, attempts-4, lockCount)
}
