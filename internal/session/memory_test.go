package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRegistry_RegisterMintsFreshIDs(t *testing.T) {
	r := NewMemoryRegistry(3, 30*time.Minute)
	ctx := context.Background()

	first, err := r.Register(ctx, "alice")
	require.NoError(t, err)
	second, err := r.Register(ctx, "alice")
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
}

func TestMemoryRegistry_EvictsOldestBeyondLimit(t *testing.T) {
	r := NewMemoryRegistry(3, 30*time.Minute)
	ctx := context.Background()

	base := time.Now()
	clock := base
	r.now = func() time.Time { return clock }

	var ids []string
	for i := 0; i < 4; i++ {
		clock = base.Add(time.Duration(i) * time.Minute)
		sess, err := r.Register(ctx, "alice")
		require.NoError(t, err)
		ids = append(ids, sess.ID)
	}

	// The fourth registration evicts exactly the oldest of the prior three.
	_, err := r.Touch(ctx, ids[0])
	assert.ErrorIs(t, err, ErrNotFound)

	active, err := r.Active(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, active, 3)
	assert.Equal(t, ids[1], active[0].ID)
	assert.Equal(t, ids[2], active[1].ID)
	assert.Equal(t, ids[3], active[2].ID)
}

func TestMemoryRegistry_EvictionIsCreationOrderNotActivity(t *testing.T) {
	r := NewMemoryRegistry(2, 30*time.Minute)
	ctx := context.Background()

	base := time.Now()
	clock := base
	r.now = func() time.Time { return clock }

	first, err := r.Register(ctx, "alice")
	require.NoError(t, err)
	clock = base.Add(time.Minute)
	second, err := r.Register(ctx, "alice")
	require.NoError(t, err)

	// Recent activity on the oldest session does not save it.
	clock = base.Add(2 * time.Minute)
	_, err = r.Touch(ctx, first.ID)
	require.NoError(t, err)

	clock = base.Add(3 * time.Minute)
	_, err = r.Register(ctx, "alice")
	require.NoError(t, err)

	_, err = r.Touch(ctx, first.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = r.Touch(ctx, second.ID)
	assert.NoError(t, err)
}

func TestMemoryRegistry_IdleExpiry(t *testing.T) {
	r := NewMemoryRegistry(3, 30*time.Minute)
	ctx := context.Background()

	base := time.Now()
	clock := base
	r.now = func() time.Time { return clock }

	sess, err := r.Register(ctx, "alice")
	require.NoError(t, err)

	// Activity inside the window keeps the session alive and resets it.
	clock = base.Add(29 * time.Minute)
	_, err = r.Touch(ctx, sess.ID)
	require.NoError(t, err)

	clock = clock.Add(29 * time.Minute)
	_, err = r.Touch(ctx, sess.ID)
	require.NoError(t, err)

	// Thirty idle minutes kill it.
	clock = clock.Add(30 * time.Minute)
	_, err = r.Touch(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryRegistry_ActivePrunesExpired(t *testing.T) {
	r := NewMemoryRegistry(3, 30*time.Minute)
	ctx := context.Background()

	base := time.Now()
	clock := base
	r.now = func() time.Time { return clock }

	_, err := r.Register(ctx, "alice")
	require.NoError(t, err)
	clock = base.Add(10 * time.Minute)
	fresh, err := r.Register(ctx, "alice")
	require.NoError(t, err)

	clock = base.Add(35 * time.Minute)
	active, err := r.Active(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, fresh.ID, active[0].ID)
}

func TestMemoryRegistry_RevokeIsIdempotent(t *testing.T) {
	r := NewMemoryRegistry(3, 30*time.Minute)
	ctx := context.Background()

	sess, err := r.Register(ctx, "alice")
	require.NoError(t, err)

	require.NoError(t, r.Revoke(ctx, sess.ID))
	require.NoError(t, r.Revoke(ctx, sess.ID))

	_, err = r.Touch(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryRegistry_UsersAreIsolated(t *testing.T) {
	r := NewMemoryRegistry(1, 30*time.Minute)
	ctx := context.Background()

	aliceSess, err := r.Register(ctx, "alice")
	require.NoError(t, err)
	_, err = r.Register(ctx, "bob")
	require.NoError(t, err)

	// Bob reaching his limit never evicts Alice.
	_, err = r.Touch(ctx, aliceSess.ID)
	assert.NoError(t, err)
}

func TestMemoryRegistry_ConcurrentRegistrations(t *testing.T) {
	r := NewMemoryRegistry(3, 30*time.Minute)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Register(ctx, "alice")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	active, err := r.Active(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, active, 3)
}
