package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRegistry is the in-process Registry. All mutation happens under one
// mutex, so concurrent logins for the same account cannot double-evict or
// lose a registration.
type MemoryRegistry struct {
	mu          sync.Mutex
	sessions    map[string]*Session
	byUser      map[string]map[string]struct{}
	maxPerUser  int
	idleTimeout time.Duration
	now         func() time.Time
}

// NewMemoryRegistry builds an empty registry.
func NewMemoryRegistry(maxPerUser int, idleTimeout time.Duration) *MemoryRegistry {
	if maxPerUser <= 0 {
		maxPerUser = 3
	}
	if idleTimeout <= 0 {
		idleTimeout = 30 * time.Minute
	}
	return &MemoryRegistry{
		sessions:    make(map[string]*Session),
		byUser:      make(map[string]map[string]struct{}),
		maxPerUser:  maxPerUser,
		idleTimeout: idleTimeout,
		now:         time.Now,
	}
}

// Register implements Registry.
func (r *MemoryRegistry) Register(_ context.Context, username string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.pruneLocked(username, now)

	sess := &Session{
		ID:        uuid.NewString(),
		Username:  username,
		CreatedAt: now,
		LastSeen:  now,
	}
	r.sessions[sess.ID] = sess
	if r.byUser[username] == nil {
		r.byUser[username] = make(map[string]struct{})
	}
	r.byUser[username][sess.ID] = struct{}{}

	for len(r.byUser[username]) > r.maxPerUser {
		r.removeLocked(r.oldestLocked(username))
	}
	return sess, nil
}

// Touch implements Registry.
func (r *MemoryRegistry) Touch(_ context.Context, sessionID string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	now := r.now()
	if now.Sub(sess.LastSeen) >= r.idleTimeout {
		r.removeLocked(sessionID)
		return nil, ErrNotFound
	}
	sess.LastSeen = now
	copied := *sess
	return &copied, nil
}

// Revoke implements Registry.
func (r *MemoryRegistry) Revoke(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(sessionID)
	return nil
}

// Active implements Registry.
func (r *MemoryRegistry) Active(_ context.Context, username string) ([]Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pruneLocked(username, r.now())

	out := make([]Session, 0, len(r.byUser[username]))
	for id := range r.byUser[username] {
		out = append(out, *r.sessions[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRegistry) pruneLocked(username string, now time.Time) {
	for id := range r.byUser[username] {
		if sess := r.sessions[id]; sess == nil || now.Sub(sess.LastSeen) >= r.idleTimeout {
			r.removeLocked(id)
		}
	}
}

func (r *MemoryRegistry) oldestLocked(username string) string {
	oldestID := ""
	var oldest time.Time
	for id := range r.byUser[username] {
		sess := r.sessions[id]
		if oldestID == "" || sess.CreatedAt.Before(oldest) {
			oldestID = id
			oldest = sess.CreatedAt
		}
	}
	return oldestID
}

func (r *MemoryRegistry) removeLocked(sessionID string) {
	sess, ok := r.sessions[sessionID]
	if !ok {
		return
	}
	delete(r.sessions, sessionID)
	if ids := r.byUser[sess.Username]; ids != nil {
		delete(ids, sessionID)
		if len(ids) == 0 {
			delete(r.byUser, sess.Username)
		}
	}
}
