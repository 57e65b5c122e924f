package session

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "session:"
	userZSetPrefix   = "user_sessions:"
)

// RedisRegistry stores sessions in Redis: one hash per session with the idle
// timeout as its TTL, plus a per-user sorted set scored by creation time for
// oldest-first eviction. Expiry is enforced by Redis itself; the sorted set
// is reconciled lazily when its members no longer resolve.
type RedisRegistry struct {
	client      *redis.Client
	maxPerUser  int
	idleTimeout time.Duration
}

// NewRedisRegistry builds a registry over an existing client.
func NewRedisRegistry(client *redis.Client, maxPerUser int, idleTimeout time.Duration) *RedisRegistry {
	if maxPerUser <= 0 {
		maxPerUser = 3
	}
	if idleTimeout <= 0 {
		idleTimeout = 30 * time.Minute
	}
	return &RedisRegistry{client: client, maxPerUser: maxPerUser, idleTimeout: idleTimeout}
}

// Register implements Registry.
func (r *RedisRegistry) Register(ctx context.Context, username string) (*Session, error) {
	now := time.Now()
	sess := &Session{
		ID:        uuid.NewString(),
		Username:  username,
		CreatedAt: now,
		LastSeen:  now,
	}

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, sessionKeyPrefix+sess.ID,
		"username", username,
		"created_at", strconv.FormatInt(now.UnixNano(), 10),
		"last_seen", strconv.FormatInt(now.UnixNano(), 10),
	)
	pipe.Expire(ctx, sessionKeyPrefix+sess.ID, r.idleTimeout)
	pipe.ZAdd(ctx, userZSetPrefix+username, redis.Z{Score: float64(now.UnixNano()), Member: sess.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	if err := r.enforceLimit(ctx, username); err != nil {
		return nil, err
	}
	return sess, nil
}

// Touch implements Registry.
func (r *RedisRegistry) Touch(ctx context.Context, sessionID string) (*Session, error) {
	fields, err := r.client.HGetAll(ctx, sessionKeyPrefix+sessionID).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}

	now := time.Now()
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, sessionKeyPrefix+sessionID, "last_seen", strconv.FormatInt(now.UnixNano(), 10))
	pipe.Expire(ctx, sessionKeyPrefix+sessionID, r.idleTimeout)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	return &Session{
		ID:        sessionID,
		Username:  fields["username"],
		CreatedAt: parseUnixNano(fields["created_at"]),
		LastSeen:  now,
	}, nil
}

// Revoke implements Registry.
func (r *RedisRegistry) Revoke(ctx context.Context, sessionID string) error {
	username, err := r.client.HGet(ctx, sessionKeyPrefix+sessionID, "username").Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, sessionKeyPrefix+sessionID)
	pipe.ZRem(ctx, userZSetPrefix+username, sessionID)
	_, err = pipe.Exec(ctx)
	return err
}

// Active implements Registry.
func (r *RedisRegistry) Active(ctx context.Context, username string) ([]Session, error) {
	ids, err := r.client.ZRange(ctx, userZSetPrefix+username, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	out := make([]Session, 0, len(ids))
	for _, id := range ids {
		fields, err := r.client.HGetAll(ctx, sessionKeyPrefix+id).Result()
		if err != nil {
			return nil, err
		}
		if len(fields) == 0 {
			// TTL already reaped the hash; drop the stale index entry.
			_ = r.client.ZRem(ctx, userZSetPrefix+username, id).Err()
			continue
		}
		out = append(out, Session{
			ID:        id,
			Username:  fields["username"],
			CreatedAt: parseUnixNano(fields["created_at"]),
			LastSeen:  parseUnixNano(fields["last_seen"]),
		})
	}
	return out, nil
}

func (r *RedisRegistry) enforceLimit(ctx context.Context, username string) error {
	for {
		live, err := r.Active(ctx, username)
		if err != nil {
			return err
		}
		if len(live) <= r.maxPerUser {
			return nil
		}
		oldest := live[0]
		pipe := r.client.TxPipeline()
		pipe.Del(ctx, sessionKeyPrefix+oldest.ID)
		pipe.ZRem(ctx, userZSetPrefix+username, oldest.ID)
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
	}
}

func parseUnixNano(raw string) time.Time {
	nanos, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(0, nanos)
}
