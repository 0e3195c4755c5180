package cartstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/cafe-cart/internal/cart"
)

// Redis keeps one cart snapshot per session under <Prefix>cart:<session>.
// Each save refreshes the TTL, so idle carts expire.
type Redis struct {
	Client redis.Cmdable
	TTL    time.Duration
	Prefix string
}

// Backend names the persistence backend for metrics and logs.
func (r Redis) Backend() string { return "redis" }

// Key returns the Redis key holding the session's snapshot.
func (r Redis) Key(sessionID string) string {
	return r.Prefix + "cart:" + sessionID
}

// ForSession returns a persister bound to one session and request context.
func (r Redis) ForSession(ctx context.Context, sessionID string) cart.Persister {
	return &redisSession{ctx: ctx, store: r, key: r.Key(sessionID)}
}

// Delete drops a session's snapshot.
func (r Redis) Delete(ctx context.Context, sessionID string) error {
	if r.Client == nil {
		return ErrNotConfigured
	}
	return r.Client.Del(ctx, r.Key(sessionID)).Err()
}

type redisSession struct {
	ctx   context.Context
	store Redis
	key   string
}

func (s *redisSession) Load() (cart.Snapshot, bool, error) {
	if s.store.Client == nil {
		return cart.Snapshot{}, false, ErrNotConfigured
	}
	data, err := s.store.Client.Get(s.ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return cart.Snapshot{}, false, nil
	}
	if err != nil {
		return cart.Snapshot{}, false, err
	}
	snap, err := cart.DecodeSnapshot(data)
	if err != nil {
		return cart.Snapshot{}, false, err
	}
	return snap, true, nil
}

func (s *redisSession) Save(snap cart.Snapshot) error {
	if s.store.Client == nil {
		return ErrNotConfigured
	}
	data, err := snap.Encode()
	if err != nil {
		return err
	}
	return s.store.Client.Set(s.ctx, s.key, data, s.store.TTL).Err()
}
