// Package lock serialises work on a cart session across gateway replicas.
package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrNotConfigured is returned when no Redis client is set.
	ErrNotConfigured = errors.New("lock: redis client not configured")
	// ErrTimeout is returned when the lock is still held by someone else after MaxWait.
	ErrTimeout = errors.New("lock: timed out waiting for lock")
)

const (
	defaultTTL   = 10 * time.Second
	defaultRetry = 25 * time.Millisecond
)

// Both scripts act only while the key still carries the holder's token.
var (
	unlockScript = redis.NewScript(`if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
end
return 0`)
	extendScript = redis.NewScript(`if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0`)
)

// Locker is a Redis mutex keyed by cart session. The lease is extended while
// the callback runs, so a slow upstream during checkout does not let a second
// request in; it still expires after ttl if the holder dies.
type Locker struct {
	R            redis.Cmdable
	Prefix       string
	RetryBackoff time.Duration
	MaxWait      time.Duration
}

// WithLock runs fn while holding the lock for key and releases it afterwards,
// whatever fn returns.
func (l Locker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error {
	if l.R == nil {
		return ErrNotConfigured
	}
	if fn == nil {
		return errors.New("lock: callback not provided")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	name := l.Prefix + key
	token := uuid.NewString()
	if err := l.acquire(ctx, name, token, ttl); err != nil {
		return err
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		l.keepAlive(name, token, ttl, stop)
	}()
	defer func() {
		close(stop)
		<-done
		l.release(name, token)
	}()
	return fn(ctx)
}

func (l Locker) acquire(ctx context.Context, name, token string, ttl time.Duration) error {
	retry := l.RetryBackoff
	if retry <= 0 {
		retry = defaultRetry
	}
	waitCtx := ctx
	if l.MaxWait > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, l.MaxWait)
		defer cancel()
	}
	ticker := time.NewTicker(retry)
	defer ticker.Stop()
	for {
		ok, err := l.R.SetNX(waitCtx, name, token, ttl).Result()
		switch {
		case err == nil && ok:
			return nil
		case err != nil && waitCtx.Err() == nil:
			return err
		}
		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return ErrTimeout
		case <-ticker.C:
		}
	}
}

// keepAlive pushes the expiry forward at a third of ttl until stop closes or
// the lease is lost.
func (l Locker) keepAlive(name, token string, ttl time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(max(ttl/3, time.Millisecond))
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			n, err := extendScript.Run(ctx, l.R, []string{name}, token, ttl.Milliseconds()).Int()
			cancel()
			if err != nil || n == 0 {
				return
			}
		}
	}
}

func (l Locker) release(name, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = unlockScript.Run(ctx, l.R, []string{name}, token).Err()
}
