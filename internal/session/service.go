// Package session owns one cart per browser session on the gateway: it
// hydrates the cart from its backend, serialises mutations with a per-session
// lock and exposes the cart over HTTP.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/cafe-cart/internal/cart"
)

// Backend hands out a persister for one session.
type Backend interface {
	ForSession(ctx context.Context, sessionID string) cart.Persister
	Backend() string
}

// Locker serialises work on a key.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// ItemResolver prices a chosen item configuration.
type ItemResolver interface {
	Resolve(ctx context.Context, itemTypeID int64, optionIDs []int64, quantity int) (cart.AddItemInput, error)
}

// Service opens and mutates session carts.
type Service struct {
	backend Backend
	locker  Locker
	items   ItemResolver
	logger  zerolog.Logger
	lockTTL time.Duration
}

// ServiceConfig groups Service dependencies. Locker may be nil when a single
// process owns every session.
type ServiceConfig struct {
	Backend Backend
	Locker  Locker
	Items   ItemResolver
	Logger  zerolog.Logger
	LockTTL time.Duration
}

// NewService validates cfg and builds a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Backend == nil {
		return nil, errors.New("session: backend is required")
	}
	ttl := cfg.LockTTL
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &Service{
		backend: cfg.Backend,
		locker:  cfg.Locker,
		items:   cfg.Items,
		logger:  cfg.Logger,
		lockTTL: ttl,
	}, nil
}

// Open hydrates the session's cart for reading. Mutations made on the
// returned store outside Mutate are not serialised against other requests.
func (s *Service) Open(ctx context.Context, sessionID string) *cart.Store {
	return cart.NewStore(s.backend.ForSession(ctx, sessionID),
		cart.WithLogger(s.logger.With().Str("cart_session", sessionID).Logger()),
		cart.WithBackend(s.backend.Backend()),
	)
}

// Mutate runs fn on the session's cart while holding the session lock. The
// store persists each mutation itself; fn returning an error does not roll
// back mutations it already made.
func (s *Service) Mutate(ctx context.Context, sessionID string, fn func(*cart.Store) error) (*cart.Store, error) {
	var store *cart.Store
	run := func(ctx context.Context) error {
		store = s.Open(ctx, sessionID)
		return fn(store)
	}
	if s.locker == nil {
		err := run(ctx)
		return store, err
	}
	err := s.locker.WithLock(ctx, sessionID, s.lockTTL, run)
	return store, err
}

// AddConfigured prices the configuration through the catalog and adds it to
// the session's cart. The catalog is consulted before the lock is taken.
func (s *Service) AddConfigured(ctx context.Context, sessionID string, itemTypeID int64, optionIDs []int64, quantity int) (*cart.Store, error) {
	if s.items == nil {
		return nil, errors.New("session: item resolver not configured")
	}
	in, err := s.items.Resolve(ctx, itemTypeID, optionIDs, quantity)
	if err != nil {
		return nil, err
	}
	return s.Mutate(ctx, sessionID, func(store *cart.Store) error {
		store.AddItem(in)
		return nil
	})
}
