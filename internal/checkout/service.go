// Package checkout submits the session cart as an order to the café API.
package checkout

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/cafe-cart/internal/auth"
	"github.com/noah-isme/cafe-cart/internal/cafeapi"
	"github.com/noah-isme/cafe-cart/internal/cart"
	"github.com/noah-isme/cafe-cart/internal/common"
	"github.com/noah-isme/cafe-cart/internal/obs"
	"github.com/noah-isme/cafe-cart/internal/order"
)

// Outcomes recorded on the checkout counter.
const (
	ResultOK       = "ok"
	ResultEmpty    = "empty"
	ResultInvalid  = "invalid"
	ResultRejected = "rejected"
	ResultFailed   = "failed"
)

// OrderAPI is the part of the café API used to place orders.
type OrderAPI interface {
	CreateOrder(ctx context.Context, req order.CreateRequest, token string) cafeapi.Result[cafeapi.Order]
	OnSiteEligibility(ctx context.Context, name string) cafeapi.Result[bool]
}

// Sessions runs a function on a locked session cart.
type Sessions interface {
	Mutate(ctx context.Context, sessionID string, fn func(*cart.Store) error) (*cart.Store, error)
}

// Permissions reports whether the caller holds a staff permission.
type Permissions interface {
	HasPermission(ctx context.Context, perm string) (context.Context, bool)
}

// Input is the checkout request body.
type Input struct {
	Type       order.Type `json:"type"`
	OnSiteName string     `json:"onSiteName"`
}

var (
	// ErrStaffOnly is returned when a non-staff caller submits an on-site order.
	ErrStaffOnly = common.NewAppError("FORBIDDEN", "on-site orders require staff permission", http.StatusForbidden, nil)
	// ErrNameUnavailable is returned when the café API refuses the on-site name.
	ErrNameUnavailable = common.NewAppError("ON_SITE_NAME_UNAVAILABLE", "on-site name cannot be used", http.StatusConflict, nil)
)

type Service struct {
	Sessions Sessions
	API      OrderAPI
	Perms    Permissions
	Logger   zerolog.Logger
}

// Checkout builds the order from the session cart and submits it. The cart
// is cleared only when the café API accepts the order; on any failure it is
// left untouched so the customer can retry.
func (s *Service) Checkout(ctx context.Context, sessionID string, in Input) (cafeapi.Order, error) {
	if s == nil || s.Sessions == nil || s.API == nil {
		return cafeapi.Order{}, common.NewAppError("INTERNAL", "checkout service not configured", http.StatusInternalServerError, nil)
	}
	token, ok := common.Token(ctx)
	if !ok {
		return cafeapi.Order{}, common.NewAppError("UNAUTHORIZED", "authentication required", http.StatusUnauthorized, nil)
	}
	logger := s.Logger.With().Str("cart_session", sessionID).Str("order_type", string(in.Type)).Logger()

	var placed cafeapi.Order
	_, err := s.Sessions.Mutate(ctx, sessionID, func(store *cart.Store) error {
		req, err := order.BuildRequest(store, in.Type, in.OnSiteName)
		if err != nil {
			return err
		}
		if req.OnSiteOrder {
			if err := s.checkOnSite(ctx, *req.OnSiteName); err != nil {
				return err
			}
		}
		placed, err = s.API.CreateOrder(ctx, req, token).Unwrap()
		if err != nil {
			return err
		}
		store.Clear()
		return nil
	})
	result := classify(err)
	obs.ObserveCheckout(result)
	if err != nil {
		logger.Info().Err(err).Str("result", result).Msg("checkout_failed")
		return cafeapi.Order{}, err
	}
	logger.Info().Int64("order_id", placed.ID).Str("order_number", placed.Number).Msg("checkout_placed")
	return placed, nil
}

func (s *Service) checkOnSite(ctx context.Context, name string) error {
	if s.Perms == nil {
		return ErrStaffOnly
	}
	if _, ok := s.Perms.HasPermission(ctx, auth.PermManage); !ok {
		return ErrStaffOnly
	}
	name = strings.TrimSpace(name)
	eligible, err := s.API.OnSiteEligibility(ctx, name).Unwrap()
	if err != nil {
		return err
	}
	if !eligible {
		return ErrNameUnavailable.WithDetails(map[string]string{"name": name})
	}
	return nil
}

func classify(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, order.ErrEmptyCart):
		return ResultEmpty
	case errors.Is(err, order.ErrInvalidType), errors.Is(err, order.ErrOnSiteNameRequired), errors.Is(err, order.ErrInvalidPayload):
		return ResultInvalid
	}
	if apiErr, ok := cafeapi.AsAPIError(err); ok && apiErr.ClientFault() {
		return ResultRejected
	}
	var appErr *common.AppError
	if errors.As(err, &appErr) && appErr.HTTPStatus < http.StatusInternalServerError {
		return ResultRejected
	}
	return ResultFailed
}
