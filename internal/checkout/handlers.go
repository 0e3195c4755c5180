package checkout

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/noah-isme/cafe-cart/internal/cafeapi"
	"github.com/noah-isme/cafe-cart/internal/common"
	"github.com/noah-isme/cafe-cart/internal/lock"
	"github.com/noah-isme/cafe-cart/internal/order"
	"github.com/noah-isme/cafe-cart/internal/session"
)

type Handler struct {
	Svc *Service
}

// Checkout handles POST /api/v1/checkout. The route is expected to run behind
// session.Middleware and auth.Middleware.RequireAuth.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	sessionID, ok := session.IDFrom(r.Context())
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "BAD_SESSION", "cart session required", nil)
		return
	}
	var payload Input
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	out, err := h.Svc.Checkout(r.Context(), sessionID, payload)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": out})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, order.ErrEmptyCart):
		common.JSONError(w, http.StatusConflict, "EMPTY_CART", "cart is empty", nil)
	case errors.Is(err, order.ErrInvalidType):
		common.JSONError(w, http.StatusUnprocessableEntity, "INVALID_ORDER_TYPE", "type must be pickUp or delivery", nil)
	case errors.Is(err, order.ErrOnSiteNameRequired):
		common.JSONError(w, http.StatusUnprocessableEntity, "ON_SITE_NAME_REQUIRED", "on-site orders need a customer name", nil)
	case errors.Is(err, order.ErrInvalidPayload):
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION_FAILED", err.Error(), nil)
	case errors.Is(err, lock.ErrTimeout):
		common.JSONError(w, http.StatusConflict, "CART_BUSY", "cart is busy, retry", nil)
	default:
		common.WriteError(w, cafeapi.ToAppError(err))
	}
}
