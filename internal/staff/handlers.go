// Package staff serves the order desk: open orders, status updates,
// cancellations and the shop-open switch. Every route requires the
// admin.manage permission.
package staff

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/cafe-cart/internal/cafeapi"
	"github.com/noah-isme/cafe-cart/internal/common"
	"github.com/noah-isme/cafe-cart/internal/order"
)

// API is the part of the café API used by the desk.
type API interface {
	AvailableOrders(ctx context.Context, token string) cafeapi.Result[[]cafeapi.Order]
	UpdateOrderStatus(ctx context.Context, id int64, status order.Status, paid bool, token string) cafeapi.Result[cafeapi.Order]
	CancelOrder(ctx context.Context, id int64, token string) cafeapi.Result[bool]
	SetSettings(ctx context.Context, key, value, token string) cafeapi.Result[string]
}

// Menu drops cached menu responses so edits made in the café back office
// show up immediately.
type Menu interface {
	Refresh(ctx context.Context) error
}

type Handler struct {
	API    API
	Menu   Menu
	Logger zerolog.Logger
}

type statusRequest struct {
	Status order.Status `json:"status"`
	Paid   bool         `json:"paid"`
}

type shopRequest struct {
	Open *bool `json:"open"`
}

// Routes mounts the desk endpoints under /api/v1/staff. The caller applies
// the permission middleware.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/orders", h.Available)
	r.Patch("/orders/{id}", h.UpdateStatus)
	r.Delete("/orders/{id}", h.Cancel)
	r.Put("/shop", h.SetShopOpen)
	r.Post("/menu/refresh", h.RefreshMenu)
}

// Available handles GET /api/v1/staff/orders.
func (h *Handler) Available(w http.ResponseWriter, r *http.Request) {
	token, ok := h.token(w, r)
	if !ok {
		return
	}
	rows, err := h.API.AvailableOrders(r.Context(), token).Unwrap()
	if err != nil {
		common.WriteError(w, cafeapi.ToAppError(err))
		return
	}
	if rows == nil {
		rows = []cafeapi.Order{}
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rows})
}

// UpdateStatus handles PATCH /api/v1/staff/orders/{id}.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	token, ok := h.token(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if !req.Status.Valid() {
		common.JSONError(w, http.StatusUnprocessableEntity, "INVALID_STATUS", "status must be waiting or done", nil)
		return
	}
	updated, err := h.API.UpdateOrderStatus(r.Context(), id, req.Status, req.Paid, token).Unwrap()
	if err != nil {
		common.WriteError(w, cafeapi.ToAppError(err))
		return
	}
	h.Logger.Info().Int64("order_id", id).Str("status", string(req.Status)).Bool("paid", req.Paid).Msg("order_status_updated")
	common.JSON(w, http.StatusOK, map[string]any{"data": updated})
}

// Cancel handles DELETE /api/v1/staff/orders/{id}.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	token, ok := h.token(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if _, err := h.API.CancelOrder(r.Context(), id, token).Unwrap(); err != nil {
		common.WriteError(w, cafeapi.ToAppError(err))
		return
	}
	h.Logger.Info().Int64("order_id", id).Msg("order_cancelled")
	w.WriteHeader(http.StatusNoContent)
}

// SetShopOpen handles PUT /api/v1/staff/shop.
func (h *Handler) SetShopOpen(w http.ResponseWriter, r *http.Request) {
	token, ok := h.token(w, r)
	if !ok {
		return
	}
	var req shopRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Open == nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "open is required", nil)
		return
	}
	value := "0"
	if *req.Open {
		value = "1"
	}
	if _, err := h.API.SetSettings(r.Context(), cafeapi.SettingShopOpen, value, token).Unwrap(); err != nil {
		common.WriteError(w, cafeapi.ToAppError(err))
		return
	}
	h.Logger.Info().Bool("open", *req.Open).Msg("shop_state_changed")
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]bool{"open": *req.Open}})
}

// RefreshMenu handles POST /api/v1/staff/menu/refresh.
func (h *Handler) RefreshMenu(w http.ResponseWriter, r *http.Request) {
	if h.Menu == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "menu cache not configured", nil)
		return
	}
	if err := h.Menu.Refresh(r.Context()); err != nil {
		h.Logger.Warn().Err(err).Msg("menu_cache_flush_failed")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "menu cache flush failed", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) token(w http.ResponseWriter, r *http.Request) (string, bool) {
	if h.API == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "staff api not configured", nil)
		return "", false
	}
	token, ok := common.Token(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return "", false
	}
	return token, true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return 0, false
	}
	return id, true
}
