// Package orders exposes order tracking: lookups, waiting estimates and the
// signed-in user's history.
package orders

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/cafe-cart/internal/cafeapi"
	"github.com/noah-isme/cafe-cart/internal/common"
)

// maxPageSize caps the history page size a client may ask for.
const maxPageSize = 100

// API is the part of the café API needed for tracking.
type API interface {
	Order(ctx context.Context, id int64) cafeapi.Result[cafeapi.Order]
	OrderByNumber(ctx context.Context, number string) cafeapi.Result[cafeapi.Order]
	EstimateNow(ctx context.Context) cafeapi.Result[cafeapi.Estimate]
	Estimate(ctx context.Context, id int64) cafeapi.Result[cafeapi.Estimate]
	Orders(ctx context.Context, page, size int, token string) cafeapi.Result[cafeapi.OrderPage]
}

type Handler struct {
	API API
	// RequireAuth guards the history route.
	RequireAuth func(http.Handler) http.Handler
}

// Routes mounts the tracking endpoints under /api/v1/orders.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/estimate", h.EstimateNow)
	r.Get("/by-number/{number}", h.ByNumber)
	r.Get("/{id}", h.Get)
	r.Get("/{id}/estimate", h.Estimate)
	if h.RequireAuth != nil {
		r.With(h.RequireAuth).Get("/", h.History)
	} else {
		r.Get("/", h.History)
	}
}

// Get handles GET /api/v1/orders/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	respond(w, h.API.Order(r.Context(), id))
}

// ByNumber handles GET /api/v1/orders/by-number/{number}.
func (h *Handler) ByNumber(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	number := strings.TrimSpace(chi.URLParam(r, "number"))
	if number == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "order number required", nil)
		return
	}
	respond(w, h.API.OrderByNumber(r.Context(), number))
}

// EstimateNow handles GET /api/v1/orders/estimate.
func (h *Handler) EstimateNow(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	respond(w, h.API.EstimateNow(r.Context()))
}

// Estimate handles GET /api/v1/orders/{id}/estimate.
func (h *Handler) Estimate(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	respond(w, h.API.Estimate(r.Context(), id))
}

// History handles GET /api/v1/orders?page=&size=.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	token, ok := common.Token(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	page, size := common.ParsePagination(r, cafeapi.OrderHistoryPageSize, maxPageSize)
	res, err := h.API.Orders(r.Context(), page, size, token).Unwrap()
	if err != nil {
		common.WriteError(w, cafeapi.ToAppError(err))
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       res.Items,
		"pagination": common.Pagination{Page: res.Page, Size: res.Size, TotalPages: res.Pages},
	})
}

func (h *Handler) ready(w http.ResponseWriter) bool {
	if h.API == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order api not configured", nil)
		return false
	}
	return true
}

func respond[T any](w http.ResponseWriter, res cafeapi.Result[T]) {
	v, err := res.Unwrap()
	if err != nil {
		common.WriteError(w, cafeapi.ToAppError(err))
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": v})
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return 0, false
	}
	return id, true
}
