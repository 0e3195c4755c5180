package catalog

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/cafe-cart/internal/cafeapi"
	"github.com/noah-isme/cafe-cart/internal/common"
)

// Handler exposes the public menu endpoints.
type Handler struct {
	service *Service
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service *Service
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{service: cfg.Service}
}

// Routes mounts the menu endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/categories", h.Categories)
	r.Get("/items", h.Items)
	r.Get("/items/{id}", h.Item)
	r.Get("/ads", h.Ads)
	r.Get("/open", h.ShopOpen)
}

// Categories handles GET /api/v1/menu/categories.
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	rows, err := h.service.Categories(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rows})
}

// Items handles GET /api/v1/menu/items with an optional category filter.
func (h *Handler) Items(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	var category *int64
	if raw := strings.TrimSpace(r.URL.Query().Get("category")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid category", nil)
			return
		}
		category = &id
	}
	rows, err := h.service.Items(r.Context(), category)
	if err != nil {
		WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rows})
}

// Item handles GET /api/v1/menu/items/{id}.
func (h *Handler) Item(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid item id", nil)
		return
	}
	item, err := h.service.Item(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": item})
}

// Ads handles GET /api/v1/menu/ads.
func (h *Handler) Ads(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	ads, err := h.service.Ads(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": ads})
}

// ShopOpen handles GET /api/v1/menu/open.
func (h *Handler) ShopOpen(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	open, err := h.service.ShopOpen(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]bool{"open": open}})
}

// WriteError renders catalog and café API errors.
func WriteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrSoldOut):
		common.JSONError(w, http.StatusConflict, "SOLD_OUT", err.Error(), nil)
	case errors.Is(err, ErrUnknownOption), errors.Is(err, ErrConflictingOptions):
		common.JSONError(w, http.StatusUnprocessableEntity, "INVALID_OPTIONS", err.Error(), nil)
	default:
		common.WriteError(w, cafeapi.ToAppError(err))
	}
}
