package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/cafe-cart/internal/auth"
	"github.com/noah-isme/cafe-cart/internal/cafeapi"
	"github.com/noah-isme/cafe-cart/internal/cart"
	"github.com/noah-isme/cafe-cart/internal/catalog"
	"github.com/noah-isme/cafe-cart/internal/common"
	"github.com/noah-isme/cafe-cart/internal/lock"
	"github.com/noah-isme/cafe-cart/internal/obs"
	"github.com/noah-isme/cafe-cart/internal/quota"
)

// HeaderName carries the cart session id in both directions.
const HeaderName = "X-Cart-Session"

type sessionKey struct{}

// QuotaSource reports today's order usage for the signed-in user.
type QuotaSource interface {
	Quota(ctx context.Context, token string) cafeapi.Result[cafeapi.Quota]
}

// Handler exposes the session cart under /api/v1/cart.
type Handler struct {
	Service  *Service
	Auth     auth.Middleware
	Quota    QuotaSource
	Limits   quota.Limits
	Logger   zerolog.Logger
	validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, mw auth.Middleware, q QuotaSource, limits quota.Limits, logger zerolog.Logger) *Handler {
	return &Handler{
		Service:  svc,
		Auth:     mw,
		Quota:    q,
		Limits:   limits,
		Logger:   logger,
		validate: validator.New(),
	}
}

// Routes mounts the cart endpoints. Every route runs inside Middleware.
func (h *Handler) Routes(r chi.Router) {
	r.Use(Middleware)
	r.Get("/", h.Get)
	r.Delete("/", h.Clear)
	r.Post("/items", h.AddItem)
	r.Patch("/items/{index}", h.ChangeQuantity)
	r.Delete("/items/{index}", h.RemoveEntry)
	r.Put("/mode", h.SetMode)
	r.Put("/delivery-room", h.SetDeliveryRoom)
}

// Middleware resolves the session id from the request header, issuing a new
// one when absent, and echoes it on the response.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(HeaderName))
		if id == "" {
			id = uuid.NewString()
			obs.ObserveSessionIssued()
		} else if _, err := uuid.Parse(id); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_SESSION", "invalid cart session id", nil)
			return
		}
		w.Header().Set(HeaderName, id)
		obs.SetCartSession(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, id)))
	})
}

// IDFrom returns the session id set by Middleware.
func IDFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionKey{}).(string)
	return id, ok && id != ""
}

type addItemRequest struct {
	ItemTypeID int64   `json:"itemTypeId" validate:"required,gt=0"`
	OptionIDs  []int64 `json:"optionIds" validate:"omitempty,max=32,dive,gt=0"`
	Quantity   int     `json:"quantity" validate:"omitempty,min=1,max=99"`
}

type changeQuantityRequest struct {
	Delta int `json:"delta" validate:"min=-99,max=99"`
}

type modeRequest struct {
	OnSite *bool `json:"onSite" validate:"required"`
}

type deliveryRoomRequest struct {
	Room *string `json:"room" validate:"omitempty,max=64"`
}

// EntryView is one cart line as rendered to clients.
type EntryView struct {
	Index             int               `json:"index"`
	ItemTypeID        int64             `json:"itemTypeId"`
	OptionIDs         []int64           `json:"optionIds"`
	Quantity          int               `json:"quantity"`
	UnitBasePrice     decimal.Decimal   `json:"unitBasePrice"`
	UnitSalePercent   decimal.Decimal   `json:"unitSalePercent"`
	OptionPriceDeltas []decimal.Decimal `json:"optionPriceDeltas"`
	LinePreview       decimal.Decimal   `json:"linePreview"`
}

// View is the cart as rendered to clients. Prices are previews only.
type View struct {
	Entries      []EntryView   `json:"entries"`
	TotalItems   int           `json:"totalItems"`
	TotalPreview string        `json:"totalPreview"`
	OnSiteMode   bool          `json:"onSiteMode"`
	DeliveryRoom *string       `json:"deliveryRoom"`
	Quota        *quota.Status `json:"quota,omitempty"`
}

// NewView renders store.
func NewView(store *cart.Store) View {
	entries := store.Entries()
	out := View{
		Entries:      make([]EntryView, 0, len(entries)),
		TotalItems:   store.TotalItems(),
		TotalPreview: store.TotalPricePreview().StringFixed(2),
		OnSiteMode:   store.OnSiteOrderMode(),
		DeliveryRoom: store.DeliveryRoom(),
	}
	for i, e := range entries {
		opts := e.SelectedOptionIDs
		if opts == nil {
			opts = []int64{}
		}
		deltas := e.OptionPriceDeltas
		if deltas == nil {
			deltas = []decimal.Decimal{}
		}
		out.Entries = append(out.Entries, EntryView{
			Index:             i,
			ItemTypeID:        e.ItemTypeID,
			OptionIDs:         opts,
			Quantity:          e.Quantity,
			UnitBasePrice:     e.UnitBasePrice,
			UnitSalePercent:   e.UnitSalePercent,
			OptionPriceDeltas: deltas,
			LinePreview:       cart.LinePreviewPrice(e),
		})
	}
	return out
}

// Get handles GET /api/v1/cart.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, _ := IDFrom(r.Context())
	h.render(w, r, h.Service.Open(r.Context(), id))
}

// AddItem handles POST /api/v1/cart/items.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	id, _ := IDFrom(r.Context())
	store, err := h.Service.AddConfigured(r.Context(), id, req.ItemTypeID, req.OptionIDs, req.Quantity)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.render(w, r, store)
}

// ChangeQuantity handles PATCH /api/v1/cart/items/{index}.
func (h *Handler) ChangeQuantity(w http.ResponseWriter, r *http.Request) {
	index, ok := parseIndex(w, r)
	if !ok {
		return
	}
	var req changeQuantityRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.mutate(w, r, func(s *cart.Store) error {
		s.ChangeQuantity(index, req.Delta)
		return nil
	})
}

// RemoveEntry handles DELETE /api/v1/cart/items/{index}.
func (h *Handler) RemoveEntry(w http.ResponseWriter, r *http.Request) {
	index, ok := parseIndex(w, r)
	if !ok {
		return
	}
	h.mutate(w, r, func(s *cart.Store) error {
		s.RemoveEntry(index)
		return nil
	})
}

// Clear handles DELETE /api/v1/cart.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(s *cart.Store) error {
		s.Clear()
		return nil
	})
}

// SetMode handles PUT /api/v1/cart/mode. Only staff may switch a cart to
// on-site ordering.
func (h *Handler) SetMode(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	if !h.decode(w, r, &req) {
		return
	}
	if *req.OnSite {
		ctx, ok := h.Auth.HasPermission(r.Context(), auth.PermManage)
		if !ok {
			common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "on-site ordering requires staff permission", map[string]string{"required": auth.PermManage})
			return
		}
		r = r.WithContext(ctx)
	}
	h.mutate(w, r, func(s *cart.Store) error {
		s.SetOnSiteOrderMode(*req.OnSite)
		return nil
	})
}

// SetDeliveryRoom handles PUT /api/v1/cart/delivery-room. A blank room clears it.
func (h *Handler) SetDeliveryRoom(w http.ResponseWriter, r *http.Request) {
	var req deliveryRoomRequest
	if !h.decode(w, r, &req) {
		return
	}
	var room *string
	if req.Room != nil {
		if trimmed := strings.TrimSpace(*req.Room); trimmed != "" {
			room = &trimmed
		}
	}
	h.mutate(w, r, func(s *cart.Store) error {
		s.SetDeliveryRoom(room)
		return nil
	})
}

func (h *Handler) mutate(w http.ResponseWriter, r *http.Request, fn func(*cart.Store) error) {
	id, _ := IDFrom(r.Context())
	store, err := h.Service.Mutate(r.Context(), id, fn)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.render(w, r, store)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, store *cart.Store) {
	view := NewView(store)
	view.Quota = h.quotaStatus(r.Context(), store)
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// quotaStatus is best effort: without a token or when the café API fails the
// cart is rendered without it.
func (h *Handler) quotaStatus(ctx context.Context, store *cart.Store) *quota.Status {
	if h.Quota == nil {
		return nil
	}
	token, ok := common.Token(ctx)
	if !ok {
		return nil
	}
	usage, err := h.Quota.Quota(ctx, token).Unwrap()
	if err != nil {
		h.Logger.Debug().Err(err).Msg("quota_lookup_failed")
		return nil
	}
	st := quota.Evaluate(store.TotalItems(), store.OnSiteOrderMode(), h.Limits, quota.Usage{
		OnSiteToday: usage.OnSiteToday,
		OnlineToday: usage.OnlineToday,
	})
	return &st
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return false
	}
	v := h.validate
	if v == nil {
		v = validator.New()
	}
	if err := v.Struct(dst); err != nil {
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION_FAILED", "request validation failed", validationDetails(err))
		return false
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, lock.ErrTimeout) {
		common.JSONError(w, http.StatusConflict, "CART_BUSY", "cart is busy, retry", nil)
		return
	}
	h.Logger.Debug().Err(err).Msg("cart_request_failed")
	catalog.WriteError(w, err)
}

func parseIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid entry index", nil)
		return 0, false
	}
	return index, true
}

func validationDetails(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = fe.Tag()
	}
	return out
}
