package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/noah-isme/cafe-cart/internal/cafeapi"
	"github.com/noah-isme/cafe-cart/internal/common"
)

// Account is the café API surface behind the account endpoints.
type Account interface {
	Profiles
	LoginRedirectTarget(ctx context.Context, redirect string) cafeapi.Result[cafeapi.LoginRedirect]
	MeCanOrder(ctx context.Context, token string) cafeapi.Result[cafeapi.CanOrder]
	DeleteMe(ctx context.Context, token string) cafeapi.Result[bool]
}

// Handler exposes sign-in and account endpoints. Sign-in itself happens at
// the café's identity provider; the gateway only hands out the redirect.
type Handler struct {
	API        Account
	Middleware Middleware
}

// Login handles GET /api/v1/auth/login?redirect=.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	redirect := strings.TrimSpace(r.URL.Query().Get("redirect"))
	if redirect == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "redirect is required", nil)
		return
	}
	target, err := h.API.LoginRedirectTarget(r.Context(), redirect).Unwrap()
	if err != nil {
		common.WriteError(w, cafeapi.ToAppError(err))
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": target})
}

// Me handles GET /api/v1/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	_, user, err := h.Middleware.CurrentUser(r.Context())
	if err != nil {
		writeProfileError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": user})
}

// CanOrder handles GET /api/v1/me/can-order.
func (h *Handler) CanOrder(w http.ResponseWriter, r *http.Request) {
	token, _ := common.Token(r.Context())
	res, err := h.API.MeCanOrder(r.Context(), token).Unwrap()
	if err != nil {
		common.WriteError(w, cafeapi.ToAppError(err))
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": res})
}

// DeleteMe handles DELETE /api/v1/me.
func (h *Handler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	token, _ := common.Token(r.Context())
	if _, err := h.API.DeleteMe(r.Context(), token).Unwrap(); err != nil {
		common.WriteError(w, cafeapi.ToAppError(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
