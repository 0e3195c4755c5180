package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/noah-isme/cafe-cart/internal/cafeapi"
	"github.com/noah-isme/cafe-cart/internal/common"
)

// Staff permissions granted by the café API.
const (
	PermManage = "admin.manage"
	PermCMS    = "admin.cms"
)

// Profiles looks up the signed-in user for a bearer token.
type Profiles interface {
	Me(ctx context.Context, token string) cafeapi.Result[cafeapi.UserSecure]
}

type userKey struct{}

// WithUser stores the resolved profile on the context.
func WithUser(ctx context.Context, u cafeapi.UserSecure) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// UserFrom returns the profile resolved by RequirePermission or CurrentUser.
func UserFrom(ctx context.Context) (cafeapi.UserSecure, bool) {
	u, ok := ctx.Value(userKey{}).(cafeapi.UserSecure)
	return u, ok
}

// Middleware forwards bearer tokens and gates staff routes on permissions
// reported by the café API. Tokens are never validated locally.
type Middleware struct {
	Profiles     Profiles
	AccessCookie string
}

// Authenticate attaches the bearer token to the request context when present.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := m.extractToken(r); token != "" {
			r = r.WithContext(common.WithToken(r.Context(), token))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuth enforces that a bearer token is present.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := m.extractToken(r)
		if token == "" {
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(common.WithToken(r.Context(), token)))
	})
}

// RequirePermission admits only users whose profile carries perm.
func (m Middleware) RequirePermission(perm string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return m.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, user, err := m.CurrentUser(r.Context())
			if err != nil {
				writeProfileError(w, err)
				return
			}
			if !user.HasPermission(perm) {
				common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "insufficient permissions", map[string]string{"required": perm})
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		}))
	}
}

// CurrentUser resolves the profile for the token on ctx, reusing one already
// resolved for this request.
func (m Middleware) CurrentUser(ctx context.Context) (context.Context, cafeapi.UserSecure, error) {
	if u, ok := UserFrom(ctx); ok {
		return ctx, u, nil
	}
	token, ok := common.Token(ctx)
	if !ok {
		return ctx, cafeapi.UserSecure{}, common.NewAppError("UNAUTHORIZED", "missing or invalid token", http.StatusUnauthorized, nil)
	}
	if m.Profiles == nil {
		return ctx, cafeapi.UserSecure{}, common.NewAppError("INTERNAL", "profile lookup not configured", http.StatusInternalServerError, nil)
	}
	user, err := m.Profiles.Me(ctx, token).Unwrap()
	if err != nil {
		return ctx, cafeapi.UserSecure{}, err
	}
	if user.Blocked {
		return ctx, cafeapi.UserSecure{}, common.NewAppError("BLOCKED", "account is blocked", http.StatusForbidden, nil)
	}
	return WithUser(ctx, user), user, nil
}

// HasPermission reports whether the caller holds perm. Lookup failures count as no.
func (m Middleware) HasPermission(ctx context.Context, perm string) (context.Context, bool) {
	ctx, user, err := m.CurrentUser(ctx)
	if err != nil {
		return ctx, false
	}
	return ctx, user.HasPermission(perm)
}

func writeProfileError(w http.ResponseWriter, err error) {
	if apiErr, ok := cafeapi.AsAPIError(err); ok && apiErr.ClientFault() {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
		return
	}
	common.WriteError(w, cafeapi.ToAppError(err))
}

func (m Middleware) extractToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	if m.AccessCookie != "" {
		if cookie, err := r.Cookie(m.AccessCookie); err == nil {
			if value := strings.TrimSpace(cookie.Value); value != "" {
				return value
			}
		}
	}
	return ""
}
