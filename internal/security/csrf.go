package security

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/noah-isme/cafe-cart/internal/common"
)

// CSRF protects requests authenticated by the access cookie using the
// double-submit technique. Bearer requests and requests without the access
// cookie are not cookie-authenticated and pass through.
type CSRF struct {
	Header       string
	AccessCookie string
}

// Middleware enforces that unsafe requests carry a CSRF header matching its cookie.
func (c CSRF) Middleware(next http.Handler) http.Handler {
	headerName := strings.TrimSpace(c.Header)
	if headerName == "" {
		headerName = "X-CSRF-Token"
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
			next.ServeHTTP(w, r)
			return
		}
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(r.Header.Get("Authorization"))), "bearer ") {
			next.ServeHTTP(w, r)
			return
		}
		if c.AccessCookie != "" {
			if _, err := r.Cookie(c.AccessCookie); err != nil {
				next.ServeHTTP(w, r)
				return
			}
		}

		token := strings.TrimSpace(r.Header.Get(headerName))
		cookie, err := r.Cookie(headerName)
		if token == "" || err != nil || strings.TrimSpace(cookie.Value) == "" {
			common.JSONError(w, http.StatusForbidden, "CSRF", "missing csrf token", nil)
			return
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(cookie.Value)) != 1 {
			common.JSONError(w, http.StatusForbidden, "CSRF", "invalid csrf token", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
