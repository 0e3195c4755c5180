package security

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func csrfRequest(cookies map[string]string, header string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil)
	for name, value := range cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}
	if header != "" {
		req.Header.Set("X-CSRF-Token", header)
	}
	return req
}

func TestCSRFMiddleware(t *testing.T) {
	handler := CSRF{AccessCookie: "cafe_access"}.Middleware(okHandler())
	serve := func(req *http.Request) int {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	require.Equal(t, http.StatusOK, serve(csrfRequest(nil, "")), "no access cookie means no cookie auth")
	require.Equal(t, http.StatusForbidden, serve(csrfRequest(map[string]string{"cafe_access": "t"}, "")))
	require.Equal(t, http.StatusForbidden, serve(csrfRequest(map[string]string{"cafe_access": "t", "X-CSRF-Token": "a"}, "b")))
	require.Equal(t, http.StatusOK, serve(csrfRequest(map[string]string{"cafe_access": "t", "X-CSRF-Token": "a"}, "a")))

	bearer := csrfRequest(map[string]string{"cafe_access": "t"}, "")
	bearer.Header.Set("Authorization", "Bearer abc.def")
	require.Equal(t, http.StatusOK, serve(bearer))

	get := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	get.AddCookie(&http.Cookie{Name: "cafe_access", Value: "t"})
	require.Equal(t, http.StatusOK, serve(get))
}
