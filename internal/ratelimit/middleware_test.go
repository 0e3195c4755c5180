package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func limited(limiter Allower) http.Handler {
	handler := Handler{
		Limiter: limiter,
		Config:  Config{Key: ClientKey, Window: time.Minute, Max: 1},
	}
	return handler.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestHandlerMiddlewareEnforcesLimit(t *testing.T) {
	client, _ := newRedis(t)
	fixed, err := NewFixed(client, "rl-fixed")
	require.NoError(t, err)

	for name, limiter := range map[string]Allower{
		"sliding": Sliding{Client: client, Prefix: "rl:"},
		"fixed":   fixed,
	} {
		t.Run(name, func(t *testing.T) {
			h := limited(limiter)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", nil)
			req.RemoteAddr = "10.1.2.3:5555"

			rr1 := httptest.NewRecorder()
			h.ServeHTTP(rr1, req.Clone(req.Context()))
			require.Equal(t, http.StatusOK, rr1.Code)

			rr2 := httptest.NewRecorder()
			h.ServeHTTP(rr2, req.Clone(req.Context()))
			require.Equal(t, http.StatusTooManyRequests, rr2.Code)
			require.Equal(t, "1", rr2.Header().Get("X-RateLimit-Limit"))
			require.Contains(t, rr2.Body.String(), "RATE_LIMITED")

			other := req.Clone(req.Context())
			other.RemoteAddr = "10.9.9.9:5555"
			rr3 := httptest.NewRecorder()
			h.ServeHTTP(rr3, other)
			require.Equal(t, http.StatusOK, rr3.Code)
		})
	}
}

func TestHandlerMiddlewareOnError(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { _ = client.Close() })
	called := false
	handler := Handler{
		Limiter: Sliding{Client: client, Prefix: "ratelimit:"},
		Config:  Config{Key: func(*http.Request) string { return "err" }, Window: time.Second, Max: 1},
		OnError: func(error) { called = true },
	}

	h := handler.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/test", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, called)
}
