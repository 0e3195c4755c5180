package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/cafe-cart/internal/health"
	"github.com/noah-isme/cafe-cart/internal/resilience"
)

type stubChecker struct {
	redisErr error
}

func (s stubChecker) PingRedis(_ context.Context, _ time.Duration) error {
	return s.redisErr
}

type stubUpstream struct{ state resilience.State }

func (s stubUpstream) State() resilience.State { return s.state }

func ready(t *testing.T, h health.Handler) (int, map[string]string) {
	t.Helper()
	rr := httptest.NewRecorder()
	h.Ready(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	var status map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &status))
	return rr.Code, status
}

func TestLive(t *testing.T) {
	rr := httptest.NewRecorder()
	health.Handler{}.Live(rr, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "ok", rr.Body.String())
}

func TestReadySuccess(t *testing.T) {
	code, status := ready(t, health.Handler{Checker: stubChecker{}, Upstream: stubUpstream{state: resilience.HalfOpen}})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "ok", status["redis"])
	require.Equal(t, "half_open", status["cafe_api"])
}

func TestReadyFailures(t *testing.T) {
	code, status := ready(t, health.Handler{Checker: stubChecker{redisErr: errors.New("redis down")}, Upstream: stubUpstream{}})
	require.Equal(t, http.StatusServiceUnavailable, code)
	require.Equal(t, "redis down", status["redis"])

	code, status = ready(t, health.Handler{Checker: stubChecker{}, Upstream: stubUpstream{state: resilience.Open}})
	require.Equal(t, http.StatusServiceUnavailable, code)
	require.Equal(t, "open", status["cafe_api"])
}

func TestReadyWithoutRedis(t *testing.T) {
	code, status := ready(t, health.Handler{Upstream: stubUpstream{}})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "skipped", status["redis"])
}
