package health

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/noah-isme/cafe-cart/internal/common"
	"github.com/noah-isme/cafe-cart/internal/resilience"
)

var ready atomic.Bool

func init() {
	ready.Store(true)
}

// SetReady flips readiness; the server clears it while draining on shutdown.
func SetReady(v bool) {
	ready.Store(v)
}

// Checker probes the cart store.
type Checker interface {
	PingRedis(ctx context.Context, timeout time.Duration) error
}

// Upstream reports the breaker state guarding the café API.
type Upstream interface {
	State() resilience.State
}

// Handler exposes HTTP handlers for health endpoints.
type Handler struct {
	Checker      Checker
	Upstream     Upstream
	RedisTimeout time.Duration
}

// Live reports liveness status.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready reports readiness. An open breaker on the café API makes the gateway
// unready; a half-open one does not.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if !ready.Load() {
		common.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "draining"})
		return
	}
	status := map[string]string{"redis": "skipped", "cafe_api": "unknown"}
	ok := true
	if h.Checker != nil {
		status["redis"] = "ok"
		if err := h.Checker.PingRedis(r.Context(), h.redisTimeout()); err != nil {
			status["redis"] = err.Error()
			ok = false
		}
	}
	if h.Upstream != nil {
		state := h.Upstream.State()
		status["cafe_api"] = state.String()
		if state == resilience.Open {
			ok = false
		}
	}
	code := http.StatusOK
	if !ok {
		code = http.StatusServiceUnavailable
	}
	common.JSON(w, code, status)
}

func (h Handler) redisTimeout() time.Duration {
	if h.RedisTimeout <= 0 {
		return 300 * time.Millisecond
	}
	return h.RedisTimeout
}
