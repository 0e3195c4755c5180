package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CartMutationsTotal counts cart mutations by operation.
	CartMutationsTotal *prometheus.CounterVec
	// CartPersistFailuresTotal counts write-through failures by persistence backend.
	CartPersistFailuresTotal *prometheus.CounterVec
	// CheckoutTotal counts checkout attempts by outcome.
	CheckoutTotal *prometheus.CounterVec
	// CartSessionsIssued counts cart session ids minted for clients that sent none.
	CartSessionsIssued prometheus.Counter
	// CafeAPIRequestLatency records café API call latency in milliseconds.
	CafeAPIRequestLatency *prometheus.HistogramVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CartMutationsTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_mutations_total",
			Help:      "Count of cart mutations by operation.",
		}, []string{"op"}))
		CartPersistFailuresTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_persist_failures_total",
			Help:      "Count of failed cart snapshot writes by backend.",
		}, []string{"backend"}))
		CheckoutTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_total",
			Help:      "Count of checkout attempts by result.",
		}, []string{"result"}))
		CartSessionsIssued = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_sessions_issued_total",
			Help:      "Cart session ids minted by the server.",
		}))
		CafeAPIRequestLatency = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cafe_api_request_duration_ms",
			Help:      "Latency of café API calls in milliseconds.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"endpoint", "result"}))
	})
}

// ObserveCheckout increments the checkout counter when domain metrics are registered.
func ObserveCheckout(result string) {
	if CheckoutTotal != nil {
		CheckoutTotal.WithLabelValues(result).Inc()
	}
}


// ObserveSessionIssued counts a freshly minted cart session.
func ObserveSessionIssued() {
	if CartSessionsIssued != nil {
		CartSessionsIssued.Inc()
	}
}
