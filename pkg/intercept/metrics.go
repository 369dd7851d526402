package intercept

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Request outcomes recorded by the router.
const (
	outcomeOutOfScope = "out_of_scope"
	outcomeContinued  = "continued"
	outcomeRedirected = "redirected"
)

// Metrics counts intercepted requests.
type Metrics struct {
	registry *prometheus.Registry

	// RequestsTotal tracks every routed request by resource type and outcome
	RequestsTotal *prometheus.CounterVec

	// RedirectsTotal tracks redirects by app hostname
	RedirectsTotal *prometheus.CounterVec
}

// NewMetrics creates the router metrics on their own registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authlock_requests_total",
				Help: "Intercepted requests by resource type and outcome",
			},
			[]string{"resource_type", "outcome"},
		),
		RedirectsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authlock_redirects_total",
				Help: "Requests redirected to the locked account by app",
			},
			[]string{"app"},
		),
	}
	m.registry.MustRegister(m.RequestsTotal, m.RedirectsTotal)
	return m
}

// Handler serves the metrics in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) observe(resourceType, outcome, app string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(resourceType, outcome).Inc()
	if outcome == outcomeRedirected {
		m.RedirectsTotal.WithLabelValues(app).Inc()
	}
}
