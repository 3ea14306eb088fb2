package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels shared by the counters.
const (
	OutcomeOK             = "ok"
	OutcomeInvalid        = "invalid"
	OutcomeUnauthorized   = "unauthorized"
	OutcomeNotProvisioned = "not_provisioned"
	OutcomeError          = "error"
)

// Metrics holds the Prometheus collectors of the bill service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry        *prometheus.Registry
	calculations    *prometheus.CounterVec
	ruleUpdates     *prometheus.CounterVec
	pinChanges      *prometheus.CounterVec
	adminLogins     *prometheus.CounterVec
	ruleFallbacks   prometheus.Counter
	requestDuration *prometheus.HistogramVec
}

// New creates and registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		calculations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bill_calculations_total",
			Help: "Bill calculations by outcome",
		}, []string{"outcome"}),
		ruleUpdates: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bill_rule_updates_total",
			Help: "Billing rule update attempts by outcome",
		}, []string{"outcome"}),
		pinChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bill_admin_pin_changes_total",
			Help: "Admin PIN set/change attempts by outcome",
		}, []string{"outcome"}),
		adminLogins: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bill_admin_logins_total",
			Help: "Admin session logins by outcome",
		}, []string{"outcome"}),
		ruleFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "bill_rule_default_fallbacks_total",
			Help: "Rule reads answered with the built-in default rule",
		}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bill_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status code",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Calculation(outcome string) {
	if m != nil {
		m.calculations.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) RuleUpdate(outcome string) {
	if m != nil {
		m.ruleUpdates.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) PINChange(outcome string) {
	if m != nil {
		m.pinChanges.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) AdminLogin(outcome string) {
	if m != nil {
		m.adminLogins.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) RuleFallback() {
	if m != nil {
		m.ruleFallbacks.Inc()
	}
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(route, method, status string, elapsed time.Duration) {
	if m != nil {
		m.requestDuration.WithLabelValues(route, method, status).Observe(elapsed.Seconds())
	}
}
