package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the CRM client.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	Registry *prometheus.Registry

	requestDuration      *prometheus.HistogramVec
	requestErrors        *prometheus.CounterVec
	requestsTotal        *prometheus.CounterVec
	sessionInvalidations prometheus.Counter
	staleResponses       *prometheus.CounterVec
	contactSubmissions   *prometheus.CounterVec
}

// Snapshot is a point-in-time view of the client counters.
type Snapshot struct {
	Requests             float64
	Errors               map[string]float64
	SessionInvalidations float64
	StaleResponses       map[string]float64
	ContactSubmissions   map[string]float64
}

// Label values used by the counters below.
var (
	errorKinds      = []string{"unreachable", "unauthorized", "validation_rejected", "server_error", "client_validation", "unknown"}
	contactOutcomes = []string{"success", "error", "invalid", "discarded"}
	viewNames       = []string{"leads", "lead_detail", "clients", "projects", "dashboard"}
)

// NewMetrics creates a dedicated Prometheus registry and registers all
// client metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "crm_client_request_duration_seconds",
				Help:    "Duration of API calls by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		requestErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crm_client_request_errors_total",
				Help: "Failed API calls by error kind.",
			},
			[]string{"kind"},
		),
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crm_client_requests_total",
				Help: "Total API calls by outcome.",
			},
			[]string{"status"},
		),
		sessionInvalidations: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "crm_client_session_invalidations_total",
				Help: "Sessions torn down after a 401.",
			},
		),
		staleResponses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crm_client_stale_responses_total",
				Help: "Responses dropped because a newer request superseded them.",
			},
			[]string{"view"},
		),
		contactSubmissions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crm_client_contact_submissions_total",
				Help: "Contact form submissions by outcome.",
			},
			[]string{"outcome"},
		),
	}
}

// RecordRequestDuration records the duration of an API call.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrRequest increments the request counter with a status label.
func (m *Metrics) IncrRequest(status string) {
	m.requestsTotal.WithLabelValues(status).Inc()
}

// IncrRequestError increments the error counter for the given kind.
func (m *Metrics) IncrRequestError(kind string) {
	m.requestErrors.WithLabelValues(kind).Inc()
}

// IncrSessionInvalidation counts a 401 teardown.
func (m *Metrics) IncrSessionInvalidation() {
	m.sessionInvalidations.Inc()
}

// IncrStaleResponse counts a dropped out-of-order response.
func (m *Metrics) IncrStaleResponse(view string) {
	m.staleResponses.WithLabelValues(view).Inc()
}

// IncrContactSubmission counts a contact form submission outcome.
func (m *Metrics) IncrContactSubmission(outcome string) {
	m.contactSubmissions.WithLabelValues(outcome).Inc()
}

// Snapshot gathers the current counter values.
func (m *Metrics) Snapshot() Snapshot {
	s := Snapshot{
		Requests: getCounterValue(m.requestsTotal, "success") +
			getCounterValue(m.requestsTotal, "error"),
		Errors:               make(map[string]float64),
		SessionInvalidations: readCounter(m.sessionInvalidations),
		StaleResponses:       make(map[string]float64),
		ContactSubmissions:   make(map[string]float64),
	}
	for _, k := range errorKinds {
		if v := getCounterValue(m.requestErrors, k); v > 0 {
			s.Errors[k] = v
		}
	}
	for _, v := range viewNames {
		if n := getCounterValue(m.staleResponses, v); n > 0 {
			s.StaleResponses[v] = n
		}
	}
	for _, o := range contactOutcomes {
		if n := getCounterValue(m.contactSubmissions, o); n > 0 {
			s.ContactSubmissions[o] = n
		}
	}
	return s
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	return readCounter(cv.WithLabelValues(label))
}

func readCounter(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
