package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "reviewfunnel"

// FunnelMetrics exposes counters for the review funnel sessions.
type FunnelMetrics struct {
	sessionsTotal    prometheus.Counter
	sessionsActive   prometheus.Gauge
	transitionsTotal *prometheus.CounterVec
	locationActions  *prometheus.CounterVec
	identityOutcomes *prometheus.CounterVec
	storeErrors      *prometheus.CounterVec
}

func NewFunnelMetrics(reg prometheus.Registerer) *FunnelMetrics {
	m := &FunnelMetrics{
		sessionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "funnel",
			Name:      "sessions_total",
			Help:      "Total review funnel sessions opened",
		}),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "funnel",
			Name:      "sessions_active",
			Help:      "Review funnel sessions currently connected",
		}),
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "funnel",
			Name:      "transitions_total",
			Help:      "Funnel step transitions by destination step",
		}, []string{"step"}),
		locationActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "funnel",
			Name:      "location_actions_total",
			Help:      "Per-location review actions",
		}, []string{"location", "action"}),
		identityOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "funnel",
			Name:      "identity_outcomes_total",
			Help:      "Sign-in widget outcomes",
		}, []string{"outcome"}),
		storeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "funnel",
			Name:      "store_errors_total",
			Help:      "Record store failures seen by the funnel",
		}, []string{"op"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.sessionsTotal, m.sessionsActive, m.transitionsTotal, m.locationActions, m.identityOutcomes, m.storeErrors)
	return m
}

func (m *FunnelMetrics) SessionOpened() {
	if m == nil {
		return
	}
	m.sessionsTotal.Inc()
	m.sessionsActive.Inc()
}

func (m *FunnelMetrics) SessionClosed() {
	if m == nil {
		return
	}
	m.sessionsActive.Dec()
}

func (m *FunnelMetrics) ObserveTransition(step string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(step).Inc()
}

func (m *FunnelMetrics) ObserveLocationAction(location, action string) {
	if m == nil {
		return
	}
	m.locationActions.WithLabelValues(location, action).Inc()
}

func (m *FunnelMetrics) ObserveIdentity(outcome string) {
	if m == nil {
		return
	}
	m.identityOutcomes.WithLabelValues(outcome).Inc()
}

func (m *FunnelMetrics) ObserveStoreError(op string) {
	if m == nil {
		return
	}
	m.storeErrors.WithLabelValues(op).Inc()
}

// FeedbackMetrics exposes counters for the feedback intake flow.
type FeedbackMetrics struct {
	submissions *prometheus.CounterVec
	prefill     *prometheus.CounterVec
	alerts      *prometheus.CounterVec
}

func NewFeedbackMetrics(reg prometheus.Registerer) *FeedbackMetrics {
	m := &FeedbackMetrics{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feedback",
			Name:      "submissions_total",
			Help:      "Feedback submissions by option and outcome",
		}, []string{"option", "status"}),
		prefill: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feedback",
			Name:      "prefill_lookups_total",
			Help:      "Booking pre-fill lookups by result",
		}, []string{"result"}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feedback",
			Name:      "reclean_alerts_total",
			Help:      "Reclean alert e-mails by outcome",
		}, []string{"status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.submissions, m.prefill, m.alerts)
	return m
}

func (m *FeedbackMetrics) ObserveSubmission(option, status string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(option, status).Inc()
}

func (m *FeedbackMetrics) ObservePrefill(result string) {
	if m == nil {
		return
	}
	m.prefill.WithLabelValues(result).Inc()
}

func (m *FeedbackMetrics) ObserveAlert(status string) {
	if m == nil {
		return
	}
	m.alerts.WithLabelValues(status).Inc()
}

// HTTPMetrics records request latency for the page and API surface.
type HTTPMetrics struct {
	requestDuration *prometheus.HistogramVec
}

func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	m := &HTTPMetrics{
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency of HTTP requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.requestDuration)
	return m
}

func (m *HTTPMetrics) ObserveRequest(method string, status int, seconds float64) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, strconv.Itoa(status)).Observe(seconds)
}
