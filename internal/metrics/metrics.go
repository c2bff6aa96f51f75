package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "zoom_meetings"

// Metrics groups the collectors the server records into. A nil *Metrics is
// valid and records nothing, so tests can skip wiring a registry.
type Metrics struct {
	reg prometheus.Gatherer

	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	providerCalls *prometheus.CounterVec
	providerTime  *prometheus.HistogramVec
	webhookEvents *prometheus.CounterVec
	attendance    prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		reg: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method and status code.",
		}, []string{"route", "method", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		providerCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Calls to the Zoom API by operation and result.",
		}, []string{"operation", "result"}),
		providerTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_duration_seconds",
			Help:      "Zoom API latency by operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_events_total",
			Help:      "Webhook deliveries by event type.",
		}, []string{"event"}),
		attendance: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "participants_marked_attended_total",
			Help:      "Participants flipped to attended by participant_joined events.",
		}),
	}
	reg.MustRegister(m.httpRequests, m.httpDuration, m.providerCalls, m.providerTime,
		m.webhookEvents, m.attendance)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveHTTP(route, method string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}

func (m *Metrics) ObserveProvider(op string, err error, d time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.providerCalls.WithLabelValues(op, result).Inc()
	m.providerTime.WithLabelValues(op).Observe(d.Seconds())
}

// known keeps unbounded event names out of label values.
var known = map[string]bool{
	"endpoint.url_validation":    true,
	"meeting.participant_joined": true,
}

func (m *Metrics) WebhookEvent(event string) {
	if m == nil {
		return
	}
	if !known[event] {
		event = "other"
	}
	m.webhookEvents.WithLabelValues(event).Inc()
}

func (m *Metrics) ParticipantAttended() {
	if m == nil {
		return
	}
	m.attendance.Inc()
}
