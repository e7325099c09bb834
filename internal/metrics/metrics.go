package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors of one quizd process.
type Metrics struct {
	reg prometheus.Gatherer

	RequestCounter  *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	UpstreamLatency *prometheus.HistogramVec
	ActiveSessions  prometheus.Gauge
	AttemptScores   *prometheus.HistogramVec
	Handoffs        *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		reg: reg,
		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: []float64{0.1, 0.5, 1, 2, 5},
			},
			[]string{"method", "endpoint"},
		),
		UpstreamLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quiz_upstream_request_duration_seconds",
				Help:    "Duration of calls to the activity and analytics services",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"service", "op", "status"},
		),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "quiz_sessions_active",
			Help: "Quiz sessions currently held in memory",
		}),
		AttemptScores: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quiz_attempt_score",
				Help:    "Scores of submitted attempts",
				Buckets: prometheus.LinearBuckets(0, 10, 11),
			},
			[]string{"activity_id"},
		),
		Handoffs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quiz_result_handoffs_total",
				Help: "Final result handoffs by outcome",
			},
			[]string{"outcome"},
		),
	}
	reg.MustRegister(m.RequestCounter, m.RequestDuration, m.UpstreamLatency,
		m.ActiveSessions, m.AttemptScores, m.Handoffs)
	return m
}

// ObserveUpstream records one outbound call. status is 0 when no response
// was received.
func (m *Metrics) ObserveUpstream(service, op string, status int, d time.Duration) {
	m.UpstreamLatency.WithLabelValues(service, op, strconv.Itoa(status)).Observe(d.Seconds())
}

// Middleware counts requests by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		endpoint := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			endpoint = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.RequestCounter.WithLabelValues(r.Method, endpoint, strconv.Itoa(status)).Inc()
		m.RequestDuration.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())
	})
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
