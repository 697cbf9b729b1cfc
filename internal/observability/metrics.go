package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics stores Prometheus collectors used by the API and the poller.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal       *prometheus.CounterVec
	httpRequestDuration     *prometheus.HistogramVec
	escalationCallsTotal    *prometheus.CounterVec
	remindersTotal          *prometheus.CounterVec
	schedulesEvaluatedTotal *prometheus.CounterVec
	evaluationPassDuration  *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "outreach_engine",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "outreach_engine",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		escalationCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "outreach_engine",
				Name:      "escalation_calls_total",
				Help:      "Total number of escalation voice calls by outcome.",
			},
			[]string{"outcome"},
		),
		remindersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "outreach_engine",
				Name:      "reminders_total",
				Help:      "Total number of deadline reminder sends by outcome.",
			},
			[]string{"outcome"},
		),
		schedulesEvaluatedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "outreach_engine",
				Name:      "schedules_evaluated_total",
				Help:      "Total number of escalation schedules evaluated by final status.",
			},
			[]string{"status"},
		),
		evaluationPassDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "outreach_engine",
				Name:      "evaluation_pass_duration_seconds",
				Help:      "Duration of one scheduler evaluation pass in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
			},
			[]string{"scheduler"},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.escalationCallsTotal,
		m.remindersTotal,
		m.schedulesEvaluatedTotal,
		m.evaluationPassDuration,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := routePath(c)
		// Avoid self-scrape noise for request counters.
		if path == "/metrics" {
			return err
		}

		m.recordHTTPRequest(c.Method(), path, statusFromResult(c, err), time.Since(start))
		return err
	}
}

func (m *Metrics) IncEscalationCall(outcome string) {
	if m == nil {
		return
	}
	m.escalationCallsTotal.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *Metrics) IncReminder(outcome string) {
	if m == nil {
		return
	}
	m.remindersTotal.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *Metrics) IncScheduleEvaluated(status string) {
	if m == nil {
		return
	}
	m.schedulesEvaluatedTotal.WithLabelValues(normalizeLabel(status)).Inc()
}

func (m *Metrics) ObserveEvaluationPass(scheduler string, duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.evaluationPassDuration.WithLabelValues(normalizeLabel(scheduler)).Observe(seconds)
}

func (m *Metrics) recordHTTPRequest(method string, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	methodLabel := strings.ToUpper(strings.TrimSpace(method))
	if methodLabel == "" {
		methodLabel = "UNKNOWN"
	}
	pathLabel := strings.TrimSpace(path)
	if pathLabel == "" {
		pathLabel = "unmatched"
	}

	m.httpRequestsTotal.WithLabelValues(methodLabel, pathLabel, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(methodLabel, pathLabel).Observe(duration.Seconds())
}

func routePath(c *fiber.Ctx) string {
	if c == nil {
		return "unmatched"
	}

	if route := c.Route(); route != nil {
		if path := strings.TrimSpace(route.Path); path != "" {
			return path
		}
	}
	return "unmatched"
}

func statusFromResult(c *fiber.Ctx, err error) int {
	if err != nil {
		if fiberErr, ok := err.(*fiber.Error); ok {
			return fiberErr.Code
		}
		return fiber.StatusInternalServerError
	}

	if c == nil {
		return fiber.StatusOK
	}

	status := c.Response().StatusCode()
	if status == 0 {
		return fiber.StatusOK
	}
	return status
}

func normalizeLabel(v string) string {
	normalized := strings.ToLower(strings.TrimSpace(v))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}
