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

const metricsNamespace = "message_scheduler"

var knownStates = []string{"IDLE", "SCHEDULED", "SENDING", "DONE"}

// Metrics stores Prometheus collectors for the control surface and the
// sequencing state machine.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal     *prometheus.CounterVec
	httpRequestDuration   *prometheus.HistogramVec
	queuesStartedTotal    *prometheus.CounterVec
	itemsConfirmedTotal   *prometheus.CounterVec
	schedulesTotal        *prometheus.CounterVec
	contactsImportedTotal *prometheus.CounterVec
	sessionState          *prometheus.GaugeVec
	historyEntries        prometheus.Gauge
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		queuesStartedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "queues_started_total",
				Help:      "Queues that entered the sending state, by how they were started.",
			},
			[]string{"mode"},
		),
		itemsConfirmedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "items_confirmed_total",
				Help:      "Queue items the operator confirmed, by confirmation path.",
			},
			[]string{"via"},
		),
		schedulesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "schedules_total",
				Help:      "Deferred activations by outcome (armed, fired, cancelled).",
			},
			[]string{"outcome"},
		),
		contactsImportedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "contacts_imported_total",
				Help:      "Picked contacts by import result (added, skipped).",
			},
			[]string{"result"},
		),
		sessionState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "session_state",
				Help:      "1 for the current sending state, 0 for the others.",
			},
			[]string{"state"},
		),
		historyEntries: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "history_entries",
				Help:      "Number of records in the sent history.",
			},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.queuesStartedTotal,
		m.itemsConfirmedTotal,
		m.schedulesTotal,
		m.contactsImportedTotal,
		m.sessionState,
		m.historyEntries,
	)

	for _, state := range knownStates {
		m.sessionState.WithLabelValues(state).Set(0)
	}
	m.sessionState.WithLabelValues("IDLE").Set(1)

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
		if path == "/metrics" {
			return err
		}

		m.recordHTTPRequest(c.Method(), path, statusFromResult(c, err), time.Since(start))
		return err
	}
}

func (m *Metrics) IncQueueStarted(mode string) {
	if m == nil {
		return
	}
	m.queuesStartedTotal.WithLabelValues(normalizeLabel(mode)).Inc()
}

func (m *Metrics) IncItemConfirmed(via string) {
	if m == nil {
		return
	}
	m.itemsConfirmedTotal.WithLabelValues(normalizeLabel(via)).Inc()
}

func (m *Metrics) IncSchedule(outcome string) {
	if m == nil {
		return
	}
	m.schedulesTotal.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *Metrics) AddContactsImported(added int, skipped int) {
	if m == nil {
		return
	}
	if added > 0 {
		m.contactsImportedTotal.WithLabelValues("added").Add(float64(added))
	}
	if skipped > 0 {
		m.contactsImportedTotal.WithLabelValues("skipped").Add(float64(skipped))
	}
}

func (m *Metrics) SetState(state string) {
	if m == nil {
		return
	}
	current := strings.ToUpper(strings.TrimSpace(state))
	for _, s := range knownStates {
		value := 0.0
		if s == current {
			value = 1
		}
		m.sessionState.WithLabelValues(s).Set(value)
	}
}

func (m *Metrics) SetHistoryEntries(n int) {
	if m == nil {
		return
	}
	m.historyEntries.Set(float64(n))
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

func normalizeLabel(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}
