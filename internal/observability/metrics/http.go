package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mkuzmin/askdoc/internal/core/domain"
)

// HTTPServerMetrics aggregates the API process registry: generic HTTP
// request metrics plus query-pipeline outcomes.
type HTTPServerMetrics struct {
	registry *prometheus.Registry
	service  string

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	queryTotal         *prometheus.CounterVec
	queryDuration      *prometheus.HistogramVec
	retrievedPassages  *prometheus.HistogramVec
	noContextTotal     *prometheus.CounterVec
	streamEventsTotal  *prometheus.CounterVec
	emptyIndexTotal    *prometheus.CounterVec
	generationFailures *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "askdoc",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "askdoc",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "askdoc",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queryTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "askdoc",
			Subsystem: "rag",
			Name:      "requests_total",
			Help:      "Total query pipeline runs by mode and outcome.",
		},
		[]string{"service", "mode", "outcome"},
	)
	queryDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "askdoc",
			Subsystem: "rag",
			Name:      "duration_seconds",
			Help:      "Query pipeline duration in seconds by mode.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "mode"},
	)
	retrievedPassages := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "askdoc",
			Subsystem: "rag",
			Name:      "retrieved_passages",
			Help:      "Distribution of deduplicated passages per query run.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service", "mode"},
	)
	noContextTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "askdoc",
			Subsystem: "rag",
			Name:      "no_context_total",
			Help:      "Total query runs answered with the no-information message.",
		},
		[]string{"service", "mode"},
	)
	streamEventsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "askdoc",
			Subsystem: "rag",
			Name:      "stream_events_total",
			Help:      "Total stream events emitted by type.",
		},
		[]string{"service", "type"},
	)
	emptyIndexTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "askdoc",
			Subsystem: "rag",
			Name:      "empty_index_total",
			Help:      "Total query runs rejected because no documents were ingested.",
		},
		[]string{"service", "mode"},
	)
	generationFailures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "askdoc",
			Subsystem: "rag",
			Name:      "generation_failures_total",
			Help:      "Total answer generation failures.",
		},
		[]string{"service", "mode"},
	)

	registry.MustRegister(
		requestTotal, requestDuration, requestInFlight,
		queryTotal, queryDuration, retrievedPassages, noContextTotal,
		streamEventsTotal, emptyIndexTotal, generationFailures,
	)

	return &HTTPServerMetrics{
		registry: registry,
		service:  service,

		requestTotal:    requestTotal,
		requestDuration: requestDuration,
		requestInFlight: requestInFlight,

		queryTotal:         queryTotal,
		queryDuration:      queryDuration,
		retrievedPassages:  retrievedPassages,
		noContextTotal:     noContextTotal,
		streamEventsTotal:  streamEventsTotal,
		emptyIndexTotal:    emptyIndexTotal,
		generationFailures: generationFailures,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) ObserveRequest(method, path string, status int, duration time.Duration) {
	m.requestTotal.WithLabelValues(m.service, method, path, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(m.service, method, path).Observe(duration.Seconds())
}

func (m *HTTPServerMetrics) StartRequest()  { m.requestInFlight.Inc() }
func (m *HTTPServerMetrics) FinishRequest() { m.requestInFlight.Dec() }

// ObserveQuery records one pipeline run. mode is "batch" or "stream".
func (m *HTTPServerMetrics) ObserveQuery(mode string, result *domain.AnswerResult, err error, duration time.Duration) {
	outcome := "success"
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		outcome = "invalid_input"
	case domain.IsKind(err, domain.ErrEmptyIndex):
		outcome = "empty_index"
		m.emptyIndexTotal.WithLabelValues(m.service, mode).Inc()
	case domain.IsKind(err, domain.ErrGeneration):
		outcome = "generation_error"
		m.generationFailures.WithLabelValues(m.service, mode).Inc()
	case err != nil:
		outcome = "error"
	}

	m.queryTotal.WithLabelValues(m.service, mode, outcome).Inc()
	m.queryDuration.WithLabelValues(m.service, mode).Observe(duration.Seconds())

	if err == nil && result != nil {
		m.retrievedPassages.WithLabelValues(m.service, mode).Observe(float64(result.DocumentsRetrieved))
		if result.DocumentsRetrieved == 0 {
			m.noContextTotal.WithLabelValues(m.service, mode).Inc()
		}
	}
}

func (m *HTTPServerMetrics) ObserveStreamEvent(eventType domain.StreamEventType) {
	m.streamEventsTotal.WithLabelValues(m.service, string(eventType)).Inc()
}
