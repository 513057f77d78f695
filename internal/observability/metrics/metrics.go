package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "deepsea_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	ingestRequests *prometheus.CounterVec
	ingestErrors   *prometheus.CounterVec
	ingestLatency  *prometheus.HistogramVec

	eventsPublished *prometheus.CounterVec
	eventsDropped   *prometheus.CounterVec

	activeSessions prometheus.Gauge

	aggregationTotal   *prometheus.CounterVec
	aggregationLatency *prometheus.HistogramVec

	alertEventsTotal *prometheus.CounterVec
)

// Init registers observability metrics. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		ingestRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_requests_total",
				Help: "Total ingest requests by stream kind and result",
			},
			[]string{"kind", "result"},
		)
		ingestErrors = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_errors_total",
				Help: "Total ingest errors by reason",
			},
			[]string{"reason"},
		)
		ingestLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "ingest_latency_seconds",
				Help:    "Ingest latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind", "result"},
		)

		eventsPublished = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "distribution_events_total",
				Help: "Total distribution events published by stream kind",
			},
			[]string{"kind"},
		)
		eventsDropped = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "distribution_dropped_total",
				Help: "Events dropped for slow subscribers by stream kind",
			},
			[]string{"kind"},
		)

		activeSessions = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "stream_sessions_active",
				Help: "Currently connected live stream sessions",
			},
		)

		aggregationTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "aggregation_requests_total",
				Help: "Total aggregation queries by result",
			},
			[]string{"result"},
		)
		aggregationLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "aggregation_latency_seconds",
				Help:    "Aggregation query latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		alertEventsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "alert_events_total",
				Help: "Alert lifecycle events by type",
			},
			[]string{"event"},
		)

		prometheus.MustRegister(
			ingestRequests,
			ingestErrors,
			ingestLatency,
			eventsPublished,
			eventsDropped,
			activeSessions,
			aggregationTotal,
			aggregationLatency,
			alertEventsTotal,
		)
	})
}

// ObserveIngest records one ingest request.
func ObserveIngest(kind, result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if ingestRequests != nil {
		ingestRequests.WithLabelValues(kind, result).Inc()
	}
	if ingestLatency != nil {
		ingestLatency.WithLabelValues(kind, result).Observe(duration.Seconds())
	}
}

// IncIngestError counts an ingest failure by reason.
func IncIngestError(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	if ingestErrors != nil {
		ingestErrors.WithLabelValues(reason).Inc()
	}
}

// IncEventPublished counts a distribution event publish.
func IncEventPublished(kind string) {
	if eventsPublished != nil {
		eventsPublished.WithLabelValues(kind).Inc()
	}
}

// IncEventDropped counts a per-subscriber delivery drop.
func IncEventDropped(kind string) {
	if eventsDropped != nil {
		eventsDropped.WithLabelValues(kind).Inc()
	}
}

// SessionStarted increments the active session gauge.
func SessionStarted() {
	if activeSessions != nil {
		activeSessions.Inc()
	}
}

// SessionEnded decrements the active session gauge.
func SessionEnded() {
	if activeSessions != nil {
		activeSessions.Dec()
	}
}

// ObserveAggregation records one aggregation query.
func ObserveAggregation(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if aggregationTotal != nil {
		aggregationTotal.WithLabelValues(result).Inc()
	}
	if aggregationLatency != nil {
		aggregationLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncAlertEvent increments alert lifecycle counters.
func IncAlertEvent(event string) {
	if event == "" {
		event = "unknown"
	}
	if alertEventsTotal != nil {
		alertEventsTotal.WithLabelValues(event).Inc()
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)
