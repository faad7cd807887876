package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "elarocks"

const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// RunMetrics holds extraction run metrics on a private registry.
type RunMetrics struct {
	registry *prometheus.Registry

	RunsTotal         *prometheus.CounterVec
	DocumentsFetched  *prometheus.CounterVec
	RecordsExtracted  *prometheus.CounterVec
	RecordsLoaded     *prometheus.CounterVec
	RunDuration       *prometheus.HistogramVec
	LastSuccessfulRun *prometheus.GaugeVec
}

func NewRunMetrics() *RunMetrics {
	m := &RunMetrics{
		registry: prometheus.NewRegistry(),

		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "extraction",
				Name:      "runs_total",
				Help:      "Extraction runs by event code and outcome",
			},
			[]string{"event_code", "status"},
		),
		DocumentsFetched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "extraction",
				Name:      "documents_fetched_total",
				Help:      "Search hits returned by the backend",
			},
			[]string{"event_code"},
		),
		RecordsExtracted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "extraction",
				Name:      "records_extracted_total",
				Help:      "Records written to tabular output",
			},
			[]string{"event_code"},
		),
		RecordsLoaded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "kvstore",
				Name:      "records_loaded_total",
				Help:      "Rows bulk-loaded into the key-value store",
			},
			[]string{"event_code"},
		),
		RunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "extraction",
				Name:      "run_duration_seconds",
				Help:      "Duration of successful extraction runs",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
			},
			[]string{"event_code"},
		),
		LastSuccessfulRun: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "extraction",
				Name:      "last_success_timestamp_seconds",
				Help:      "Unix time of the last successful run",
			},
			[]string{"event_code"},
		),
	}

	m.registry.MustRegister(
		m.RunsTotal,
		m.DocumentsFetched,
		m.RecordsExtracted,
		m.RecordsLoaded,
		m.RunDuration,
		m.LastSuccessfulRun,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveSuccess records a completed run. A nil receiver is a no-op.
func (m *RunMetrics) ObserveSuccess(eventCode string, documents, records, loaded int, duration time.Duration) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(eventCode, StatusSuccess).Inc()
	m.DocumentsFetched.WithLabelValues(eventCode).Add(float64(documents))
	m.RecordsExtracted.WithLabelValues(eventCode).Add(float64(records))
	m.RecordsLoaded.WithLabelValues(eventCode).Add(float64(loaded))
	m.RunDuration.WithLabelValues(eventCode).Observe(duration.Seconds())
	m.LastSuccessfulRun.WithLabelValues(eventCode).SetToCurrentTime()
}

// ObserveFailure records a failed run. A nil receiver is a no-op.
func (m *RunMetrics) ObserveFailure(eventCode string) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(eventCode, StatusFailure).Inc()
}

func (m *RunMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *RunMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
