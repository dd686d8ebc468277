package metrics

import (
	"database/sql"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	metricPrefix = "alarm_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	evaluationsTotal  *prometheus.CounterVec
	evaluationLatency *prometheus.HistogramVec

	sweepTotal    *prometheus.CounterVec
	sweepLatency  prometheus.Histogram
	sweepAlarms   prometheus.Gauge
	sweepFailures prometheus.Counter

	decisionsTotal *prometheus.CounterVec

	exportTotal   *prometheus.CounterVec
	exportLatency *prometheus.HistogramVec
)

// Init registers alarm metrics and DB-backed gauges.
func Init(db *sql.DB, logger *zap.Logger) {
	registerOnce.Do(func() {
		evaluationsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "evaluations_total",
				Help: "Total alarm eligibility evaluations by reason",
			},
			[]string{"reason"},
		)
		evaluationLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "evaluation_latency_seconds",
				Help:    "Alarm evaluation latency in seconds, including snapshot loading",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		sweepTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "sweep_total",
				Help: "Total sweeps over enabled alarms by result",
			},
			[]string{"result"},
		)
		sweepLatency = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "sweep_latency_seconds",
				Help:    "Sweep latency in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
			},
		)
		sweepAlarms = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "sweep_alarms",
				Help: "Alarms inspected by the last sweep",
			},
		)
		sweepFailures = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "sweep_alarm_failures_total",
				Help: "Alarms that could not be evaluated during a sweep",
			},
		)

		decisionsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "decisions_total",
				Help: "Total trigger decisions delivered to notifiers by type",
			},
			[]string{"event"},
		)

		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "occurrence_export_total",
				Help: "Total occurrence exports by format and result",
			},
			[]string{"format", "result"},
		)
		exportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "occurrence_export_latency_seconds",
				Help:    "Occurrence export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		prometheus.MustRegister(
			evaluationsTotal,
			evaluationLatency,
			sweepTotal,
			sweepLatency,
			sweepAlarms,
			sweepFailures,
			decisionsTotal,
			exportTotal,
			exportLatency,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveEvaluation records one evaluation outcome. An empty reason counts as an error.
func ObserveEvaluation(reason string, duration time.Duration) {
	result := resultSuccess
	if reason == "" {
		reason = resultError
		result = resultError
	}
	if evaluationsTotal != nil {
		evaluationsTotal.WithLabelValues(reason).Inc()
	}
	if evaluationLatency != nil {
		evaluationLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObserveSweep records a finished sweep.
func ObserveSweep(result string, alarms, failures int, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if sweepTotal != nil {
		sweepTotal.WithLabelValues(result).Inc()
	}
	if sweepLatency != nil {
		sweepLatency.Observe(duration.Seconds())
	}
	if sweepAlarms != nil {
		sweepAlarms.Set(float64(alarms))
	}
	if sweepFailures != nil && failures > 0 {
		sweepFailures.Add(float64(failures))
	}
}

// IncDecision increments the delivered decision counter.
func IncDecision(event string) {
	if event == "" {
		event = "unknown"
	}
	if decisionsTotal != nil {
		decisionsTotal.WithLabelValues(event).Inc()
	}
}

// ObserveExport records export latency and result.
func ObserveExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if exportTotal != nil {
		exportTotal.WithLabelValues(format, result).Inc()
	}
	if exportLatency != nil {
		exportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)
