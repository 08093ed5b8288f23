package metrics

import (
	"database/sql"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	metricPrefix = "campus_"

	resultSuccess  = "success"
	resultPartial  = "partial"
	resultNoop     = "noop"
	resultError    = "error"
	resultDegraded = "degraded"
)

var (
	registerOnce sync.Once

	syncRunsTotal   *prometheus.CounterVec
	syncLatency     *prometheus.HistogramVec
	syncPlaceErrors *prometheus.CounterVec
	syncUpdated     prometheus.Gauge

	routingRequests *prometheus.CounterVec

	forecastRefreshTotal *prometheus.CounterVec
	forecastLatency      *prometheus.HistogramVec
	forecastConfidence   prometheus.Gauge

	alertRuleMatches *prometheus.CounterVec
)

// Init registers metrics and DB-backed gauges. Safe to call more than once.
func Init(db *sql.DB, logger *zap.Logger) {
	registerOnce.Do(func() {
		syncRunsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "commute_sync_runs_total",
				Help: "Total commute sync cycles by result",
			},
			[]string{"result"},
		)
		syncLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "commute_sync_latency_seconds",
				Help:    "Commute sync cycle duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"result"},
		)
		syncPlaceErrors = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "commute_sync_place_errors_total",
				Help: "Per-place commute sync errors by reason",
			},
			[]string{"reason"},
		)
		syncUpdated = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "commute_sync_updated_places",
			Help: "Places updated by the last committed sync cycle",
		})

		routingRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "routing_requests_total",
				Help: "Routing provider requests by provider status",
			},
			[]string{"status"},
		)

		forecastRefreshTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "forecast_refresh_total",
				Help: "Forecast refreshes by result",
			},
			[]string{"result"},
		)
		forecastLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "forecast_refresh_latency_seconds",
				Help:    "Forecast refresh latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		forecastConfidence = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "forecast_confidence",
			Help: "Confidence of the last forecast",
		})

		alertRuleMatches = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "alert_rule_matches_total",
				Help: "Clock alert transitions by matching rule",
			},
			[]string{"rule"},
		)

		prometheus.MustRegister(
			syncRunsTotal,
			syncLatency,
			syncPlaceErrors,
			syncUpdated,
			routingRequests,
			forecastRefreshTotal,
			forecastLatency,
			forecastConfidence,
			alertRuleMatches,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveSync records a sync cycle outcome.
func ObserveSync(result string, updated int, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if syncRunsTotal != nil {
		syncRunsTotal.WithLabelValues(result).Inc()
	}
	if syncLatency != nil {
		syncLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
	if syncUpdated != nil && updated > 0 {
		syncUpdated.Set(float64(updated))
	}
}

// IncSyncPlaceError increments the per-place error counter.
func IncSyncPlaceError(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	if syncPlaceErrors != nil {
		syncPlaceErrors.WithLabelValues(reason).Inc()
	}
}

// IncRoutingRequest counts a routing provider call by its top-level status.
func IncRoutingRequest(status string) {
	if status == "" {
		status = "transport_error"
	}
	if routingRequests != nil {
		routingRequests.WithLabelValues(status).Inc()
	}
}

// ObserveForecast records a forecast refresh outcome.
func ObserveForecast(result string, confidence float64, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if forecastRefreshTotal != nil {
		forecastRefreshTotal.WithLabelValues(result).Inc()
	}
	if forecastLatency != nil {
		forecastLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
	if forecastConfidence != nil {
		forecastConfidence.Set(confidence)
	}
}

// IncAlertRule counts a transition into a clock alert rule.
func IncAlertRule(rule string) {
	if rule == "" {
		rule = "fallback"
	}
	if alertRuleMatches != nil {
		alertRuleMatches.WithLabelValues(rule).Inc()
	}
}

// Exported constants for callers.
const (
	ResultSuccess  = resultSuccess
	ResultPartial  = resultPartial
	ResultNoop     = resultNoop
	ResultError    = resultError
	ResultDegraded = resultDegraded
)
