package metrics

import (
	"database/sql"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func registerDBMetrics(db *sql.DB, logger *zap.Logger) {
	prometheus.MustRegister(collectors.NewDBStatsCollector(db, "campus"))

	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "commute_records",
			Help: "Stored commute records",
		},
		func() float64 {
			return queryFloat(db, logger, "SELECT COUNT(*) FROM poi_traffic")
		},
	))

	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "commute_records_age_seconds",
			Help: "Age of the newest commute record",
		},
		func() float64 {
			return queryFloat(db, logger, "SELECT COALESCE(EXTRACT(EPOCH FROM NOW() - MAX(last_updated)), 0) FROM poi_traffic")
		},
	))
}

func queryFloat(db *sql.DB, logger *zap.Logger, query string) float64 {
	if db == nil {
		return 0
	}
	var value float64
	if err := db.QueryRow(query).Scan(&value); err != nil {
		if logger != nil {
			logger.Warn("metrics query failed", zap.Error(err))
		}
		return 0
	}
	if value < 0 {
		return 0
	}
	return value
}
