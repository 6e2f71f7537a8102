package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// RuntimeStats gives the collector read access to the keyed worker
// runtime's live state at scrape time.
type RuntimeStats interface {
	ActiveVehicleKeys() int
	QueuedRecords() int
}

// Collector implements prometheus.Collector to read live gauges at
// scrape time rather than tracking them incrementally.
type Collector struct {
	pool  *pgxpool.Pool
	stats RuntimeStats

	activeVehicleKeys *prometheus.Desc
	queuedRecords     *prometheus.Desc
	dbTotalConns      *prometheus.Desc
	dbAcquiredConns   *prometheus.Desc
	dbIdleConns       *prometheus.Desc
}

// NewCollector creates a collector that reads live state at scrape time.
// pool may be nil (db metrics report 0). stats may be nil if no worker
// runtime is attached (e.g. in the pgsink role, which has none).
func NewCollector(pool *pgxpool.Pool, stats RuntimeStats) *Collector {
	return &Collector{
		pool:  pool,
		stats: stats,
		activeVehicleKeys: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "active_vehicle_keys"),
			"Current number of vehicle keys with live worker state.",
			nil, nil,
		),
		queuedRecords: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "queued_records"),
			"Current number of records queued across all worker input channels.",
			nil, nil,
		),
		dbTotalConns: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "db_pool", "total_conns"),
			"Total database pool connections.",
			nil, nil,
		),
		dbAcquiredConns: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "db_pool", "acquired_conns"),
			"Database pool connections currently in use.",
			nil, nil,
		),
		dbIdleConns: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "db_pool", "idle_conns"),
			"Database pool idle connections.",
			nil, nil,
		),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.activeVehicleKeys
	ch <- c.queuedRecords
	ch <- c.dbTotalConns
	ch <- c.dbAcquiredConns
	ch <- c.dbIdleConns
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c.stats != nil {
		ch <- prometheus.MustNewConstMetric(c.activeVehicleKeys, prometheus.GaugeValue, float64(c.stats.ActiveVehicleKeys()))
		ch <- prometheus.MustNewConstMetric(c.queuedRecords, prometheus.GaugeValue, float64(c.stats.QueuedRecords()))
	} else {
		ch <- prometheus.MustNewConstMetric(c.activeVehicleKeys, prometheus.GaugeValue, 0)
		ch <- prometheus.MustNewConstMetric(c.queuedRecords, prometheus.GaugeValue, 0)
	}

	if c.pool != nil {
		stat := c.pool.Stat()
		ch <- prometheus.MustNewConstMetric(c.dbTotalConns, prometheus.GaugeValue, float64(stat.TotalConns()))
		ch <- prometheus.MustNewConstMetric(c.dbAcquiredConns, prometheus.GaugeValue, float64(stat.AcquiredConns()))
		ch <- prometheus.MustNewConstMetric(c.dbIdleConns, prometheus.GaugeValue, float64(stat.IdleConns()))
	} else {
		ch <- prometheus.MustNewConstMetric(c.dbTotalConns, prometheus.GaugeValue, 0)
		ch <- prometheus.MustNewConstMetric(c.dbAcquiredConns, prometheus.GaugeValue, 0)
		ch <- prometheus.MustNewConstMetric(c.dbIdleConns, prometheus.GaugeValue, 0)
	}
}
