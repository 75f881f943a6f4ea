package localstore

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "notestore"
	subsystem = "localstore"
)

// metrics counts store operations by entity, operation and outcome.
type metrics struct {
	ops *prometheus.CounterVec
}

func newMetrics() *metrics {
	return &metrics{
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "operations_total",
			Help:      "Total number of store operations.",
		}, []string{"entity", "op", "result"}),
	}
}

func (m *metrics) observe(entity string, op Op, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.ops.WithLabelValues(entity, string(op), result).Inc()
}

// Describe implements prometheus.Collector.
func (db *DB) Describe(ch chan<- *prometheus.Desc) {
	prometheus.DescribeByCollect(db, ch)
}

// Collect implements prometheus.Collector.
func (db *DB) Collect(ch chan<- prometheus.Metric) {
	db.metrics.ops.Collect(ch)

	stats := db.conn.Stats()
	labels := prometheus.Labels{"path": db.path}

	ch <- prometheus.MustNewConstMetric(
		prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "open_connections"),
			"The number of established connections both in use and idle.",
			nil, labels,
		),
		prometheus.GaugeValue,
		float64(stats.OpenConnections),
	)
	ch <- prometheus.MustNewConstMetric(
		prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "in_use_connections"),
			"The number of connections currently in use.",
			nil, labels,
		),
		prometheus.GaugeValue,
		float64(stats.InUse),
	)
	ch <- prometheus.MustNewConstMetric(
		prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "wait_count"),
			"The total number of connections waited for.",
			nil, labels,
		),
		prometheus.CounterValue,
		float64(stats.WaitCount),
	)
}

// check interfaces
var (
	_ prometheus.Collector = (*DB)(nil)
)
