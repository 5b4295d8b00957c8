// Package metrics exposes housekeeping outcomes as Prometheus metrics.
//
// Metrics:
//   - dbkeeper_backups_total{outcome}: backup runs by outcome
//   - dbkeeper_cleanups_total{outcome}: cleanup runs by outcome
//   - dbkeeper_snapshots_deleted_total: snapshots removed by cleanups
//   - dbkeeper_snapshot_size_bytes: size of the newest snapshot
//   - dbkeeper_run_duration_seconds{op}: wall time of runs
//   - dbkeeper_last_success_timestamp_seconds{op}: unix time of the last good run
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/raoulx24/dbkeeper/internal/housekeeping"
)

const namespace = "dbkeeper"

// Collector owns a private registry so tests and embedders don't collide
// with the global one.
type Collector struct {
	registry *prometheus.Registry

	backupsTotal    *prometheus.CounterVec
	cleanupsTotal   *prometheus.CounterVec
	deletedTotal    prometheus.Counter
	snapshotSize    prometheus.Gauge
	runDuration     *prometheus.HistogramVec
	lastSuccessTime *prometheus.GaugeVec
}

// NewCollector creates and registers all metrics. A nil registry gets a
// fresh one.
func NewCollector(registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	c := &Collector{
		registry: registry,

		backupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "backups_total",
				Help:      "Total number of backup runs by outcome",
			},
			[]string{"outcome"},
		),

		cleanupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cleanups_total",
				Help:      "Total number of cleanup runs by outcome",
			},
			[]string{"outcome"},
		),

		deletedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "snapshots_deleted_total",
				Help:      "Total number of snapshots deleted by cleanups",
			},
		),

		snapshotSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "snapshot_size_bytes",
				Help:      "Size of the most recently created snapshot",
			},
		),

		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Duration of backup and cleanup runs",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
			},
			[]string{"op"},
		),

		lastSuccessTime: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_success_timestamp_seconds",
				Help:      "Unix time of the last run that created or cleaned",
			},
			[]string{"op"},
		),
	}

	registry.MustRegister(
		c.backupsTotal,
		c.cleanupsTotal,
		c.deletedTotal,
		c.snapshotSize,
		c.runDuration,
		c.lastSuccessTime,
	)

	return c
}

// Observe records one housekeeping result.
func (c *Collector) Observe(r housekeeping.Result) {
	outcome := string(r.Outcome)

	switch r.Op {
	case housekeeping.OpBackup:
		c.backupsTotal.WithLabelValues(outcome).Inc()
		if r.Outcome == housekeeping.OutcomeCreated {
			c.snapshotSize.Set(float64(r.Size))
		}
	case housekeeping.OpClean:
		c.cleanupsTotal.WithLabelValues(outcome).Inc()
		// deletions done before a failure still happened
		c.deletedTotal.Add(float64(r.Deleted))
	default:
		return
	}

	if d := r.Duration(); d > 0 {
		c.runDuration.WithLabelValues(string(r.Op)).Observe(d.Seconds())
	}

	if r.Outcome == housekeeping.OutcomeCreated || r.Outcome == housekeeping.OutcomeCleaned {
		c.lastSuccessTime.WithLabelValues(string(r.Op)).Set(float64(r.Finished.Unix()))
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}
