// Package metrics holds the Prometheus collectors for sync runs. Collectors
// live on a private registry so several App instances (and tests) do not
// collide on the default one.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	runs          *prometheus.CounterVec
	deleted       prometheus.Counter
	deleteMissing prometheus.Counter
	created       prometheus.Counter
	runDuration   prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oncall_sync_runs_total",
			Help: "Sync runs by result",
		}, []string{"result"}),
		deleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "oncall_sync_records_deleted_total",
			Help: "Previously generated records deleted from the tracker",
		}),
		deleteMissing: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "oncall_sync_records_delete_not_found_total",
			Help: "Deletes that hit a record which no longer existed",
		}),
		created: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "oncall_sync_records_created_total",
			Help: "On-call records created in the tracker",
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "oncall_sync_run_duration_seconds",
			Help:    "Duration of sync runs",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
	}
	m.registry.MustRegister(m.runs, m.deleted, m.deleteMissing, m.created, m.runDuration)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// The recording methods accept a nil receiver so callers can run without metrics.

func (m *Metrics) RecordDeleted() {
	if m != nil {
		m.deleted.Inc()
	}
}

func (m *Metrics) RecordDeleteNotFound() {
	if m != nil {
		m.deleteMissing.Inc()
	}
}

func (m *Metrics) RecordCreated() {
	if m != nil {
		m.created.Inc()
	}
}

func (m *Metrics) RecordRun(err error, dur time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.runs.WithLabelValues(result).Inc()
	m.runDuration.Observe(dur.Seconds())
}
