// Package metrics exposes run and write outcomes to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wonny/watchheat/internal/contracts"
)

// Registry holds the watch heat metrics on its own prometheus registry
type Registry struct {
	reg *prometheus.Registry

	SnapshotPuts        *prometheus.CounterVec
	ItemFailures        *prometheus.CounterVec
	StageDuration       *prometheus.GaugeVec
	Runs                prometheus.Counter
	RunDuration         prometheus.Histogram
	UniverseSize        prometheus.Gauge
	ScoredItems         prometheus.Gauge
	HotItems            prometheus.Gauge
	MissingObservations prometheus.Gauge
	InsufficientHistory prometheus.Gauge
	LastRunTimestamp    prometheus.Gauge
}

// NewRegistry creates and registers all metrics, plus the Go and process
// collectors.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		SnapshotPuts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "watchheat_snapshot_puts_total",
				Help: "Snapshot writes by outcome (stored, rejected, missing)",
			},
			[]string{"outcome"},
		),

		ItemFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "watchheat_item_failures_total",
				Help: "Items that failed a run, by stage",
			},
			[]string{"stage"},
		),

		StageDuration: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "watchheat_stage_duration_seconds",
				Help: "Time spent in each stage during the last run",
			},
			[]string{"stage"},
		),

		Runs: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "watchheat_runs_total",
				Help: "Completed heat runs",
			},
		),

		RunDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "watchheat_run_duration_seconds",
				Help:    "Wall time of a heat run",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
			},
		),

		UniverseSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "watchheat_universe_size",
			Help: "Items in the last run",
		}),
		ScoredItems: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "watchheat_scored_items",
			Help: "Items with a heat score in the last run",
		}),
		HotItems: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "watchheat_hot_items",
			Help: "Hot items in the last run",
		}),
		MissingObservations: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "watchheat_missing_observations",
			Help: "Items without an observation in the last run",
		}),
		InsufficientHistory: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "watchheat_insufficient_history",
			Help: "Items with at least one null metric in the last run",
		}),
		LastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "watchheat_last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		}),
	}

	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.SnapshotPuts,
		r.ItemFailures,
		r.StageDuration,
		r.Runs,
		r.RunDuration,
		r.UniverseSize,
		r.ScoredItems,
		r.HotItems,
		r.MissingObservations,
		r.InsufficientHistory,
		r.LastRunTimestamp,
	)

	// every stage is exported from the start, so a zero rate is visible
	for _, s := range contracts.AllStages() {
		r.ItemFailures.WithLabelValues(s.String())
	}
	return r
}

// ObservePut counts one snapshot write outcome
func (r *Registry) ObservePut(outcome string) {
	r.SnapshotPuts.WithLabelValues(outcome).Inc()
}

// ObserveRun records the summary of a finished run
func (r *Registry) ObserveRun(meta contracts.RunMetadata) {
	r.Runs.Inc()
	r.RunDuration.Observe(meta.Duration.Seconds())
	r.UniverseSize.Set(float64(meta.UniverseSize))
	r.ScoredItems.Set(float64(meta.Scored))
	r.HotItems.Set(float64(meta.HotCount))
	r.MissingObservations.Set(float64(meta.MissingObservations))
	r.InsufficientHistory.Set(float64(meta.InsufficientHistory))
	r.LastRunTimestamp.Set(float64(meta.StartedAt.Add(meta.Duration).Unix()))
	for _, f := range meta.Failures {
		r.ItemFailures.WithLabelValues(f.Stage.String()).Inc()
	}
	for stage, d := range meta.StageDurations {
		r.StageDuration.WithLabelValues(stage.String()).Set(d.Seconds())
	}
}

// Handler serves the registry in the Prometheus text format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}
