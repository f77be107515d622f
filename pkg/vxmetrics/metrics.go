// Package vxmetrics exposes the Prometheus instrumentation points for
// the index build, serialize, and search paths. Metrics are package
// level and registered once at process start via promauto, the same
// way the wider corpus wires client_golang — no per-namespace struct
// threading is needed since a process hosts exactly one index.
package vxmetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QueriesDispatched counts jobs handed to the scheduler's worker pool.
	QueriesDispatched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vecx_queries_dispatched_total",
		Help: "Total number of search queries submitted to the worker pool",
	})

	// QueueDepth tracks the dispatch queue's length, sampled by a
	// worker as it picks up each job.
	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vecx_queue_depth",
		Help: "Number of queries waiting in the dispatch queue",
	})

	// WorkersActive tracks the number of worker goroutines currently running.
	WorkersActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vecx_workers_active",
		Help: "Number of scheduler worker goroutines currently running",
	})

	// PinFailures counts SchedSetaffinity calls that failed, e.g. under
	// a sandboxed container that restricts affinity syscalls.
	PinFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vecx_worker_pin_failures_total",
		Help: "Total number of worker CPU pinning failures",
	})

	// SearchLatency is the wall-clock duration of one query's
	// coarse-plus-rerank pipeline, as observed by the worker pool.
	SearchLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vecx_search_latency_seconds",
		Help:    "Search latency in seconds, coarse traversal plus rerank",
		Buckets: []float64{.0001, .0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5},
	})

	// BuildLatency is the duration of a single Insert call.
	BuildLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vecx_build_insert_latency_seconds",
		Help:    "Duration of a single HNSW insert",
		Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
	})

	// IndexSize reports the number of vectors currently in the index.
	IndexSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vecx_index_size",
		Help: "Number of vectors in the index",
	})

	// IndexMaxLevel reports the current HNSW max layer.
	IndexMaxLevel = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vecx_index_max_level",
		Help: "Maximum layer in the HNSW graph",
	})

	// CalibrationRecall records the recall the Pareto-EF sweep measures
	// at each ef it tries, for operators tuning the default search ef.
	CalibrationRecall = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vecx_calibration_recall",
		Help:    "Recall achieved during ef calibration sweep",
		Buckets: []float64{.8, .85, .9, .92, .94, .95, .96, .98, .99, 1.0},
	})
)

// SearchTimer measures one search call and records it into
// SearchLatency on ObserveDuration.
type SearchTimer struct {
	start time.Time
}

// NewSearchTimer starts timing a search.
func NewSearchTimer() *SearchTimer {
	return &SearchTimer{start: time.Now()}
}

// ObserveDuration records the elapsed time since NewSearchTimer into
// SearchLatency.
func (t *SearchTimer) ObserveDuration() {
	SearchLatency.Observe(time.Since(t.start).Seconds())
}
