package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pipesched_jobs_enqueued_total",
		Help: "Total number of graph jobs placed on the processing queue.",
	})

	JobsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pipesched_jobs_processed_total",
		Help: "Total number of graph jobs processed, labelled by outcome.",
	}, []string{"status"})

	JobsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pipesched_jobs_dropped_total",
		Help: "Total number of graph jobs rejected due to a full queue.",
	})

	AnnealIterations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pipesched_anneal_iterations_total",
		Help: "Total number of rotations tried by the annealer, labelled by cost function.",
	}, []string{"cost"})

	CostReduction = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pipesched_cost_reduction_ratio",
		Help:    "Relative cost reduction achieved by retiming (0 = none, 1 = all).",
		Buckets: []float64{0, 0.05, 0.1, 0.2, 0.3, 0.5, 0.75, 1},
	})

	Makespan = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pipesched_schedule_makespan_steps",
		Help:    "Makespan of produced schedules in control steps.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})

	JobDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pipesched_job_duration_ms",
		Help:    "End-to-end job processing latency in milliseconds.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 10000},
	})

	QueueUtilization = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pipesched_queue_utilization_ratio",
		Help: "Current job queue utilization (0–1).",
	})
)
