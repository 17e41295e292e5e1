package compute

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Surface job metrics
var (
	surfaceJobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "knnviz_surface_jobs_total",
		Help: "Surface rasterization jobs by outcome",
	}, []string{"outcome"})

	surfaceRenderDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "knnviz_surface_render_duration_seconds",
		Help:    "Wall time of completed surface rasterizations",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
	})

	surfaceJobsInflight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "knnviz_surface_jobs_inflight",
		Help: "Surface rasterization jobs currently running (0 or 1)",
	})

	surfaceRequestsCoalesced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "knnviz_surface_requests_coalesced_total",
		Help: "Debounced surface requests replaced by a later one",
	})
)
