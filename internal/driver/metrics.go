package driver

import (
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	blocksProcessedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "analyticsd_blocks_processed_total",
		Help: "Total number of blocks parsed",
	})

	currentHeight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "analyticsd_current_height",
		Help: "Height of the last block parsed",
	})

	checkpointDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "analyticsd_checkpoint_duration_seconds",
		Help:    "Time spent flushing a checkpoint (state + databases + datasets)",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	})

	checkpointsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "analyticsd_checkpoints_total",
		Help: "Total number of checkpoints exported",
	})
)

func init() {
	prometheus.MustRegister(blocksProcessedTotal)
	prometheus.MustRegister(currentHeight)
	prometheus.MustRegister(checkpointDurationSeconds)
	prometheus.MustRegister(checkpointsTotal)
}

// StartMetricsServer starts the Prometheus metrics HTTP server on addr.
func StartMetricsServer(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		log.Printf("[metrics] listening on %s", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}
