package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// jobsQueued is the number of jobs waiting for promotion
	jobsQueued = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "total_loc_jobs_queued",
		Help: "Jobs waiting in the admission queue",
	})

	// jobsProcessing is the number of promoted, unfinished jobs
	jobsProcessing = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "total_loc_jobs_processing",
		Help: "Jobs currently being executed",
	})

	jobsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "total_loc_jobs_submitted_total",
		Help: "Jobs admitted to the queue",
	})

	jobsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "total_loc_jobs_finished_total",
		Help: "Jobs that reached a terminal state, by status",
	}, []string{"status"})

	jobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "total_loc_job_duration_seconds",
		Help:    "Time from promotion to terminal state",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 12), // 0.5s to ~17min
	}, []string{"status"})

	repositoriesCounted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "total_loc_repositories_counted_total",
		Help: "Repositories aggregated, cache hits included",
	})

	summaryCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "total_loc_summary_cache_hits_total",
		Help: "Repository summaries served from the cache",
	})

	fileFetchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "total_loc_file_fetch_failures_total",
		Help: "File fetches that failed and counted as zero",
	})
)

// ObserveQueue publishes the current queue depth and in-flight count.
func ObserveQueue(queued, processing int) {
	jobsQueued.Set(float64(queued))
	jobsProcessing.Set(float64(processing))
}

func JobSubmitted() {
	jobsSubmitted.Inc()
}

func JobFinished(status string, elapsed time.Duration) {
	jobsFinished.WithLabelValues(status).Inc()
	jobDuration.WithLabelValues(status).Observe(elapsed.Seconds())
}

func RepositoryCounted(fromCache bool) {
	repositoriesCounted.Inc()
	if fromCache {
		summaryCacheHits.Inc()
	}
}

func FileFetchFailed() {
	fileFetchFailures.Inc()
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
