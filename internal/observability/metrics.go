package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	pipelineRunsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "userfeed",
		Subsystem: "pipeline",
		Name:      "runs_total",
		Help:      "Create pipeline runs by terminal state, failing stage and error kind.",
	}, []string{"state", "stage", "kind"})

	pipelineDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "userfeed",
		Subsystem: "pipeline",
		Name:      "run_duration_seconds",
		Help:      "Duration of create pipeline runs.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"state"})

	storeReadsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "userfeed",
		Subsystem: "store",
		Name:      "list_total",
		Help:      "Full store reads by result.",
	}, []string{"result"})

	archiveGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "userfeed",
		Subsystem: "archive",
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix timestamp of the most recent successful store archive upload.",
	})
)

func init() {
	prometheus.MustRegister(pipelineRunsCounter, pipelineDuration, storeReadsCounter, archiveGauge)
}

// RecordPipelineRun counts one finished pipeline run. stage and kind are
// empty for completed runs.
func RecordPipelineRun(state, stage, kind string, elapsed time.Duration) {
	pipelineRunsCounter.WithLabelValues(state, stage, kind).Inc()
	pipelineDuration.WithLabelValues(state).Observe(elapsed.Seconds())
}

// RecordStoreList counts one full store read.
func RecordStoreList(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	storeReadsCounter.WithLabelValues(result).Inc()
}

// RecordArchiveUploaded updates the archive watermark gauge.
func RecordArchiveUploaded(ts time.Time) {
	if ts.IsZero() {
		return
	}
	archiveGauge.Set(float64(ts.Unix()))
}
