package channel

import "github.com/prometheus/client_golang/prometheus"

var (
	pipelineRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tgcreative_pipeline_runs_total",
			Help: "Channel pipeline runs by outcome",
		},
		[]string{"outcome"},
	)

	historyOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tgcreative_history_outcomes_total",
			Help: "Authenticated history aggregation outcomes, one per run (ok, disabled, failed, timeout)",
		},
		[]string{"outcome"},
	)

	mediaDownloads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tgcreative_media_downloads_total",
			Help: "Media download attempts during aggregation",
		},
		[]string{"result"},
	)

	pipelineDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tgcreative_pipeline_duration_seconds",
			Help:    "Wall-clock duration of successful pipeline runs",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 180, 240},
		},
	)
)

func init() {
	prometheus.MustRegister(pipelineRuns)
	prometheus.MustRegister(historyOutcomes)
	prometheus.MustRegister(mediaDownloads)
	prometheus.MustRegister(pipelineDuration)
}
