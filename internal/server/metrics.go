package server

import "github.com/prometheus/client_golang/prometheus"

var (
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tgcreative_http_requests_total",
			Help: "HTTP requests by route and status class",
		},
		[]string{"route", "status"},
	)

	analyzeShared = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tgcreative_analyze_shared_total",
			Help: "Analyze requests answered from an in-flight run for the same channel",
		},
	)
)

func init() {
	prometheus.MustRegister(httpRequests)
	prometheus.MustRegister(analyzeShared)
}
