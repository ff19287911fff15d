package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(contextQueriesTotal, contextChunksReturned) }

var contextQueriesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "context_queries_total",
		Help: "Context assembly queries, labeled by outcome (hit/empty/error).",
	},
	[]string{"outcome"},
)

var contextChunksReturned = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "context_chunks_returned",
		Help:    "Number of chunks in the assembled context per query.",
		Buckets: []float64{0, 1, 2, 5, 10, 15, 25},
	},
)

func IncContextQuery(outcome string) {
	contextQueriesTotal.WithLabelValues(outcome).Inc()
}

func ObserveContextChunks(n int) {
	contextChunksReturned.Observe(float64(n))
}
