package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(cardsProcessedTotal, extractionSeconds, governorActiveUnits)
}

var cardsProcessedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "cards_processed_total",
		Help: "Total number of cards processed, labeled by final status and card type.",
	},
	[]string{"status", "type"},
)

var extractionSeconds = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "card_extraction_seconds",
		Help:    "Extraction stage latency distribution per card type.",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
	},
	[]string{"type"},
)

var governorActiveUnits = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "governor_active_units",
		Help: "Current cost units admitted by the concurrency governor.",
	},
)

func IncCardProcessed(status, cardType string) {
	cardsProcessedTotal.WithLabelValues(status, cardType).Inc()
}

func ObserveExtraction(cardType string, seconds float64) {
	extractionSeconds.WithLabelValues(cardType).Observe(seconds)
}

func SetGovernorActiveUnits(units int) {
	governorActiveUnits.Set(float64(units))
}
