package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(recommendationsGenerated) }

var recommendationsGenerated = prometheus.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Name:      "recommendations_generated",
	Help:      "Number of clips in the current recommendation set.",
})

// SetRecommendations records the size of the latest recommendation set.
func SetRecommendations(n int) {
	recommendationsGenerated.Set(float64(n))
}
