package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(cacheLookupsTotal) }

var cacheLookupsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_lookups_total",
		Help:      "Media cache lookups by artifact kind and result (hit, miss, dangling).",
	},
	[]string{"kind", "result"},
)

// IncCacheLookup counts one media cache lookup.
func IncCacheLookup(kind, result string) {
	cacheLookupsTotal.WithLabelValues(norm(kind), norm(result)).Inc()
}
