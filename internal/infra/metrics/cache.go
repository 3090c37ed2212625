package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(cacheRequestsTotal, cacheInvalidationsTotal)
}

var (
	cacheRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_requests_total",
			Help: "Cache lookups by entity and result (hit/miss).",
		},
		[]string{"entity", "result"},
	)

	cacheInvalidationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_invalidations_total",
			Help: "Prefix invalidations by namespace, counting evicted keys.",
		},
		[]string{"namespace"},
	)
)

func IncCacheRequest(entity, result string) {
	cacheRequestsTotal.WithLabelValues(norm(entity), norm(result)).Inc()
}

func AddCacheInvalidated(namespace string, keys int) {
	cacheInvalidationsTotal.WithLabelValues(norm(namespace)).Add(float64(keys))
}
