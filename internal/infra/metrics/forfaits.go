package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(forfaitsActivatedTotal, forfaitsDeactivatedTotal)
}

var (
	forfaitsActivatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "forfaits_activated_total",
			Help: "Boosts activated after a successful payment.",
		},
	)

	forfaitsDeactivatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "forfaits_deactivated_total",
			Help: "Boosts deactivated by the daily expiry sweep.",
		},
	)
)

func IncForfaitActivated() { forfaitsActivatedTotal.Inc() }

func AddForfaitsDeactivated(n int) { forfaitsDeactivatedTotal.Add(float64(n)) }
