package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	Attempts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "flasharb_attempts_total",
		Help: "Number of arbitrage invocations submitted",
	})

	Settled = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "flasharb_settled_total",
		Help: "Number of invocations that settled with profit",
	})

	Reverted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "flasharb_reverted_total",
		Help: "Number of reverted invocations by reason",
	}, []string{"reason"})

	ProfitWei = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "flasharb_profit_units_total",
		Help: "Cumulative realized profit in owed-asset units",
	})

	SpreadBps = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "flasharb_spread_bps",
		Help: "Last observed cross-venue spread in basis points",
	})
)

func init() {
	prometheus.MustRegister(
		Attempts,
		Settled,
		Reverted,
		ProfitWei,
		SpreadBps,
	)
}
