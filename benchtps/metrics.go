package benchtps

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the load driver's Prometheus collectors, registered against
// a caller-supplied registry so multiple Drivers in one process (or in
// tests) don't collide on the default global registry.
type Metrics struct {
	TxSent       prometheus.Counter
	NodeTPS      *prometheus.GaugeVec
	TokenBalance prometheus.Gauge
}

// NewMetrics creates and registers a Driver's collectors against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TxSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "benchtps",
			Name:      "transactions_sent_total",
			Help:      "Total transactions submitted by the load driver.",
		}),
		NodeTPS: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "benchtps",
			Name:      "node_tps",
			Help:      "Most recently sampled transactions-per-second for a node.",
		}, []string{"node"}),
		TokenBalance: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "benchtps",
			Name:      "source_account_balance",
			Help:      "Current balance of the load driver's source account.",
		}),
	}
	reg.MustRegister(m.TxSent, m.NodeTPS, m.TokenBalance)
	return m
}
