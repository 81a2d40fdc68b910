package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	FootprintsStored prometheus.Counter
	CoinsMinted      prometheus.Counter
	TreeRebuilds     prometheus.Counter
	TreeLeaves       prometheus.Gauge
}

func New() *Metrics {
	return &Metrics{
		FootprintsStored: promauto.NewCounter(prometheus.CounterOpts{
			Name: "probo_ledger_footprints_stored_total",
			Help: "Total number of footprints stored in the ledger",
		}),
		CoinsMinted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "probo_ledger_coins_minted_total",
			Help: "Total number of coins minted from footprints",
		}),
		TreeRebuilds: promauto.NewCounter(prometheus.CounterOpts{
			Name: "probo_ledger_tree_rebuilds_total",
			Help: "Total number of Merkle tree rebuilds",
		}),
		TreeLeaves: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "probo_ledger_tree_leaves",
			Help: "Leaf count of the active period Merkle tree",
		}),
	}
}

func (m *Metrics) IncrementFootprintsStored() {
	if m != nil {
		m.FootprintsStored.Inc()
	}
}

func (m *Metrics) IncrementCoinsMinted() {
	if m != nil {
		m.CoinsMinted.Inc()
	}
}

func (m *Metrics) ObserveRebuild(leaves int) {
	if m != nil {
		m.TreeRebuilds.Inc()
		m.TreeLeaves.Set(float64(leaves))
	}
}
