// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ledger

import (
	"math/big"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/blinklabs-io/quorum/types"
)

type ledgerMetrics struct {
	totalSupply      prometheus.Gauge
	accounts         prometheus.Gauge
	transfersTotal   prometheus.Counter
	delegationsTotal prometheus.Counter
	checkpointsTotal prometheus.Counter
}

func (m *ledgerMetrics) init(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	m.totalSupply = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "quorum_ledger_total_supply",
		Help: "current token supply in base units (approximate)",
	})
	m.accounts = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "quorum_ledger_accounts",
		Help: "number of accounts holding a balance or voting power history",
	})
	m.transfersTotal = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "quorum_ledger_transfers_total",
		Help: "total balance movements, including mints and burns",
	})
	m.delegationsTotal = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "quorum_ledger_delegations_total",
		Help: "total delegation changes",
	})
	m.checkpointsTotal = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "quorum_ledger_checkpoints_total",
		Help: "total voting power checkpoint writes",
	})
}

func amountFloat(a types.Amount) float64 {
	f, _ := new(big.Float).SetInt(a.Big()).Float64()
	return f
}
