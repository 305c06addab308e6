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

package treasury

import (
	"math/big"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/blinklabs-io/quorum/types"
)

type vaultMetrics struct {
	balance     *prometheus.GaugeVec
	withdrawals *prometheus.CounterVec
	paused      prometheus.Gauge
}

func (m *vaultMetrics) init(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	m.balance = promautoFactory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "quorum_treasury_balance",
			Help: "treasury balance by asset in base units (approximate)",
		},
		[]string{"asset"},
	)
	m.withdrawals = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quorum_treasury_withdrawals_total",
			Help: "withdrawal queue operations by outcome",
		},
		[]string{"status"},
	)
	m.paused = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "quorum_treasury_paused",
		Help: "whether withdrawals are paused (0 or 1)",
	})
}

func (m *vaultMetrics) setBalance(asset types.Asset, amount types.Amount) {
	f, _ := new(big.Float).SetInt(amount.Big()).Float64()
	m.balance.WithLabelValues(types.AssetName(asset)).Set(f)
}
