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

package proposal

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type registryMetrics struct {
	proposalsTotal prometheus.Counter
	votesTotal     *prometheus.CounterVec
	transitions    *prometheus.CounterVec
}

func (m *registryMetrics) init(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	m.proposalsTotal = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "quorum_proposals_created_total",
		Help: "total proposals created",
	})
	m.votesTotal = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quorum_votes_cast_total",
			Help: "total votes cast by support",
		},
		[]string{"support"},
	)
	m.transitions = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quorum_proposal_transitions_total",
			Help: "stored proposal state transitions by target state",
		},
		[]string{"state"},
	)
}
