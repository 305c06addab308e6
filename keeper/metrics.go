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

package keeper

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type keeperMetrics struct {
	finalized prometheus.Counter
	queued    prometheus.Counter
	executed  prometheus.Counter
	failures  prometheus.Counter
}

func (m *keeperMetrics) init(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	m.finalized = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "quorum_keeper_finalized_total",
		Help: "proposals finalized by the keeper",
	})
	m.queued = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "quorum_keeper_queued_total",
		Help: "proposals queued by the keeper",
	})
	m.executed = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "quorum_keeper_executed_total",
		Help: "proposals executed by the keeper",
	})
	m.failures = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "quorum_keeper_failures_total",
		Help: "keeper proposal actions that returned an error",
	})
}

func (m *keeperMetrics) inc(c prometheus.Counter) {
	if c != nil {
		c.Inc()
	}
}
