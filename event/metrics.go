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

package event

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type eventMetrics struct {
	eventsTotal    *prometheus.CounterVec
	subscribers    *prometheus.GaugeVec
	deliveryErrors *prometheus.CounterVec
}

func (m *eventMetrics) init(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	m.eventsTotal = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quorum_event_published_total",
			Help: "total events published by type",
		},
		[]string{"type"},
	)
	m.subscribers = promautoFactory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "quorum_event_subscribers",
			Help: "current subscribers by event type",
		},
		[]string{"type"},
	)
	m.deliveryErrors = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quorum_event_delivery_errors_total",
			Help: "events that failed delivery or were dropped",
		},
		[]string{"type"},
	)
}
