// Copyright © 2024 Jeff Berkowitz (pdxjjb@gmail.com)
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.

package worldsim

import "github.com/prometheus/client_golang/prometheus"

// Stats is the world's own lightweight counters, copied into every
// Snapshot so a spectator can read them without touching Prometheus at
// all.
type Stats struct {
	AliveBots  int
	QueuedBots int
	DeadBots   int
	TicksTotal uint64
	Kills      uint64
}

// Metrics mirrors Stats as live Prometheus gauges/counters, registered
// against a caller-supplied registry: an instrumentation surface for
// embedders, separate from any in-game scoreboard.
type Metrics struct {
	aliveBots  prometheus.Gauge
	queuedBots prometheus.Gauge
	deadBots   prometheus.Gauge
	ticksTotal prometheus.Counter
	kills      prometheus.Counter
}

// NewMetrics builds and registers the world's gauges/counters against
// reg. name is used as the "world" label so multiple worlds can share a
// registry.
func NewMetrics(reg prometheus.Registerer, name string) *Metrics {
	labels := prometheus.Labels{"world": name}

	m := &Metrics{
		aliveBots: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "kartoffels_alive_bots",
			Help:        "Number of currently alive bots.",
			ConstLabels: labels,
		}),
		queuedBots: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "kartoffels_queued_bots",
			Help:        "Number of bots waiting for a free alive slot.",
			ConstLabels: labels,
		}),
		deadBots: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "kartoffels_dead_bots",
			Help:        "Number of recently dead bots retained for inspection.",
			ConstLabels: labels,
		}),
		ticksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "kartoffels_ticks_total",
			Help:        "Total number of simulation ticks run.",
			ConstLabels: labels,
		}),
		kills: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "kartoffels_kills_total",
			Help:        "Total number of bot deaths.",
			ConstLabels: labels,
		}),
	}

	reg.MustRegister(m.aliveBots, m.queuedBots, m.deadBots, m.ticksTotal, m.kills)

	return m
}

// Update pushes s's values into the registered gauges and advances the
// monotonic counters by the deltas implied since the last call.
func (m *Metrics) Update(s Stats, newKills uint64) {
	if m == nil {
		return
	}

	m.aliveBots.Set(float64(s.AliveBots))
	m.queuedBots.Set(float64(s.QueuedBots))
	m.deadBots.Set(float64(s.DeadBots))
	m.ticksTotal.Inc()

	if newKills > 0 {
		m.kills.Add(float64(newKills))
	}
}
