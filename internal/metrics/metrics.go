// Package metrics exposes the server's Prometheus instruments.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "huddle_connections_active",
			Help: "Live signaling connections",
		},
	)

	RoomsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "huddle_rooms_active",
			Help: "Rooms with at least one member",
		},
	)

	JoinsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "huddle_joins_total",
			Help: "Total room joins",
		},
	)

	SignalsRelayed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "huddle_signals_relayed_total",
			Help: "Signaling frames delivered, by event type",
		},
		[]string{"type"},
	)

	ActionsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "huddle_actions_rejected_total",
			Help: "Gated actions rejected for missing role",
		},
		[]string{"action"},
	)
)
