package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "meethub_connections_active",
		Help: "Currently connected participants",
	})

	RoomsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "meethub_rooms_active",
		Help: "Rooms with at least one connected participant",
	})

	MessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meethub_messages_total",
		Help: "Inbound websocket messages by type",
	}, []string{"type"})

	SignalsRelayed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meethub_signals_relayed_total",
		Help: "Negotiation envelopes relayed, by delivery outcome",
	}, []string{"outcome"})

	TasksActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "meethub_enrichment_tasks_active",
		Help: "Running enrichment tasks by kind",
	}, []string{"kind"})

	ProviderDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "meethub_provider_duration_seconds",
		Help:    "AI provider call latency",
		Buckets: []float64{0.05, 0.1, 0.2, 0.5, 1.0, 2.0, 5.0, 10.0},
	}, []string{"provider"})

	ProviderErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meethub_provider_errors_total",
		Help: "AI provider call failures",
	}, []string{"provider"})

	PersistenceErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "meethub_persistence_errors_total",
		Help: "Best-effort meeting record writes that failed",
	})
)
