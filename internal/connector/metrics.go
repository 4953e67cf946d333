package connector

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "harbor_connector"

// Metrics are registered on a registry owned by one Connector.
type Metrics struct {
	Refreshes     *prometheus.CounterVec
	LastRefresh   *prometheus.GaugeVec
	Warnings      *prometheus.CounterVec
	Transitions   *prometheus.CounterVec
	FillUpdates   prometheus.Counter
	Submissions   *prometheus.CounterVec
	TrackedOrders prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Refreshes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "refreshes_total",
				Help:      "Snapshot refreshes by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		LastRefresh: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "last_refresh_timestamp_seconds",
				Help:      "Unix time of the last successful refresh by kind",
			},
			[]string{"kind"},
		),
		Warnings: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "warnings_total",
				Help:      "Warnings recorded by source",
			},
			[]string{"source"},
		),
		Transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "order_transitions_total",
				Help:      "Order state changes by target state",
			},
			[]string{"state"},
		),
		FillUpdates: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "order_fill_updates_total",
				Help:      "Increases of a tracked order's filled size",
			},
		),
		Submissions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "order_submissions_total",
				Help:      "Order submissions by acknowledgment outcome",
			},
			[]string{"outcome"},
		),
		TrackedOrders: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "tracked_orders",
				Help:      "Orders currently held in the order table",
			},
		),
	}
}
