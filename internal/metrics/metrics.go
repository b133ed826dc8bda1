// Package metrics declares the daemon's Prometheus collectors. They are
// registered at package init via promauto and read by internal/diagnostics'
// /metrics endpoint; nothing here depends on whether that endpoint is ever
// started.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/rafaelrc7/idle-inhibitd/internal/graph"
)

var (
	ActiveSinks = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "idle_inhibitd_active_sinks",
		Help: "Number of sinks currently believed to have an active upstream producer",
	})

	EffectiveInhibit = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "idle_inhibitd_effective_inhibit",
		Help: "1 if idle inhibition is currently asserted, 0 otherwise",
	})

	GraphObjects = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "idle_inhibitd_graph_objects",
		Help: "Number of objects currently tracked in the audio graph, by kind",
	}, []string{"kind"})

	ManualTogglesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "idle_inhibitd_manual_toggles_total",
		Help: "Total number of ToggleManual calls received over the bus control surface",
	})
)

// SetEffectiveInhibit records the gauge as 0/1 from a bool.
func SetEffectiveInhibit(v bool) {
	if v {
		EffectiveInhibit.Set(1)
	} else {
		EffectiveInhibit.Set(0)
	}
}

var kindLabel = map[graph.Kind]string{
	graph.KindNode: "node",
	graph.KindPort: "port",
	graph.KindLink: "link",
}

// SetGraphObjects records per-kind object counts from graph.Graph.Counts.
func SetGraphObjects(counts map[graph.Kind]int) {
	for kind, label := range kindLabel {
		GraphObjects.WithLabelValues(label).Set(float64(counts[kind]))
	}
}
