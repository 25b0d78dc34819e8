package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors the solver packages report against. It is
// registered by the caller, never against the global default registry, so
// that an embedding application controls its own /metrics exposition.
type Metrics struct {
	SolveOperationsTotal *prometheus.CounterVec
	SolveDuration        *prometheus.HistogramVec
	FlowValue            *prometheus.GaugeVec

	RelabelsTotal      *prometheus.CounterVec
	PushesTotal        *prometheus.CounterVec
	GlobalUpdatesTotal *prometheus.CounterVec

	GraphNodesTotal *prometheus.HistogramVec
	GraphEdgesTotal *prometheus.HistogramVec

	ServiceInfo *prometheus.GaugeVec
}

// New builds the collector set and registers it against reg. Passing
// prometheus.NewRegistry() keeps the package isolated from the global
// default registry, which matters for libraries embedded more than once
// in the same process (e.g. in tests).
func New(reg prometheus.Registerer, namespace, subsystem string) *Metrics {
	m := &Metrics{
		SolveOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "solve_operations_total",
				Help:      "Total number of solve operations",
			},
			[]string{"algorithm", "status"},
		),

		SolveDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "solve_duration_seconds",
				Help:      "Duration of solve operations",
				Buckets:   []float64{.001, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"algorithm"},
		),

		FlowValue: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "flow_value",
				Help:      "Value of the last computed flow or cost",
			},
			[]string{"algorithm"},
		),

		RelabelsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "relabels_total",
				Help:      "Total number of node relabel operations",
			},
			[]string{"algorithm"},
		),

		PushesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "pushes_total",
				Help:      "Total number of push operations",
			},
			[]string{"algorithm"},
		),

		GlobalUpdatesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "global_updates_total",
				Help:      "Total number of global relabeling passes",
			},
			[]string{"algorithm"},
		),

		GraphNodesTotal: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "graph_nodes_total",
				Help:      "Number of nodes in solved graphs",
				Buckets:   []float64{10, 50, 100, 500, 1000, 5000, 10000, 50000},
			},
			[]string{"algorithm"},
		),

		GraphEdgesTotal: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "graph_edges_total",
				Help:      "Number of arcs in solved graphs",
				Buckets:   []float64{20, 100, 500, 1000, 5000, 10000, 50000, 100000},
			},
			[]string{"algorithm"},
		),

		ServiceInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "build_info",
				Help:      "Build information",
			},
			[]string{"version"},
		),
	}

	reg.MustRegister(
		m.SolveOperationsTotal,
		m.SolveDuration,
		m.FlowValue,
		m.RelabelsTotal,
		m.PushesTotal,
		m.GlobalUpdatesTotal,
		m.GraphNodesTotal,
		m.GraphEdgesTotal,
		m.ServiceInfo,
	)

	return m
}

// RecordSolve records the outcome of a single solve call.
func (m *Metrics) RecordSolve(algorithm string, success bool, duration time.Duration, flowValue float64) {
	status := "success"
	if !success {
		status = "error"
	}

	m.SolveOperationsTotal.WithLabelValues(algorithm, status).Inc()
	m.SolveDuration.WithLabelValues(algorithm).Observe(duration.Seconds())
	m.FlowValue.WithLabelValues(algorithm).Set(flowValue)
}

// RecordGraphSize records the size of a graph passed into a solve.
func (m *Metrics) RecordGraphSize(algorithm string, nodes, edges int) {
	m.GraphNodesTotal.WithLabelValues(algorithm).Observe(float64(nodes))
	m.GraphEdgesTotal.WithLabelValues(algorithm).Observe(float64(edges))
}

// AddRelabels increments the relabel counter for algorithm by n.
func (m *Metrics) AddRelabels(algorithm string, n int) {
	m.RelabelsTotal.WithLabelValues(algorithm).Add(float64(n))
}

// AddPushes increments the push counter for algorithm by n.
func (m *Metrics) AddPushes(algorithm string, n int) {
	m.PushesTotal.WithLabelValues(algorithm).Add(float64(n))
}

// AddGlobalUpdates increments the global-update counter for algorithm by n.
func (m *Metrics) AddGlobalUpdates(algorithm string, n int) {
	m.GlobalUpdatesTotal.WithLabelValues(algorithm).Add(float64(n))
}

// SetBuildInfo publishes the running build version as a labeled gauge.
func (m *Metrics) SetBuildInfo(version string) {
	m.ServiceInfo.WithLabelValues(version).Set(1)
}
