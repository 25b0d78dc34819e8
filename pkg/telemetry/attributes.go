package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Standard attribute keys shared across spans.
const (
	AttrGraphNodes    = "graph.nodes"
	AttrGraphEdges    = "graph.edges"
	AttrGraphSourceID = "graph.source_id"
	AttrGraphSinkID   = "graph.sink_id"

	AttrAlgorithm  = "algorithm.name"
	AttrIterations = "algorithm.iterations"
	AttrMaxFlow    = "algorithm.max_flow"
	AttrTotalCost  = "algorithm.total_cost"

	AttrValidationErrors = "validation.errors"
	AttrValidationPassed = "validation.passed"
)

// GraphAttributes returns the standard attribute set describing a graph.
func GraphAttributes(nodes, edges int, sourceID, sinkID int64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrGraphNodes, nodes),
		attribute.Int(AttrGraphEdges, edges),
		attribute.Int64(AttrGraphSourceID, sourceID),
		attribute.Int64(AttrGraphSinkID, sinkID),
	}
}

// AlgorithmAttributes returns the standard attribute set describing the
// outcome of an algorithm run.
func AlgorithmAttributes(name string, iterations int, maxFlow, totalCost float64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrAlgorithm, name),
		attribute.Int(AttrIterations, iterations),
		attribute.Float64(AttrMaxFlow, maxFlow),
		attribute.Float64(AttrTotalCost, totalCost),
	}
}

// ValidationAttributes returns the attribute set describing an input
// validation pass over a graph before a solve.
func ValidationAttributes(errorsCount int, passed bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrValidationErrors, errorsCount),
		attribute.Bool(AttrValidationPassed, passed),
	}
}
