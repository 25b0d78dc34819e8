package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StartSolveSpan starts a span for one call into a solver package, tagged
// with the algorithm name, a solve id that also appears in the log lines
// for the same solve, and the size of the graph being solved.
func StartSolveSpan(ctx context.Context, algorithm, solveID string, numNodes, numArcs int) (context.Context, trace.Span) {
	ctx, span := StartSpan(ctx, "solve."+algorithm, trace.WithSpanKind(trace.SpanKindInternal))
	span.SetAttributes(
		attribute.String(AttrAlgorithm, algorithm),
		attribute.String("solve.id", solveID),
		attribute.Int(AttrGraphNodes, numNodes),
		attribute.Int(AttrGraphEdges, numArcs),
	)
	return ctx, span
}

// EndSolveSpan closes a span started by StartSolveSpan, recording err (if
// any) and the iteration count the solve consumed.
func EndSolveSpan(span trace.Span, err error, iterations int) {
	span.SetAttributes(attribute.Int(AttrIterations, iterations))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
