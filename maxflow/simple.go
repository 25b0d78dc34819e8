package maxflow

import (
	"context"

	"flowengine/flowstatus"
	"flowengine/graph"
	"flowengine/pkg/apperror"
	"flowengine/pkg/cache"
)

// Simple is the builder-style max-flow façade from spec.md §4.F/§6: callers
// add arcs by (tail, head, capacity) without managing a FlowGraph or a
// Solver directly.
type Simple struct {
	g      *graph.FlowGraph
	caps   []int64
	tails  []int32
	heads  []int32
	solver *Solver
	perm   []int32

	solveCache  *cache.SolverCache
	cachedFlows []int64
	cachedFlow  int64

	lastValidation *apperror.ValidationErrors
}

// NewSimple returns an empty builder.
func NewSimple() *Simple {
	return &Simple{g: graph.New()}
}

// SetCache attaches a SolverCache keyed on graph topology and algorithm
// name ("maxflow"); subsequent Solve calls check it before running
// push-relabel and populate it after an Optimal solve. Nil (the default)
// disables caching.
func (s *Simple) SetCache(c *cache.SolverCache) { s.solveCache = c }

// AddArcWithCapacity appends an arc and returns its index, stable across
// Solve calls, for later use with Flow/Capacity/SetArcCapacity.
func (s *Simple) AddArcWithCapacity(tail, head int32, capacity int64) int32 {
	id := int32(len(s.tails))
	s.g.AddArc(tail, head)
	s.tails = append(s.tails, tail)
	s.heads = append(s.heads, head)
	s.caps = append(s.caps, capacity)
	return id
}

// SetArcCapacity updates arc a's capacity. Valid before or after Solve;
// changing it after Solve requires calling Solve again.
func (s *Simple) SetArcCapacity(a int32, capacity int64) {
	s.caps[a] = capacity
	if s.solver != nil {
		s.solver.SetArcCapacity(s.perm[a], capacity)
	}
}

// NumNodes returns the number of distinct node indices referenced so far.
func (s *Simple) NumNodes() int32 { return s.g.NumNodes() }

// NumArcs returns the number of arcs added via AddArcWithCapacity.
func (s *Simple) NumArcs() int32 { return int32(len(s.tails)) }

// Tail returns arc a's source node.
func (s *Simple) Tail(a int32) int32 { return s.tails[a] }

// Head returns arc a's destination node.
func (s *Simple) Head(a int32) int32 { return s.heads[a] }

// Capacity returns arc a's configured capacity.
func (s *Simple) Capacity(a int32) int64 { return s.caps[a] }

// validate runs the field-level checks a user-facing builder owes its
// caller before a graph reaches a Solver, aggregating every violation found
// rather than stopping at the first one. The result is always non-nil and
// is retained for LastValidationErrors regardless of outcome.
func (s *Simple) validate(source, sink int32) *apperror.ValidationErrors {
	ve := apperror.NewValidationErrors()
	if s.NumArcs() == 0 {
		ve.AddError(apperror.CodeEmptyGraph, "graph has no arcs")
	}
	if source < 0 || source >= s.g.NumNodes() {
		ve.AddErrorWithField(apperror.CodeInvalidSource, "source node out of range", "source")
	}
	if sink < 0 || sink >= s.g.NumNodes() {
		ve.AddErrorWithField(apperror.CodeInvalidSink, "sink node out of range", "sink")
	}
	if source == sink && source >= 0 && source < s.g.NumNodes() {
		ve.AddErrorWithField(apperror.CodeSourceEqualsSink, "source and sink must differ", "sink")
	}
	for a, cap := range s.caps {
		if cap < 0 {
			ve.AddErrorWithField(apperror.CodeNegativeCapacity, "arc capacity must be non-negative", "capacity").
				WithDetails("arc", a)
		}
	}
	return ve
}

// LastValidationErrors returns the ValidationErrors built by the most
// recent Solve call, or nil if Solve has not been called yet.
func (s *Simple) LastValidationErrors() *apperror.ValidationErrors { return s.lastValidation }

// Solve finalizes the graph (on first call only) and runs push-relabel
// between source and sink, returning the resulting status. Per spec.md §7,
// an out-of-range source/sink, source == sink, a negative-capacity arc, or
// an empty graph is reported as BadInput rather than silently treated as a
// disconnected graph, since Simple is a validating, user-facing entry
// point; the underlying field-tagged errors are available afterward via
// LastValidationErrors.
func (s *Simple) Solve(ctx context.Context, source, sink int32) flowstatus.Status {
	s.lastValidation = s.validate(source, sink)
	if s.lastValidation.HasErrors() {
		s.solver = nil
		return flowstatus.BadInput
	}

	s.cachedFlows = nil
	var key cache.GraphInput
	if s.solveCache != nil {
		key = s.graphInput(source, sink)
		if result, ok, err := s.solveCache.Get(ctx, key, "maxflow"); err == nil && ok {
			s.solver = nil
			s.applyCachedResult(result)
			return flowstatus.Optimal
		}
	}

	if !s.g.IsFinalized() {
		perm, err := s.g.Finalize(graph.DefaultFinalizeOptions())
		if err != nil {
			wrapped := apperror.Wrap(err, apperror.CodeInvalidGraph, "graph finalize failed")
			s.lastValidation.AddError(wrapped.Code, wrapped.Message)
			return flowstatus.BadInput
		}
		s.perm = perm
	}

	s.solver = NewSolver(s.g, source, sink)
	for a, cap := range s.caps {
		s.solver.SetArcCapacity(s.perm[a], cap)
	}
	status := s.solver.Solve(ctx)

	if status == flowstatus.Optimal && s.solveCache != nil {
		_ = s.solveCache.Set(ctx, key, "maxflow", s.cacheableResult(), 0)
	}
	return status
}

// graphInput builds the cache key material for the current builder state.
func (s *Simple) graphInput(source, sink int32) cache.GraphInput {
	arcs := make([]cache.GraphArc, len(s.tails))
	for i := range s.tails {
		arcs[i] = cache.GraphArc{Tail: s.tails[i], Head: s.heads[i], Capacity: float64(s.caps[i])}
	}
	return cache.GraphInput{SourceID: source, SinkID: sink, Arcs: arcs}
}

// cacheableResult snapshots the last solve's flows in builder-arc order, so
// a later cache hit can answer Flow/OptimalFlow without re-solving.
func (s *Simple) cacheableResult() *cache.CachedResult {
	arcs := make([]cache.CachedFlowArc, len(s.tails))
	for i := range s.tails {
		arcs[i] = cache.CachedFlowArc{
			Tail:     s.tails[i],
			Head:     s.heads[i],
			Flow:     float64(s.solver.Flow(s.perm[i])),
			Capacity: float64(s.caps[i]),
		}
	}
	return &cache.CachedResult{
		FlowValue: float64(s.solver.OptimalFlow()),
		Status:    flowstatus.Optimal.String(),
		FlowArcs:  arcs,
	}
}

// applyCachedResult restores Flow/OptimalFlow from a cache hit without
// allocating a Solver.
func (s *Simple) applyCachedResult(result *cache.CachedResult) {
	s.cachedFlows = make([]int64, len(result.FlowArcs))
	for i, a := range result.FlowArcs {
		s.cachedFlows[i] = int64(a.Flow)
	}
	s.cachedFlow = int64(result.FlowValue)
}

// OptimalFlow returns the maximum flow value found by the last Solve call.
func (s *Simple) OptimalFlow() int64 {
	if s.cachedFlows != nil {
		return s.cachedFlow
	}
	if s.solver == nil {
		return 0
	}
	return s.solver.OptimalFlow()
}

// Flow returns the flow assigned to user arc a by the last Solve call.
func (s *Simple) Flow(a int32) int64 {
	if s.cachedFlows != nil {
		return s.cachedFlows[a]
	}
	if s.solver == nil {
		return 0
	}
	return s.solver.Flow(s.perm[a])
}

// GetSourceSideMinCut appends the source-side minimum cut's nodes to out.
func (s *Simple) GetSourceSideMinCut(out *[]int32) {
	if s.solver != nil {
		s.solver.GetSourceSideMinCut(out)
	}
}

// GetSinkSideMinCut appends the sink-side minimum cut's nodes to out.
func (s *Simple) GetSinkSideMinCut(out *[]int32) {
	if s.solver != nil {
		s.solver.GetSinkSideMinCut(out)
	}
}
