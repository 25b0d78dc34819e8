package mincostflow

import (
	"context"

	"flowengine/flowstatus"
	"flowengine/graph"
	"flowengine/maxflow"
	"flowengine/pkg/apperror"
	"flowengine/pkg/cache"
)

// Simple is the builder-style min-cost-flow façade from spec.md §4.F/§6.
type Simple struct {
	g            *graph.FlowGraph
	tails        []int32
	heads        []int32
	caps         []int64
	costs        []int64
	supply       map[int32]int64
	solver       *Solver
	perm         []int32
	priceScaling *bool

	cachedFlows []int64
	cachedCost  int64

	lastValidation *apperror.ValidationErrors
}

// NewSimple returns an empty builder.
func NewSimple() *Simple {
	return &Simple{g: graph.New(), supply: make(map[int32]int64)}
}

// AddArcWithCapacityAndUnitCost appends an arc and returns its stable index.
func (s *Simple) AddArcWithCapacityAndUnitCost(tail, head int32, capacity, cost int64) int32 {
	id := int32(len(s.tails))
	s.g.AddArc(tail, head)
	s.tails = append(s.tails, tail)
	s.heads = append(s.heads, head)
	s.caps = append(s.caps, capacity)
	s.costs = append(s.costs, cost)
	return id
}

// NumArcs returns the number of arcs added via AddArcWithCapacityAndUnitCost.
func (s *Simple) NumArcs() int32 { return int32(len(s.tails)) }

// Tail returns arc a's source node.
func (s *Simple) Tail(a int32) int32 { return s.tails[a] }

// Head returns arc a's destination node.
func (s *Simple) Head(a int32) int32 { return s.heads[a] }

// Capacity returns arc a's configured capacity.
func (s *Simple) Capacity(a int32) int64 { return s.caps[a] }

// SetNodeSupply sets node n's supply (negative for demand).
func (s *Simple) SetNodeSupply(n int32, supply int64) { s.supply[n] = supply }

// SetPriceScaling forwards to the underlying Solver's option of the same
// name on the next Solve call.
func (s *Simple) SetPriceScaling(enabled bool) { s.priceScaling = &enabled }

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

// OptimalCost returns the last Solve call's optimal cost.
func (s *Simple) OptimalCost() int64 {
	if s.cachedFlows != nil {
		return s.cachedCost
	}
	if s.solver == nil {
		return 0
	}
	return s.solver.OptimalCost()
}

// cacheableResult snapshots the last solve's flows in builder-arc order, so
// a later cache hit can answer Flow/OptimalCost without re-solving.
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
		TotalCost: s.solver.OptimalCost(),
		Status:    flowstatus.Optimal.String(),
		FlowArcs:  arcs,
	}
}

// applyCachedResult restores Flow/OptimalCost from a cache hit without
// allocating a Solver.
func (s *Simple) applyCachedResult(result *cache.CachedResult) {
	s.cachedFlows = make([]int64, len(result.FlowArcs))
	for i, a := range result.FlowArcs {
		s.cachedFlows[i] = int64(a.Flow)
	}
	s.cachedCost = result.TotalCost
}

// validate runs the field-level checks owed to a caller before a graph
// reaches a Solver, aggregating every violation found rather than stopping
// at the first one.
func (s *Simple) validate() *apperror.ValidationErrors {
	ve := apperror.NewValidationErrors()
	if s.NumArcs() == 0 {
		ve.AddError(apperror.CodeEmptyGraph, "graph has no arcs")
	}
	for a, cap := range s.caps {
		if cap < 0 {
			ve.AddErrorWithField(apperror.CodeNegativeCapacity, "arc capacity must be non-negative", "capacity").
				WithDetails("arc", a)
		}
	}
	for n := range s.supply {
		if n < 0 || n >= s.g.NumNodes() {
			ve.AddErrorWithField(apperror.CodeInvalidSource, "supply set on out-of-range node", "supply").
				WithDetails("node", n)
		}
	}
	return ve
}

// LastValidationErrors returns the ValidationErrors built by the most
// recent Solve call, or nil if Solve has not been called yet.
func (s *Simple) LastValidationErrors() *apperror.ValidationErrors { return s.lastValidation }

// Solve finalizes the graph (on first call only) and runs the cost-scaling
// solver, returning the resulting status. Per spec.md §7, an empty graph, a
// negative-capacity arc, or supply set on an out-of-range node is reported
// as BadInput; the underlying field-tagged errors are available afterward
// via LastValidationErrors.
func (s *Simple) Solve(ctx context.Context) flowstatus.Status {
	s.cachedFlows = nil
	s.lastValidation = s.validate()
	if s.lastValidation.HasErrors() {
		s.solver = nil
		return flowstatus.BadInput
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

	s.solver = NewSolver(s.g)
	for a := range s.tails {
		s.solver.SetArcCapacity(s.perm[a], s.caps[a])
		s.solver.SetArcUnitCost(s.perm[a], s.costs[a])
	}
	for n, sup := range s.supply {
		s.solver.SetNodeSupply(n, sup)
	}
	if s.priceScaling != nil {
		s.solver.SetPriceScaling(*s.priceScaling)
	}
	return s.solver.Solve(ctx)
}

// SimpleMaxFlowMinCost is the §4.F/§6 wrapper that finds the maximum flow
// between source and sink, then resolves ties among maximum flows by
// minimum cost: it first runs plain max-flow (ignoring cost) to learn the
// flow value, then pins supply(source) = demand(sink) = that value and
// solves min-cost-flow for exactly that amount.
type SimpleMaxFlowMinCost struct {
	Simple
	maxFlowValue int64
	solveCache   *cache.SolverCache
}

// NewSimpleMaxFlowMinCost returns an empty builder.
func NewSimpleMaxFlowMinCost() *SimpleMaxFlowMinCost {
	return &SimpleMaxFlowMinCost{Simple: *NewSimple()}
}

// SetCache attaches a SolverCache keyed on graph topology (including arc
// cost) and algorithm name ("mincostflow_maxmincost"); subsequent
// SolveMaxFlowWithMinCost calls check it before solving and populate it
// after an Optimal solve. Nil (the default) disables caching.
func (s *SimpleMaxFlowMinCost) SetCache(c *cache.SolverCache) { s.solveCache = c }

func (s *SimpleMaxFlowMinCost) graphInput(source, sink int32) cache.GraphInput {
	arcs := make([]cache.GraphArc, len(s.tails))
	for i := range s.tails {
		arcs[i] = cache.GraphArc{Tail: s.tails[i], Head: s.heads[i], Capacity: float64(s.caps[i]), Cost: s.costs[i]}
	}
	return cache.GraphInput{SourceID: source, SinkID: sink, Arcs: arcs}
}

// SolveMaxFlowWithMinCost finds the maximum flow value between source and
// sink using the arcs' capacities (ignoring cost), then solves min-cost
// flow constrained to exactly that flow value.
func (s *SimpleMaxFlowMinCost) SolveMaxFlowWithMinCost(ctx context.Context, source, sink int32) flowstatus.Status {
	var key cache.GraphInput
	if s.solveCache != nil {
		key = s.graphInput(source, sink)
		if result, ok, err := s.solveCache.Get(ctx, key, "mincostflow_maxmincost"); err == nil && ok {
			s.solver = nil
			s.maxFlowValue = int64(result.FlowValue)
			s.applyCachedResult(result)
			return flowstatus.Optimal
		}
	}

	mf := maxflow.NewSimple()
	for a := range s.tails {
		mf.AddArcWithCapacity(s.tails[a], s.heads[a], s.caps[a])
	}
	status := mf.Solve(ctx, source, sink)
	if status != flowstatus.Optimal {
		s.lastValidation = mf.LastValidationErrors()
		return status
	}
	s.maxFlowValue = mf.OptimalFlow()

	for n := range s.supply {
		delete(s.supply, n)
	}
	s.supply[source] = s.maxFlowValue
	s.supply[sink] = -s.maxFlowValue
	status = s.Solve(ctx)

	if status == flowstatus.Optimal && s.solveCache != nil {
		result := s.cacheableResult()
		result.FlowValue = float64(s.maxFlowValue)
		_ = s.solveCache.Set(ctx, key, "mincostflow_maxmincost", result, 0)
	}
	return status
}

// MaximumFlow returns the max-flow value found by the last
// SolveMaxFlowWithMinCost call.
func (s *SimpleMaxFlowMinCost) MaximumFlow() int64 { return s.maxFlowValue }
