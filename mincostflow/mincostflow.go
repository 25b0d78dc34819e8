// Package mincostflow implements the cost-scaling push-relabel min-cost-flow
// core described in spec.md §4.D: ε-scaling over node potentials, a
// Refine/Discharge/Relabel loop with push look-ahead, Goldberg's
// UpdatePrices global potential update, and a feasibility probe (§4.E)
// built on the maxflow package.
package mincostflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"flowengine/flowstatus"
	"flowengine/graph"
	"flowengine/maxflow"
	"flowengine/pkg/apperror"
	"flowengine/pkg/logging"
	"flowengine/pkg/metrics"
	"flowengine/pkg/telemetry"
)

const defaultAlpha = 5

// overflowPotential bounds how negative a node potential may go before the
// solver gives up with BadCostRange (spec.md §4.D's relabel overflow path).
const overflowPotential = -(int64(1) << 56)

// Solver computes a minimum-cost flow realizing a supply/demand assignment
// on a finalized FlowGraph.
//
// Public operations mirror spec.md §4.D: SetArcUnitCost, SetArcCapacity,
// SetNodeSupply, Solve, OptimalCost, Flow, SetCheckFeasibility,
// SetPriceScaling, SetUseUpdatePrices.
type Solver struct {
	g *graph.FlowGraph
	n int32

	capacity []int64 // residual
	initial  []int64
	cost     []int64 // original, unscaled cost per arc; cost[reverse(a)] == -cost[a]
	scaled   []int64 // scaled cost used during solve

	supply []int64 // per-node target excess
	excess []int64

	potential  []int64
	currentArc []int32

	alpha            int64
	priceScaling     bool
	checkFeasibility bool
	useUpdatePrices  bool

	epsilon int64
	status  flowstatus.Status

	metrics *metrics.Metrics

	pushes, relabels, globalUpdates int64
}

// SetMetrics attaches a caller-owned metrics collector; subsequent Solve
// calls record solve duration, cost, and push/relabel/global-update
// counters against it. Nil (the default) disables recording.
func (s *Solver) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// NewSolver returns a Solver over g, which must already be finalized.
func NewSolver(g *graph.FlowGraph) *Solver {
	n := g.NumNodes()
	numArcs := g.NumArcs()
	return &Solver{
		g:                g,
		n:                n,
		capacity:         make([]int64, numArcs),
		initial:          make([]int64, numArcs),
		cost:             make([]int64, numArcs),
		scaled:           make([]int64, numArcs),
		supply:           make([]int64, n),
		excess:           make([]int64, n),
		potential:        make([]int64, n),
		currentArc:       make([]int32, n),
		alpha:            defaultAlpha,
		priceScaling:     true,
		checkFeasibility: true,
		useUpdatePrices:  true,
		status:           flowstatus.NotSolved,
	}
}

// SetArcUnitCost sets arc a's cost and mirrors the negation onto its
// reverse arc, so cost(a) + cost(reverse(a)) == 0 always holds.
func (s *Solver) SetArcUnitCost(a int32, c int64) {
	s.cost[a] = c
	s.cost[s.g.Reverse(a)] = -c
}

// SetArcCapacity sets arc a's capacity. If flow already exists on a and
// exceeds the new capacity, the excess is pushed back along the reverse
// arc (spec.md §4.D's capacity fix-up).
func (s *Solver) SetArcCapacity(a int32, capacity int64) {
	currentFlow := s.initial[a] - s.capacity[a]
	if currentFlow > capacity {
		delta := currentFlow - capacity
		r := s.g.Reverse(a)
		s.capacity[a] += delta
		s.capacity[r] -= delta
		s.excess[s.g.Tail(a)] += delta
		s.excess[s.g.Head(a)] -= delta
		currentFlow = capacity
	}
	s.initial[a] = capacity
	s.capacity[a] = capacity - currentFlow
}

// SetNodeSupply sets node n's supply (negative for demand).
func (s *Solver) SetNodeSupply(n int32, supply int64) {
	s.supply[n] = supply
}

// SetCheckFeasibility toggles the pre-solve feasibility probe (§4.E),
// enabled by default.
func (s *Solver) SetCheckFeasibility(enabled bool) { s.checkFeasibility = enabled }

// SetPriceScaling toggles multiplying costs by (num_nodes+1) before
// scaling; enabled by default. Disable when the caller has already
// pre-scaled costs.
func (s *Solver) SetPriceScaling(enabled bool) { s.priceScaling = enabled }

// SetUseUpdatePrices toggles Goldberg's periodic global potential update,
// enabled by default.
func (s *Solver) SetUseUpdatePrices(enabled bool) { s.useUpdatePrices = enabled }

// Capacity returns arc a's original (pre-solve) capacity.
func (s *Solver) Capacity(a int32) int64 { return s.initial[a] }

// Flow returns the flow on arc a.
func (s *Solver) Flow(a int32) int64 { return s.initial[a] - s.capacity[a] }

// Status returns the outcome of the most recent Solve call.
func (s *Solver) Status() flowstatus.Status { return s.status }

// OptimalCost returns Σ cost(a)·flow(a) over arcs carrying positive flow.
// Only meaningful after Solve returns Optimal.
func (s *Solver) OptimalCost() int64 {
	var total int64
	numArcs := s.g.NumArcs()
	for a := int32(0); a < numArcs; a++ {
		if f := s.Flow(a); f > 0 {
			total += f * s.cost[a]
		}
	}
	return total
}

// Solve runs the pre-solve consistency checks, optional feasibility probe,
// and cost-scaling push-relabel to completion, returning the resulting
// status.
func (s *Solver) Solve(ctx context.Context) flowstatus.Status {
	solveID := uuid.NewString()
	ctx, span := telemetry.StartSolveSpan(ctx, "mincostflow", solveID, int(s.n), len(s.capacity))
	log := logging.WithSolveID(solveID).With("component", "mincostflow")
	start := time.Now()

	s.status = s.solve(ctx)

	duration := time.Since(start)
	var solveErr error
	if s.status != flowstatus.Optimal {
		solveErr = apperror.New(apperror.FromStatus(s.status.String()),
			fmt.Sprintf("mincostflow solve ended with status %s", s.status))
	}

	log.Info("mincostflow solve finished",
		"status", s.status.String(),
		"duration_ms", duration.Milliseconds(),
		"pushes", s.pushes,
		"relabels", s.relabels,
		"global_updates", s.globalUpdates,
	)

	if s.metrics != nil {
		var cost float64
		if s.status == flowstatus.Optimal {
			cost = float64(s.OptimalCost())
		}
		s.metrics.RecordSolve("mincostflow", s.status == flowstatus.Optimal, duration, cost)
		s.metrics.RecordGraphSize("mincostflow", int(s.n), len(s.capacity))
		s.metrics.AddPushes("mincostflow", int(s.pushes))
		s.metrics.AddRelabels("mincostflow", int(s.relabels))
		s.metrics.AddGlobalUpdates("mincostflow", int(s.globalUpdates))
	}

	telemetry.EndSolveSpan(span, solveErr, int(s.relabels))
	return s.status
}

// solve runs the pre-solve consistency checks, optional feasibility probe,
// and cost-scaling push-relabel to completion, returning the resulting
// status.
func (s *Solver) solve(ctx context.Context) flowstatus.Status {
	if status := s.checkBalance(); status != flowstatus.NotSolved {
		return status
	}
	if status := s.checkCapacityRange(); status != flowstatus.NotSolved {
		return status
	}

	for v := int32(0); v < s.n; v++ {
		s.excess[v] = s.supply[v]
	}

	if s.checkFeasibility {
		if !s.probeFeasible() {
			return flowstatus.Infeasible
		}
	}

	scale := int64(1)
	if s.priceScaling {
		scale = int64(s.n) + 1
	}
	maxAbs := int64(0)
	numArcs := s.g.NumArcs()
	for a := int32(0); a < numArcs; a++ {
		s.scaled[a] = s.cost[a] * scale
		if s.capacity[a] <= 0 {
			continue
		}
		abs := s.scaled[a]
		if abs < 0 {
			abs = -abs
		}
		if abs > maxAbs {
			maxAbs = abs
		}
	}
	s.epsilon = maxAbs
	if s.epsilon < 1 {
		s.epsilon = 1
	}

	for {
		select {
		case <-ctx.Done():
			return flowstatus.NotSolved
		default:
		}

		s.refine(ctx)
		if s.status != flowstatus.NotSolved {
			return s.status
		}
		if s.epsilon <= 1 {
			break
		}
		s.epsilon /= s.alpha
		if s.epsilon < 1 {
			s.epsilon = 1
		}
	}

	status := flowstatus.Optimal
	for v := int32(0); v < s.n; v++ {
		if s.excess[v] != 0 {
			status = flowstatus.BadResult
			break
		}
	}
	return status
}

// checkBalance verifies total positive supply equals total positive
// demand, per spec.md §4.D's pre-solve consistency check.
func (s *Solver) checkBalance() flowstatus.Status {
	var pos, neg int64
	for _, sup := range s.supply {
		if sup > 0 {
			pos += sup
		} else {
			neg -= sup
		}
	}
	if pos != neg {
		return flowstatus.Unbalanced
	}
	return flowstatus.NotSolved
}

// checkCapacityRange caps per-node in/out capacity sums at a safe bound,
// reporting BadCapacityRange if a node's incident capacity cannot fit.
func (s *Solver) checkCapacityRange() flowstatus.Status {
	const limit = int64(1) << 61
	totalOut := make([]int64, s.n)
	totalIn := make([]int64, s.n)
	numArcs := s.g.NumArcs()
	for a := int32(0); a < numArcs; a++ {
		cap := s.initial[a]
		if cap <= 0 {
			continue
		}
		tail, head := s.g.Tail(a), s.g.Head(a)
		totalOut[tail] += cap
		totalIn[head] += cap
		if totalOut[tail] < 0 || totalOut[tail] > limit || totalIn[head] < 0 || totalIn[head] > limit {
			return flowstatus.BadCapacityRange
		}
	}
	return flowstatus.NotSolved
}

// probeFeasible builds the super-source/super-sink augmented graph of
// spec.md §4.E and reports whether all supply can be routed to demand.
func (s *Solver) probeFeasible() bool {
	pool := graph.GetPool()
	aux := pool.AcquireGraph()
	defer pool.ReleaseGraph(aux)
	superSource := s.n
	superSink := s.n + 1
	aux.AddNode(superSink)

	type arcSpec struct {
		tail, head int32
		capacity   int64
	}
	var specs []arcSpec
	var totalSupply int64

	for v := int32(0); v < s.n; v++ {
		if s.supply[v] > 0 {
			specs = append(specs, arcSpec{superSource, v, s.supply[v]})
			totalSupply += s.supply[v]
		} else if s.supply[v] < 0 {
			specs = append(specs, arcSpec{v, superSink, -s.supply[v]})
		}
	}
	numArcs := s.g.NumArcs()
	for a := int32(0); a < numArcs; a++ {
		if s.initial[a] > 0 {
			specs = append(specs, arcSpec{s.g.Tail(a), s.g.Head(a), s.initial[a]})
		}
	}

	for _, sp := range specs {
		aux.AddArc(sp.tail, sp.head)
	}
	perm, err := aux.Finalize(graph.DefaultFinalizeOptions())
	if err != nil {
		return false
	}

	mf := maxflow.NewSolver(aux, superSource, superSink)
	for i, sp := range specs {
		mf.SetArcCapacity(perm[i], sp.capacity)
	}
	mf.Solve(context.Background())
	return mf.OptimalFlow() == totalSupply
}
