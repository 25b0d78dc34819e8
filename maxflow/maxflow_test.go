package maxflow

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"flowengine/flowstatus"
	"flowengine/graph"
	"flowengine/pkg/apperror"
	"flowengine/pkg/cache"
	"flowengine/pkg/metrics"
)

// buildSolver finalizes a FlowGraph built from (tail, head, capacity)
// triples and returns a ready Solver plus the permutation from original
// arc index to finalized arc index.
func buildSolver(t *testing.T, arcs [][3]int64, source, sink int32) (*Solver, []int32) {
	t.Helper()
	g := graph.New()
	for _, a := range arcs {
		g.AddArc(int32(a[0]), int32(a[1]))
	}
	perm, err := g.Finalize(graph.DefaultFinalizeOptions())
	require.NoError(t, err)

	s := NewSolver(g, source, sink)
	for i, a := range arcs {
		s.SetArcCapacity(perm[i], a[2])
	}
	return s, perm
}

func checkConservation(t *testing.T, s *Solver, source, sink int32, n int32) {
	t.Helper()
	balance := make([]int64, n)
	numArcs := s.g.NumArcs()
	for a := int32(0); a < numArcs; a++ {
		f := s.Flow(a)
		require.GreaterOrEqual(t, f, int64(0), "arc %d flow must be non-negative", a)
		require.LessOrEqual(t, f, s.Capacity(a), "arc %d flow must not exceed capacity", a)
		balance[s.g.Tail(a)] -= f
		balance[s.g.Head(a)] += f
	}
	for v := int32(0); v < n; v++ {
		if v == source || v == sink {
			continue
		}
		require.Equal(t, int64(0), balance[v], "node %d must conserve flow", v)
	}
}

// TestDiamondMaxFlow sends flow along two parallel augmenting paths
// through a four-node diamond, each admitting 10 units.
func TestDiamondMaxFlow(t *testing.T) {
	arcs := [][3]int64{
		{0, 1, 10}, {0, 2, 10}, {1, 3, 10}, {2, 3, 10},
	}
	s, _ := buildSolver(t, arcs, 0, 3)
	status := s.Solve(context.Background())
	require.Equal(t, flowstatus.Optimal, status)
	require.Equal(t, int64(20), s.OptimalFlow())
	checkConservation(t, s, 0, 3, 4)
}

// TestBridgesAndPearlsStyleMaxFlow exercises a wider six-node multi-path
// network and checks only the invariant-level
// properties: exact per-arc flow is not unique among optimal push-relabel
// solutions, so only the flow value and conservation are asserted.
func TestBridgesAndPearlsStyleMaxFlow(t *testing.T) {
	// 0 -> 1 (capacity 4), 0 -> 2 (6), 1 -> 2 (2), 1 -> 3 (3),
	// 2 -> 3 (7), 2 -> 4 (4), 3 -> 4 (6), 3 -> 5 (8), 4 -> 5 (10)
	arcs := [][3]int64{
		{0, 1, 4}, {0, 2, 6}, {1, 2, 2}, {1, 3, 3},
		{2, 3, 7}, {2, 4, 4}, {3, 4, 6}, {3, 5, 8}, {4, 5, 10},
	}
	s, _ := buildSolver(t, arcs, 0, 5)
	status := s.Solve(context.Background())
	require.Equal(t, flowstatus.Optimal, status)
	require.Equal(t, int64(10), s.OptimalFlow())
	checkConservation(t, s, 0, 5, 6)
}

func TestDisconnectedSourceSinkIsZeroFlow(t *testing.T) {
	arcs := [][3]int64{{0, 1, 5}}
	s, _ := buildSolver(t, arcs, 2, 2)
	status := s.Solve(context.Background())
	require.Equal(t, flowstatus.Optimal, status)
	require.Equal(t, int64(0), s.OptimalFlow())
}

func TestNoPathGivesZeroFlow(t *testing.T) {
	arcs := [][3]int64{{0, 1, 5}, {2, 3, 5}}
	s, _ := buildSolver(t, arcs, 0, 3)
	status := s.Solve(context.Background())
	require.Equal(t, flowstatus.Optimal, status)
	require.Equal(t, int64(0), s.OptimalFlow())
}

func TestSelfLoopCapacityForcedToZero(t *testing.T) {
	g := graph.New()
	loop := g.AddArc(0, 0)
	g.AddArc(0, 1)
	perm, err := g.Finalize(graph.DefaultFinalizeOptions())
	require.NoError(t, err)

	s := NewSolver(g, 0, 1)
	s.SetArcCapacity(perm[loop], 100)
	require.Equal(t, int64(0), s.Capacity(perm[loop]))
}

func TestMinCutMatchesFlowValue(t *testing.T) {
	arcs := [][3]int64{
		{0, 1, 10}, {0, 2, 10}, {1, 3, 10}, {2, 3, 10},
	}
	s, _ := buildSolver(t, arcs, 0, 3)
	status := s.Solve(context.Background())
	require.Equal(t, flowstatus.Optimal, status)

	var sourceSide []int32
	s.GetSourceSideMinCut(&sourceSide)
	inSourceSide := make(map[int32]bool)
	for _, v := range sourceSide {
		inSourceSide[v] = true
	}

	var cutCapacity int64
	numArcs := s.g.NumArcs()
	for a := int32(0); a < numArcs; a++ {
		if inSourceSide[s.g.Tail(a)] && !inSourceSide[s.g.Head(a)] {
			cutCapacity += s.Capacity(a)
		}
	}
	require.Equal(t, s.OptimalFlow(), cutCapacity)
}

func TestSimpleBuilderRejectsBadInput(t *testing.T) {
	b := NewSimple()
	b.AddArcWithCapacity(0, 1, 5)

	status := b.Solve(context.Background(), 0, 0)
	require.Equal(t, flowstatus.BadInput, status)
	require.True(t, b.LastValidationErrors().HasErrors())

	status = b.Solve(context.Background(), 5, 1)
	require.Equal(t, flowstatus.BadInput, status)
	require.True(t, b.LastValidationErrors().HasErrors())
}

func TestSimpleBuilderRejectsEmptyGraph(t *testing.T) {
	b := NewSimple()
	status := b.Solve(context.Background(), 0, 1)
	require.Equal(t, flowstatus.BadInput, status)

	ve := b.LastValidationErrors()
	require.True(t, ve.HasErrors())
	found := false
	for _, e := range ve.Errors {
		if e.Code == apperror.CodeEmptyGraph {
			found = true
		}
	}
	require.True(t, found, "expected CodeEmptyGraph among validation errors")
}

func TestSimpleBuilderRejectsNegativeCapacity(t *testing.T) {
	b := NewSimple()
	b.AddArcWithCapacity(0, 1, -5)

	status := b.Solve(context.Background(), 0, 1)
	require.Equal(t, flowstatus.BadInput, status)

	ve := b.LastValidationErrors()
	require.True(t, ve.HasErrors())
	require.Equal(t, apperror.CodeNegativeCapacity, ve.Errors[0].Code)
	require.Equal(t, "capacity", ve.Errors[0].Field)
}

func TestSimpleBuilderSolves(t *testing.T) {
	b := NewSimple()
	b.AddArcWithCapacity(0, 1, 10)
	b.AddArcWithCapacity(0, 2, 10)
	b.AddArcWithCapacity(1, 3, 10)
	b.AddArcWithCapacity(2, 3, 10)

	status := b.Solve(context.Background(), 0, 3)
	require.Equal(t, flowstatus.Optimal, status)
	require.Equal(t, int64(20), b.OptimalFlow())

	var total int64
	for a := int32(0); a < b.NumArcs(); a++ {
		total += b.Flow(a)
	}
	require.Equal(t, int64(40), total) // two hops each, both paths saturated
}

func TestSimpleBuilderUsesSolverCache(t *testing.T) {
	mc := cache.NewMemoryCache(cache.DefaultOptions())
	defer mc.Close()
	sc := cache.NewSolverCache(mc, time.Minute)

	b := NewSimple()
	b.SetCache(sc)
	b.AddArcWithCapacity(0, 1, 10)
	b.AddArcWithCapacity(0, 2, 10)
	b.AddArcWithCapacity(1, 3, 10)
	b.AddArcWithCapacity(2, 3, 10)

	status := b.Solve(context.Background(), 0, 3)
	require.Equal(t, flowstatus.Optimal, status)
	require.Equal(t, int64(20), b.OptimalFlow())

	// A second builder with an identical graph and the same cache must hit
	// the cached result rather than allocate a Solver.
	b2 := NewSimple()
	b2.SetCache(sc)
	b2.AddArcWithCapacity(0, 1, 10)
	b2.AddArcWithCapacity(0, 2, 10)
	b2.AddArcWithCapacity(1, 3, 10)
	b2.AddArcWithCapacity(2, 3, 10)

	status = b2.Solve(context.Background(), 0, 3)
	require.Equal(t, flowstatus.Optimal, status)
	require.Equal(t, int64(20), b2.OptimalFlow())
	require.Nil(t, b2.solver, "cache hit should answer without running push-relabel")
}

func TestContextCancellationStopsSolve(t *testing.T) {
	arcs := [][3]int64{{0, 1, 10}, {1, 2, 10}}
	s, _ := buildSolver(t, arcs, 0, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	status := s.Solve(ctx)
	require.Equal(t, flowstatus.NotSolved, status)
}

func TestSolveRecordsMetrics(t *testing.T) {
	arcs := [][3]int64{{0, 1, 10}, {1, 2, 10}}
	s, _ := buildSolver(t, arcs, 0, 2)

	reg := prometheus.NewRegistry()
	s.SetMetrics(metrics.New(reg, "test", "maxflow"))

	status := s.Solve(context.Background())
	require.Equal(t, flowstatus.Optimal, status)

	families, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)
}
