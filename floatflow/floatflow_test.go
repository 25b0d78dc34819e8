package floatflow

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"flowengine/flowstatus"
)

func TestDiamondFloat(t *testing.T) {
	s := NewSimple()
	a0 := s.AddArcWithCapacityAndUnitCost(0, 1, 10.0, 2)
	a1 := s.AddArcWithCapacityAndUnitCost(0, 2, 10.0, 5)
	s.AddArcWithCapacityAndUnitCost(1, 3, 10.0, 1)
	s.AddArcWithCapacityAndUnitCost(2, 3, 10.0, 1)
	s.SetNodeSupply(0, 20.0)
	s.SetNodeSupply(3, -20.0)

	status, err := s.SolveMaxFlowWithMinCost(context.Background())
	require.NoError(t, err)
	require.Equal(t, flowstatus.Optimal, status)
	require.InDelta(t, 10.0, s.Flow(a0), 1e-9)
	require.InDelta(t, 10.0, s.Flow(a1), 1e-9)
	require.GreaterOrEqual(t, s.LastSolveStats().NumTestedScales, 1)
}

// TestManyParallelUnitArcs exercises a wide fan of unit-capacity arcs, the
// same shape as the extreme floating-point scaling case: a single source
// feeding many parallel paths of capacity 1.0, each of which must end up
// carrying exactly 1.0 after unscaling.
func TestManyParallelUnitArcs(t *testing.T) {
	const n = 64
	s := NewSimple()
	arcs := make([]int32, n)
	for i := 0; i < n; i++ {
		arcs[i] = s.AddArcWithCapacityAndUnitCost(0, int32(i+1), 1.0, 1)
	}
	s.SetNodeSupply(0, float64(n))
	for i := 0; i < n; i++ {
		s.SetNodeSupply(int32(i+1), -1.0)
	}

	status, err := s.SolveMaxFlowWithMinCost(context.Background())
	require.NoError(t, err)
	require.Equal(t, flowstatus.Optimal, status)
	for _, a := range arcs {
		require.InDelta(t, 1.0, s.Flow(a), 1e-9)
	}
}

// TestLargeMagnitudeScaleSearch mirrors the upstream FirstScaleFailed corner
// case (ortools/graph/fp_min_cost_flow_test.cc): a magnitude picked so the
// scale search's first candidate exponent lands exactly on the 1<<61
// overflow bound and must be rejected before a smaller scale succeeds. 2^45 sits
// well beyond int32's range (the bound this search used before) but safely
// under mincostflow's own per-node capacity limit of 1<<61 once scaled.
func TestLargeMagnitudeScaleSearch(t *testing.T) {
	const magnitude = 1 << 45 // 2^45
	s := NewSimple()
	a0 := s.AddArcWithCapacityAndUnitCost(0, 1, magnitude, 0)
	s.SetNodeSupply(0, magnitude)
	s.SetNodeSupply(1, -magnitude)

	status, err := s.SolveMaxFlowWithMinCost(context.Background())
	require.NoError(t, err)
	require.Equal(t, flowstatus.Optimal, status)
	require.Equal(t, 2, s.LastSolveStats().NumTestedScales)
	require.InDelta(t, float64(magnitude), s.Flow(a0), 1e-6)
}

func TestNonFiniteCapacityIsRejected(t *testing.T) {
	s := NewSimple()
	s.AddArcWithCapacityAndUnitCost(0, 1, math.Inf(1), 1)
	s.SetNodeSupply(0, 1)
	s.SetNodeSupply(1, -1)

	status, err := s.SolveMaxFlowWithMinCost(context.Background())
	require.Error(t, err)
	require.Equal(t, flowstatus.BadCapacityRange, status)
}
