// Package floatflow implements the floating-point min-cost-flow wrapper
// described in spec.md §4.G: it maps float64 capacities and supplies onto
// integers via a power-of-two scaling factor, delegates to mincostflow,
// and unscales the result back to float64.
package floatflow

import (
	"context"
	"math"

	"flowengine/flowstatus"
	"flowengine/mincostflow"
)

// Stats reports how Solve's scale search went.
type Stats struct {
	// Scale is the power-of-two factor ultimately used: integer_value =
	// round(float_value * Scale).
	Scale float64
	// NumTestedScales is how many candidate scales were tried before one
	// succeeded (or all were exhausted).
	NumTestedScales int
}

// Simple is the floating-point builder façade from spec.md §4.G.
type Simple struct {
	tails   []int32
	heads   []int32
	caps    []float64
	costs   []int64
	supply  map[int32]float64
	stats   Stats
	lastLo  *mincostflow.Simple
	lastInt []int64 // last solved integer flows, for Flow()
	scale   float64
}

// NewSimple returns an empty builder.
func NewSimple() *Simple {
	return &Simple{supply: make(map[int32]float64)}
}

// AddArcWithCapacityAndUnitCost appends an arc; cost is an exact integer
// unit cost (spec.md §4.G only scales capacities/supplies, not cost).
func (s *Simple) AddArcWithCapacityAndUnitCost(tail, head int32, capacity float64, cost int64) int32 {
	id := int32(len(s.tails))
	s.tails = append(s.tails, tail)
	s.heads = append(s.heads, head)
	s.caps = append(s.caps, capacity)
	s.costs = append(s.costs, cost)
	return id
}

// SetNodeSupply sets node n's supply (negative for demand) as a float64.
func (s *Simple) SetNodeSupply(n int32, supply float64) { s.supply[n] = supply }

// LastSolveStats returns details of the scale search performed by the most
// recent SolveMaxFlowWithMinCost call.
func (s *Simple) LastSolveStats() Stats { return s.stats }

// Flow returns the unscaled float64 flow on user arc a from the last solve.
func (s *Simple) Flow(a int32) float64 {
	if s.lastInt == nil {
		return 0
	}
	return float64(s.lastInt[a]) / s.scale
}

// floatOverflowBound caps how large a scaled capacity or supply may get
// before a candidate scale is rejected. It matches mincostflow's own
// checkCapacityRange limit (1<<61) rather than int32's range: the backing
// Solver stores capacities, supply, and cost as int64, and a per-node sum
// of several large arcs must still fit under that limit after scaling.
const floatOverflowBound = float64(int64(1) << 61)

// SolveMaxFlowWithMinCost finds a power-of-two scale that maps every
// capacity and supply to a representable int64 without overflow, solves
// the scaled instance with mincostflow.Simple, and unscales the flows.
func (s *Simple) SolveMaxFlowWithMinCost(ctx context.Context) (flowstatus.Status, error) {
	for _, c := range s.caps {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return flowstatus.BadCapacityRange, errNonFiniteCapacity
		}
	}
	for _, sup := range s.supply {
		if math.IsNaN(sup) || math.IsInf(sup, 0) {
			return flowstatus.BadCapacityRange, errNonFiniteCapacity
		}
	}

	maxMagnitude := 0.0
	for _, c := range s.caps {
		if c < 0 {
			c = 0
		}
		if c > maxMagnitude {
			maxMagnitude = c
		}
	}
	for _, sup := range s.supply {
		m := math.Abs(sup)
		if m > maxMagnitude {
			maxMagnitude = m
		}
	}
	if maxMagnitude == 0 {
		maxMagnitude = 1
	}

	// Start from the exponent that maps maxMagnitude into
	// [floatOverflowBound, 2*floatOverflowBound), so the first candidate is
	// always rejected, then retry with smaller scales (per spec.md §4.G's
	// "retry on BadCapacityRange by decrementing the exponent").
	_, boundExp := math.Frexp(floatOverflowBound)
	_, exp := math.Frexp(maxMagnitude)
	startExponent := boundExp - exp

	tested := 0
	for e := startExponent; e >= -boundExp; e-- {
		tested++
		scale := math.Ldexp(1, e)

		lo := mincostflow.NewSimple()
		overflowed := false
		intCaps := make([]int64, len(s.caps))
		for i, c := range s.caps {
			if c < 0 {
				c = 0
			}
			scaled := c * scale
			if scaled >= floatOverflowBound {
				overflowed = true
				break
			}
			intCaps[i] = int64(math.Round(scaled))
			lo.AddArcWithCapacityAndUnitCost(s.tails[i], s.heads[i], intCaps[i], s.costs[i])
		}
		if overflowed {
			continue
		}

		intSupplyOverflowed := false
		for n, sup := range s.supply {
			scaled := sup * scale
			if math.Abs(scaled) >= floatOverflowBound {
				intSupplyOverflowed = true
				break
			}
			lo.SetNodeSupply(n, int64(math.Round(scaled)))
		}
		if intSupplyOverflowed {
			continue
		}

		status := lo.Solve(ctx)
		s.stats = Stats{Scale: scale, NumTestedScales: tested}
		if status != flowstatus.Optimal {
			if status == flowstatus.BadCapacityRange {
				continue
			}
			return status, nil
		}

		s.lastLo = lo
		s.scale = scale
		s.lastInt = make([]int64, len(s.tails))
		for i := range s.tails {
			s.lastInt[i] = lo.Flow(int32(i))
		}
		return flowstatus.Optimal, nil
	}

	return flowstatus.BadCapacityRange, errScaleSearchExhausted
}

type floatflowError string

func (e floatflowError) Error() string { return string(e) }

const (
	errNonFiniteCapacity    = floatflowError("floatflow: capacity or supply is NaN or infinite")
	errScaleSearchExhausted = floatflowError("floatflow: no power-of-two scale avoided overflow")
)
