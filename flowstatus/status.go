// Package flowstatus defines the shared solver status alphabet used across
// the maxflow, mincostflow, and floatflow packages. Keeping it in its own
// package lets every solver return the same status type without introducing
// an import cycle between them.
package flowstatus

// Status reports the outcome of a solve. Not every solver can produce every
// value — see each package's doc comment for the subset it uses.
type Status int

const (
	// NotSolved is the zero value: Solve has not been called yet.
	NotSolved Status = iota
	// Optimal means the solver found a provably optimal solution.
	Optimal
	// Feasible means a solution was found but optimality was not verified
	// (used only by the max-flow-with-min-cost driver).
	Feasible
	// Infeasible means the feasibility probe determined that supply cannot
	// be fully routed.
	Infeasible
	// Unbalanced means the sum of supplies does not equal the sum of demands.
	Unbalanced
	// IntOverflow means the flow saturated the representable maximum while
	// a residual source-sink path still existed.
	IntOverflow
	// BadInput means the caller passed a malformed argument (out-of-range
	// node, source == sink, negative capacity, ...).
	BadInput
	// BadCostRange means costs could not be scaled by num_nodes+1 without
	// overflowing, or a potential underflowed mid-solve.
	BadCostRange
	// BadCapacityRange means a node's cumulative in-flow or out-flow cannot
	// fit in the representable range.
	BadCapacityRange
	// BadResult means a post-solve invariant check failed; this indicates a
	// solver bug, not a caller error.
	BadResult
)

// String renders the status the way a log line or error message would.
func (s Status) String() string {
	switch s {
	case NotSolved:
		return "NotSolved"
	case Optimal:
		return "Optimal"
	case Feasible:
		return "Feasible"
	case Infeasible:
		return "Infeasible"
	case Unbalanced:
		return "Unbalanced"
	case IntOverflow:
		return "IntOverflow"
	case BadInput:
		return "BadInput"
	case BadCostRange:
		return "BadCostRange"
	case BadCapacityRange:
		return "BadCapacityRange"
	case BadResult:
		return "BadResult"
	default:
		return "Unknown"
	}
}
