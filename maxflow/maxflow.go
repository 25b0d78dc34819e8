// Package maxflow implements the push-relabel maximum-flow core described
// in spec.md §4.C: highest-label vertex selection via graph/prqueue, global
// relabeling by reverse BFS, current-arc discharge, and a flow-excess
// return phase that turns the preflow into a flow satisfying conservation
// at every internal node.
//
// Solver operates on an already-finalized *graph.FlowGraph and is not
// thread-safe; callers running concurrent solves should each finalize (or
// Clone, once finalized graphs support it) their own graph. Simple is the
// builder-style façade (spec.md §6) most callers should reach for first.
package maxflow

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"flowengine/flowstatus"
	"flowengine/graph"
	"flowengine/graph/prqueue"
	"flowengine/pkg/apperror"
	"flowengine/pkg/logging"
	"flowengine/pkg/metrics"
	"flowengine/pkg/telemetry"
)

// maxOverflowBudget is the largest cumulative out-flow initialize lets the
// source push, and the sink excess at which Solve checks for IntOverflow.
const maxOverflowBudget = math.MaxInt64

// Solver computes maximum flow on a finalized FlowGraph between a fixed
// source and sink using push-relabel with global relabeling.
//
// Public operations mirror spec.md §4.C exactly: SetArcCapacity, Solve,
// OptimalFlow, Flow, Capacity, GetSourceSideMinCut, GetSinkSideMinCut,
// AugmentingPathExists, Status.
type Solver struct {
	g            *graph.FlowGraph
	source, sink int32
	n            int32
	infinite     int32 // 2n-1

	capacity []int64 // residual capacity per arc
	initial  []int64 // initial capacity per arc (for Flow/Capacity queries)

	height     []int32
	excess     []int64
	currentArc []int32
	skipCount  []int32
	skipped    []bool

	status         flowstatus.Status
	sourceDisjoint bool // source/sink out of range: treat as disconnected
	overflowBudget int64

	metrics *metrics.Metrics

	pushes, relabels, globalUpdates int64
}

// SetMetrics attaches a caller-owned metrics collector; subsequent Solve
// calls record solve duration, flow value, and push/relabel/global-update
// counters against it. Nil (the default) disables recording.
func (s *Solver) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// NewSolver returns a Solver over g (which must already be finalized) with
// the given source and sink node indices. All arc capacities default to
// zero; call SetArcCapacity before Solve.
func NewSolver(g *graph.FlowGraph, source, sink int32) *Solver {
	n := g.NumNodes()
	numArcs := g.NumArcs()
	s := &Solver{
		g:              g,
		source:         source,
		sink:           sink,
		n:              n,
		infinite:       2*n - 1,
		capacity:       make([]int64, numArcs),
		initial:        make([]int64, numArcs),
		height:         make([]int32, n),
		excess:         make([]int64, n),
		currentArc:     make([]int32, n),
		skipCount:      make([]int32, n),
		skipped:        make([]bool, n),
		status:         flowstatus.NotSolved,
		overflowBudget: maxOverflowBudget,
	}
	if source < 0 || source >= n || sink < 0 || sink >= n {
		s.sourceDisjoint = true
	}
	return s
}

// SetArcCapacity sets arc a's capacity. Self-loops (head == tail) are
// forced to zero capacity, per spec.md §4.C. Must be called before Solve.
func (s *Solver) SetArcCapacity(a int32, capacity int64) {
	if s.g.Head(a) == s.g.Tail(a) {
		capacity = 0
	}
	s.capacity[a] = capacity
	s.initial[a] = capacity
}

// Capacity returns arc a's original (pre-solve) capacity.
func (s *Solver) Capacity(a int32) int64 { return s.initial[a] }

// Flow returns the flow on arc a: initial_capacity(a) - residual(a).
func (s *Solver) Flow(a int32) int64 { return s.initial[a] - s.capacity[a] }

// Status returns the outcome of the most recent Solve call.
func (s *Solver) Status() flowstatus.Status { return s.status }

// OptimalFlow returns the maximum flow value. Only meaningful after Solve
// returns Optimal or IntOverflow.
func (s *Solver) OptimalFlow() int64 {
	if s.sourceDisjoint {
		return 0
	}
	return s.excess[s.sink]
}

// Solve runs push-relabel to completion (or until ctx is cancelled) and
// returns the resulting status.
//
// Per spec.md §9's open question, an out-of-range source or sink is
// treated as disconnected: Solve reports Optimal with zero flow rather
// than an error.
func (s *Solver) Solve(ctx context.Context) flowstatus.Status {
	solveID := uuid.NewString()
	ctx, span := telemetry.StartSolveSpan(ctx, "maxflow", solveID, int(s.n), len(s.capacity))
	log := logging.WithSolveID(solveID).With("component", "maxflow")
	start := time.Now()

	if s.sourceDisjoint || s.source == s.sink {
		s.status = flowstatus.Optimal
	} else {
		s.initialize()
		if !s.run(ctx) {
			s.status = flowstatus.NotSolved
		} else {
			s.returnExcess()
			s.status = flowstatus.Optimal
			if s.excess[s.sink] >= s.overflowBudget && s.augmentingPathExists() {
				s.status = flowstatus.IntOverflow
			}
		}
	}

	duration := time.Since(start)
	var solveErr error
	if s.status != flowstatus.Optimal {
		solveErr = apperror.New(apperror.FromStatus(s.status.String()),
			fmt.Sprintf("maxflow solve ended with status %s", s.status))
	}

	log.Info("maxflow solve finished",
		"status", s.status.String(),
		"flow_value", s.OptimalFlow(),
		"duration_ms", duration.Milliseconds(),
		"pushes", s.pushes,
		"relabels", s.relabels,
		"global_updates", s.globalUpdates,
	)

	if s.metrics != nil {
		s.metrics.RecordSolve("maxflow", s.status == flowstatus.Optimal, duration, float64(s.OptimalFlow()))
		s.metrics.RecordGraphSize("maxflow", int(s.n), len(s.capacity))
		s.metrics.AddPushes("maxflow", int(s.pushes))
		s.metrics.AddRelabels("maxflow", int(s.relabels))
		s.metrics.AddGlobalUpdates("maxflow", int(s.globalUpdates))
	}

	telemetry.EndSolveSpan(span, solveErr, int(s.relabels))
	return s.status
}

// initialize fixes the source's height and saturates its admissible
// out-arcs, clipping cumulative out-flow to overflowBudget (spec.md
// §4.C's anti-overflow rule).
func (s *Solver) initialize() {
	s.height[s.source] = s.n
	pushed := int64(0)
	start, end := s.g.OutgoingArcs(s.source)
	for a := start; a < end; a++ {
		cap := s.capacity[a]
		if cap <= 0 {
			continue
		}
		amt := cap
		if room := s.overflowBudget - pushed; amt > room {
			amt = room
		}
		if amt <= 0 {
			break
		}
		s.pushOnArc(a, amt)
		pushed += amt
	}
}

// pushOnArc moves amt units of flow along arc a, updating residuals and
// both endpoints' excess.
func (s *Solver) pushOnArc(a int32, amt int64) {
	s.capacity[a] -= amt
	r := s.g.Reverse(a)
	s.capacity[r] += amt
	s.excess[s.g.Tail(a)] -= amt
	s.excess[s.g.Head(a)] += amt
	s.pushes++
}

func (s *Solver) isActive(v int32) bool {
	return v != s.source && v != s.sink && s.excess[v] > 0 && s.height[v] < s.n
}

// run executes the outer loop: repeated priority-queue passes separated by
// global relabels, until a full pass skips no node (spec.md §4.C). It
// returns false if ctx was cancelled before the loop finished.
func (s *Solver) run(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		s.status = flowstatus.NotSolved
		return false
	default:
	}

	checked := 0
	for {
		s.globalRelabel()
		for i := range s.skipCount {
			s.skipCount[i] = 0
			s.skipped[i] = false
		}

		q := prqueue.New()
		for v := int32(0); v < s.n; v++ {
			if s.isActive(v) {
				q.Push(v, int(s.height[v]))
			}
		}

		anySkipped := false
		relabelsSinceUpdate := 0
		for !q.IsEmpty() {
			checked++
			if checked%256 == 0 {
				select {
				case <-ctx.Done():
					s.status = flowstatus.NotSolved
					return false
				default:
				}
			}

			u, _, _ := q.Pop()
			if s.skipped[u] || !s.isActive(u) {
				continue
			}

			relabels := s.discharge(u, q)
			relabelsSinceUpdate += relabels
			if s.skipped[u] {
				anySkipped = true
			} else if s.isActive(u) {
				q.Push(u, int(s.height[u]))
			}

			if relabelsSinceUpdate >= int(s.n) && s.n > 0 {
				s.globalRelabel()
				relabelsSinceUpdate = 0
				// Re-seed the queue with anything still active; heights may
				// have changed for every node.
				q.Clear()
				for v := int32(0); v < s.n; v++ {
					if s.isActive(v) && !s.skipped[v] {
						q.Push(v, int(s.height[v]))
					}
				}
			}
		}

		if !anySkipped {
			return true
		}
	}
}

// discharge pushes v's excess along admissible arcs, relabeling when none
// remain, until excess hits zero or v is marked unreachable/skipped. It
// returns the number of relabels performed and enqueues any node that
// newly became active.
func (s *Solver) discharge(v int32, q *prqueue.Queue) int {
	relabels := 0
	_, end := s.g.OutgoingArcs(v)
	for s.excess[v] > 0 && s.height[v] < s.n {
		a := s.currentArc[v]
		for a < end {
			w := s.g.Head(a)
			if s.capacity[a] > 0 && s.height[v] == s.height[w]+1 {
				wasInactive := s.excess[w] <= 0
				amt := s.excess[v]
				if s.capacity[a] < amt {
					amt = s.capacity[a]
				}
				s.pushOnArc(a, amt)
				if wasInactive && w != s.source && w != s.sink {
					q.Push(w, int(s.height[w]))
				}
				if s.excess[v] == 0 {
					break
				}
			}
			a++
		}
		s.currentArc[v] = a
		if s.excess[v] == 0 {
			return relabels
		}
		if a >= end {
			oldHeight := s.height[v]
			s.relabel(v)
			relabels++
			if s.height[v] > oldHeight+1 {
				s.skipCount[v]++
				if s.skipCount[v] >= 2 {
					s.skipped[v] = true
					return relabels
				}
			}
			s.currentArc[v], _ = s.g.OutgoingArcs(v)
		}
	}
	return relabels
}

// relabel sets height(v) to the minimum admissible height over v's
// residual out-arcs, plus one; if none exist, v is marked unreachable.
func (s *Solver) relabel(v int32) {
	start, end := s.g.OutgoingArcs(v)
	best := s.infinite
	for a := start; a < end; a++ {
		if s.capacity[a] <= 0 {
			continue
		}
		h := s.height[s.g.Head(a)] + 1
		if h < best {
			best = h
		}
	}
	s.height[v] = best
	s.relabels++
}

// globalRelabel recomputes every node's height via reverse BFS from the
// sink over arcs whose reverse has positive residual, and additionally
// steals as much excess as each discovered arc admits (spec.md §4.C).
func (s *Solver) globalRelabel() {
	s.globalUpdates++
	for i := range s.height {
		s.height[i] = s.infinite
	}
	s.height[s.sink] = 0
	s.height[s.source] = s.n

	pool := graph.GetPool()
	queue := pool.AcquireInt32Slice(int(s.n))
	defer pool.ReleaseInt32Slice(queue)
	queue = append(queue, s.sink)
	visited := pool.AcquireBoolSlice(int(s.n))
	defer pool.ReleaseBoolSlice(visited)
	visited[s.sink] = true

	for head := 0; head < len(queue); head++ {
		u := queue[head]
		start, end := s.g.OutgoingArcs(u)
		for a := start; a < end; a++ {
			w := s.g.Head(a)
			if visited[w] || w == s.source {
				continue
			}
			ra := s.g.Reverse(a)
			if s.capacity[ra] <= 0 {
				continue
			}
			visited[w] = true
			s.height[w] = s.height[u] + 1
			queue = append(queue, w)

			// Steal: if w still has excess and can push directly to u via
			// this admissible arc, do so now.
			if s.excess[w] > 0 {
				amt := s.excess[w]
				if s.capacity[ra] < amt {
					amt = s.capacity[ra]
				}
				if amt > 0 {
					s.pushOnArc(ra, amt)
				}
			}
		}
	}

	for v := int32(0); v < s.n; v++ {
		s.currentArc[v], _ = s.g.OutgoingArcs(v)
	}
}

// augmentingPathExists reports whether the sink is still reachable from
// the source in the residual graph.
func (s *Solver) AugmentingPathExists() bool { return s.augmentingPathExists() }

func (s *Solver) augmentingPathExists() bool {
	dist, _ := graph.BFS(s.g, []int32{s.source}, func(a int32) bool { return s.capacity[a] > 0 })
	return dist[s.sink] >= 0
}

// GetSourceSideMinCut appends to out the set of nodes reachable from the
// source in the residual graph (the source-side of a minimum cut).
func (s *Solver) GetSourceSideMinCut(out *[]int32) {
	dist, _ := graph.BFS(s.g, []int32{s.source}, func(a int32) bool { return s.capacity[a] > 0 })
	for v, d := range dist {
		if d >= 0 {
			*out = append(*out, int32(v))
		}
	}
}

// GetSinkSideMinCut appends to out the set of nodes that can reach the
// sink in the residual graph (the sink-side of a minimum cut), found by
// BFS over reverse residual arcs.
func (s *Solver) GetSinkSideMinCut(out *[]int32) {
	dist, _ := graph.BFS(s.g, []int32{s.sink}, func(a int32) bool {
		return s.capacity[s.g.Reverse(a)] > 0
	})
	for v, d := range dist {
		if d >= 0 {
			*out = append(*out, int32(v))
		}
	}
}
