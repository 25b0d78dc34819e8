package mincostflow

import (
	"context"

	"flowengine/flowstatus"
	"flowengine/graph"
)

// reducedCost returns cost(a) + potential(tail(a)) - potential(head(a)).
func (s *Solver) reducedCost(a int32) int64 {
	return s.scaled[a] + s.potential[s.g.Tail(a)] - s.potential[s.g.Head(a)]
}

func (s *Solver) pushOnArc(a int32, amt int64) {
	s.capacity[a] -= amt
	r := s.g.Reverse(a)
	s.capacity[r] += amt
	s.excess[s.g.Tail(a)] -= amt
	s.excess[s.g.Head(a)] += amt
	s.pushes++
}

// hasAdmissibleOutArc reports whether v has any residual out-arc with
// strictly negative reduced cost (used by Discharge's push look-ahead).
func (s *Solver) hasAdmissibleOutArc(v int32) bool {
	start, end := s.g.OutgoingArcs(v)
	for a := start; a < end; a++ {
		if s.capacity[a] > 0 && s.reducedCost(a) < 0 {
			return true
		}
	}
	return false
}

// refine restores ε-optimality at the current ε by saturating admissible
// arcs and then discharging every active node, per spec.md §4.D.
func (s *Solver) refine(ctx context.Context) {
	numArcs := s.g.NumArcs()
	for a := int32(0); a < numArcs; a++ {
		if s.capacity[a] > 0 && s.reducedCost(a) < 0 {
			s.pushOnArc(a, s.capacity[a])
		}
	}

	var stack []int32
	for v := int32(0); v < s.n; v++ {
		s.currentArc[v], _ = s.g.OutgoingArcs(v)
		if s.excess[v] > 0 {
			stack = append(stack, v)
		}
	}

	relabels := 0
	checked := 0
	for len(stack) > 0 {
		checked++
		if checked%256 == 0 {
			select {
			case <-ctx.Done():
				s.status = flowstatus.NotSolved
				return
			default:
			}
		}

		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if s.excess[v] <= 0 {
			continue
		}

		s.discharge(v, &stack, &relabels)
		if s.status != flowstatus.NotSolved {
			return
		}

		if s.useUpdatePrices && relabels >= int(s.n) && s.n > 0 {
			s.updatePrices()
			relabels = 0
		}
	}
}

// discharge pushes v's excess along admissible arcs (residual > 0, reduced
// cost < 0), using push look-ahead and relabelling when none remain.
func (s *Solver) discharge(v int32, stack *[]int32, relabels *int) {
	_, end := s.g.OutgoingArcs(v)
	for s.excess[v] > 0 {
		a := s.currentArc[v]
		for a < end {
			if s.capacity[a] > 0 && s.reducedCost(a) < 0 {
				w := s.g.Head(a)
				if s.excess[w] <= 0 && !s.hasAdmissibleOutArc(w) {
					s.relabel(w)
					if s.status != flowstatus.NotSolved {
						return
					}
				}

				wasInactive := s.excess[w] <= 0
				amt := s.excess[v]
				if s.capacity[a] < amt {
					amt = s.capacity[a]
				}
				s.pushOnArc(a, amt)
				if wasInactive && s.excess[w] > 0 {
					*stack = append(*stack, w)
				}
				if s.excess[v] == 0 {
					break
				}
			}
			a++
		}
		s.currentArc[v] = a
		if s.excess[v] == 0 {
			return
		}

		s.relabel(v)
		*relabels++
		if s.status != flowstatus.NotSolved {
			return
		}
		s.currentArc[v], _ = s.g.OutgoingArcs(v)
	}
}

// relabel lowers v's potential to restore an admissible out-arc, per
// spec.md §4.D. If v has no residual out-arc and nonzero excess, the
// instance is infeasible; if the potential would underflow past a safe
// bound, the solver reports BadCostRange.
func (s *Solver) relabel(v int32) {
	start, end := s.g.OutgoingArcs(v)
	best := int64(1) << 62
	any := false
	for a := start; a < end; a++ {
		if s.capacity[a] <= 0 {
			continue
		}
		any = true
		cand := s.potential[s.g.Head(a)] - s.scaled[a]
		if cand < best {
			best = cand
		}
	}
	if !any {
		if s.excess[v] != 0 {
			s.status = flowstatus.Infeasible
		}
		return
	}
	newPotential := best - s.epsilon
	if newPotential < overflowPotential {
		s.status = flowstatus.BadCostRange
		return
	}
	s.potential[v] = newPotential
	s.relabels++
}

// updatePrices is a simplified form of Goldberg's global potential update:
// any node that cannot reach a deficit node (excess < 0) through a chain
// of residual, non-positive-reduced-cost arcs has its potential lowered by
// ε, which preserves ε-optimality while exposing new admissible arcs.
func (s *Solver) updatePrices() {
	s.globalUpdates++
	incoming := make([][]int32, s.n)
	numArcs := s.g.NumArcs()
	for a := int32(0); a < numArcs; a++ {
		incoming[s.g.Head(a)] = append(incoming[s.g.Head(a)], a)
	}

	pool := graph.GetPool()
	reached := pool.AcquireBoolSlice(int(s.n))
	defer pool.ReleaseBoolSlice(reached)
	queue := pool.AcquireInt32Slice(int(s.n))
	defer pool.ReleaseInt32Slice(queue)
	for v := int32(0); v < s.n; v++ {
		if s.excess[v] < 0 {
			reached[v] = true
			queue = append(queue, v)
		}
	}

	for head := 0; head < len(queue); head++ {
		u := queue[head]
		for _, b := range incoming[u] {
			w := s.g.Tail(b)
			if reached[w] {
				continue
			}
			if s.capacity[b] > 0 && s.reducedCost(b) <= 0 {
				reached[w] = true
				queue = append(queue, w)
			}
		}
	}

	for v := int32(0); v < s.n; v++ {
		if !reached[v] {
			s.potential[v] -= s.epsilon
		}
	}
}
