package maxflow

// returnExcess turns the preflow left by run() into a flow that satisfies
// conservation at every node but the source and sink, per spec.md §4.C's
// two-phase termination: cancel any positive-flow cycles, then push
// remaining excess back toward the source in reverse topological order of
// the positive-flow subgraph.
func (s *Solver) returnExcess() {
	s.cancelCycles()
	order := s.positiveFlowPostorder()
	incoming := s.arcsByHead()

	for _, v := range order {
		if v == s.source || v == s.sink {
			continue
		}
		for s.excess[v] > 0 {
			a, ok := pickPositiveFlowArc(incoming[v], s.capacity, s.initial)
			if !ok {
				break // excess with no positive-flow predecessor: nothing left to cancel
			}
			flow := s.initial[a] - s.capacity[a]
			amt := s.excess[v]
			if flow < amt {
				amt = flow
			}
			s.pushOnArc(s.g.Reverse(a), amt)
		}
	}
}

// pickPositiveFlowArc returns the first arc in arcs whose current flow is
// still positive.
func pickPositiveFlowArc(arcs []int32, capacity, initial []int64) (int32, bool) {
	for _, a := range arcs {
		if initial[a]-capacity[a] > 0 {
			return a, true
		}
	}
	return 0, false
}

// arcsByHead groups every arc by head, so returnExcess can find an arc
// currently carrying flow into a given node without a full arc scan.
func (s *Solver) arcsByHead() [][]int32 {
	in := make([][]int32, s.n)
	numArcs := s.g.NumArcs()
	for a := int32(0); a < numArcs; a++ {
		in[s.g.Head(a)] = append(in[s.g.Head(a)], a)
	}
	return in
}

// cancelCycles repeatedly walks the positive-flow subgraph looking for
// cycles and cancels the minimum flow around each one found, until none
// remain. Cancelling a cycle changes no node's excess.
func (s *Solver) cancelCycles() {
	for {
		cycle := s.findPositiveFlowCycle()
		if cycle == nil {
			return
		}
		min := s.initial[cycle[0]] - s.capacity[cycle[0]]
		for _, a := range cycle[1:] {
			if f := s.initial[a] - s.capacity[a]; f < min {
				min = f
			}
		}
		for _, a := range cycle {
			s.pushOnArc(a, -min)
		}
	}
}

// findPositiveFlowCycle runs an iterative DFS over arcs with positive flow
// and returns the arc sequence of the first cycle found, or nil.
func (s *Solver) findPositiveFlowCycle() []int32 {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make([]int8, s.n)
	cursor := make([]int32, s.n)
	for v := int32(0); v < s.n; v++ {
		cursor[v], _ = s.g.OutgoingArcs(v)
	}
	onStackArc := make([]int32, s.n) // arc used to enter this node, while gray

	var stack []int32
	for start := int32(0); start < s.n; start++ {
		if color[start] != white {
			continue
		}
		stack = append(stack[:0], start)
		color[start] = gray
		for len(stack) > 0 {
			v := stack[len(stack)-1]
			_, end := s.g.OutgoingArcs(v)
			advanced := false
			for cursor[v] < end {
				a := cursor[v]
				cursor[v]++
				if s.initial[a]-s.capacity[a] <= 0 {
					continue
				}
				w := s.g.Head(a)
				switch color[w] {
				case white:
					color[w] = gray
					onStackArc[w] = a
					stack = append(stack, w)
					advanced = true
				case gray:
					return s.extractCycle(stack, onStackArc, a, w)
				}
				if advanced {
					break
				}
			}
			if !advanced && cursor[v] >= end {
				color[v] = black
				stack = stack[:len(stack)-1]
			}
		}
	}
	return nil
}

// extractCycle builds the arc list for the cycle closed by arc a landing
// back on w, which is still gray (on stack).
func (s *Solver) extractCycle(stack []int32, onStackArc []int32, a int32, w int32) []int32 {
	var cycle []int32
	i := len(stack) - 1
	for stack[i] != w {
		cycle = append(cycle, onStackArc[stack[i]])
		i--
	}
	cycle = append(cycle, a)
	return cycle
}

// positiveFlowPostorder returns every node in DFS postorder over the
// (now acyclic) positive-flow subgraph: for an edge u->v, v is listed
// before u, which is exactly the order returnExcess needs to push excess
// back toward the source.
func (s *Solver) positiveFlowPostorder() []int32 {
	visited := make([]bool, s.n)
	order := make([]int32, 0, s.n)

	type frame struct {
		node   int32
		cursor int32
		end    int32
	}
	var stack []frame

	for start := int32(0); start < s.n; start++ {
		if visited[start] {
			continue
		}
		visited[start] = true
		c, e := s.g.OutgoingArcs(start)
		stack = append(stack, frame{node: start, cursor: c, end: e})
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			advanced := false
			for top.cursor < top.end {
				a := top.cursor
				top.cursor++
				if s.initial[a]-s.capacity[a] <= 0 {
					continue
				}
				w := s.g.Head(a)
				if visited[w] {
					continue
				}
				visited[w] = true
				c, e := s.g.OutgoingArcs(w)
				stack = append(stack, frame{node: w, cursor: c, end: e})
				advanced = true
				break
			}
			if !advanced {
				order = append(order, top.node)
				stack = stack[:len(stack)-1]
			}
		}
	}
	return order
}
