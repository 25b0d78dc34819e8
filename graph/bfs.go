package graph

// BFS performs a multi-source breadth-first search over g's outgoing arcs,
// following only arcs for which admissible returns true. It returns, for
// every node, its hop distance from the closest source (-1 if unreached)
// and the arc used to reach it (-1 for sources and unreached nodes).
//
// The max-flow core uses it for its augmenting-path check and its
// source-side and sink-side minimum-cut queries, supplying an admissible
// predicate over residual capacities, which live in the solver, not in the
// graph.
func BFS(g *FlowGraph, sources []int32, admissible func(arc int32) bool) (dist, parentArc []int32) {
	n := g.NumNodes()
	dist = make([]int32, n)
	parentArc = make([]int32, n)
	for i := range dist {
		dist[i] = -1
		parentArc[i] = -1
	}

	queue := make([]int32, 0, n)
	for _, s := range sources {
		if dist[s] == -1 {
			dist[s] = 0
			queue = append(queue, s)
		}
	}

	for head := 0; head < len(queue); head++ {
		u := queue[head]
		start, end := g.OutgoingArcs(u)
		for a := start; a < end; a++ {
			if !admissible(a) {
				continue
			}
			w := g.Head(a)
			if dist[w] != -1 {
				continue
			}
			dist[w] = dist[u] + 1
			parentArc[w] = a
			queue = append(queue, w)
		}
	}

	return dist, parentArc
}

// DFS performs an iterative depth-first search from source, following only
// arcs for which admissible returns true, and calls visit(node) the first
// time each node is discovered (including source). It returns the visited
// set as a []bool of length NumNodes().
func DFS(g *FlowGraph, source int32, admissible func(arc int32) bool, visit func(node int32)) []bool {
	n := g.NumNodes()
	visited := make([]bool, n)
	stack := []int32{source}
	visited[source] = true
	if visit != nil {
		visit(source)
	}

	for len(stack) > 0 {
		u := stack[len(stack)-1]
		start, end := g.OutgoingArcs(u)
		advanced := false
		for a := start; a < end; a++ {
			if !admissible(a) {
				continue
			}
			w := g.Head(a)
			if visited[w] {
				continue
			}
			visited[w] = true
			if visit != nil {
				visit(w)
			}
			stack = append(stack, w)
			advanced = true
			break
		}
		if !advanced {
			stack = stack[:len(stack)-1]
		}
	}

	return visited
}
