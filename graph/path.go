package graph

// ReconstructPath walks parentArc (as produced by BFS) backward from target
// to a source, returning the arc sequence in source-to-target order. It
// returns nil if target is unreached (parentArc[target] == -1 and target
// isn't itself a source, i.e. dist would be 0).
//
// atSource reports whether a node is one of the BFS's sources, since
// parentArc alone can't distinguish "unreached" from "is a source" for
// dist == 0 nodes; callers typically pass a dist slice's zero-check or a
// small set membership test.
func ReconstructPath(g *FlowGraph, parentArc []int32, atSource func(node int32) bool, target int32) []int32 {
	var arcs []int32
	node := target
	for !atSource(node) {
		a := parentArc[node]
		if a == -1 {
			return nil // unreachable
		}
		arcs = append(arcs, a)
		node = g.Tail(a)
	}
	reverse32(arcs)
	return arcs
}

// PathNodes converts an arc sequence (source-to-target order) into the
// node sequence it visits, starting with source.
func PathNodes(g *FlowGraph, source int32, arcs []int32) []int32 {
	nodes := make([]int32, 0, len(arcs)+1)
	nodes = append(nodes, source)
	for _, a := range arcs {
		nodes = append(nodes, g.Head(a))
	}
	return nodes
}

func reverse32(s []int32) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
