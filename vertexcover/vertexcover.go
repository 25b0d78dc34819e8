// Package vertexcover computes a minimum vertex cover of a bipartite graph
// via König's theorem, described in spec.md §4.I: build a unit-capacity
// max-flow network, recover a maximum matching from the saturated arcs,
// then run an alternating-path search from every unmatched left node.
package vertexcover

import (
	"context"
	"errors"

	"flowengine/flowstatus"
	"flowengine/maxflow"
)

// ErrBadInput is returned when a right-node index in leftToRight falls
// outside [0, numRight).
var ErrBadInput = errors.New("vertexcover: right-node index out of range")

// MinimumVertexCover returns a bool vector of length numLeft+numRight,
// true at the positions of a minimum vertex cover of the bipartite graph
// whose left side has numLeft nodes (indices [0, numLeft)) and whose right
// side has numRight nodes. leftToRight[i] lists the right-side neighbors
// of left node i, given as indices into [0, numRight) (not yet offset by
// numLeft).
func MinimumVertexCover(leftToRight [][]int32, numLeft, numRight int32) ([]bool, error) {
	for _, neighbors := range leftToRight {
		for _, r := range neighbors {
			if r < 0 || r >= numRight {
				return nil, ErrBadInput
			}
		}
	}

	superSource := numLeft + numRight
	superSink := numLeft + numRight + 1

	mf := maxflow.NewSimple()
	type edge struct {
		left, right int32
		arc         int32
	}
	var edges []edge

	for i := int32(0); i < numLeft; i++ {
		mf.AddArcWithCapacity(superSource, i, 1)
	}
	for i, neighbors := range leftToRight {
		for _, r := range neighbors {
			a := mf.AddArcWithCapacity(int32(i), numLeft+r, 1)
			edges = append(edges, edge{left: int32(i), right: r, arc: a})
		}
	}
	for r := int32(0); r < numRight; r++ {
		mf.AddArcWithCapacity(numLeft+r, superSink, 1)
	}

	status := mf.Solve(context.Background(), superSource, superSink)
	if status != flowstatus.Optimal {
		return nil, errors.New("vertexcover: max-flow solve failed")
	}

	// matchedRightOf[l] holds the right node matched to left node l, or -1.
	matchedRightOf := make([]int32, numLeft)
	for i := range matchedRightOf {
		matchedRightOf[i] = -1
	}
	matchedLeftOf := make([]int32, numRight)
	for i := range matchedLeftOf {
		matchedLeftOf[i] = -1
	}
	adjacency := make([][]edge, numLeft)
	for _, e := range edges {
		adjacency[e.left] = append(adjacency[e.left], e)
		if mf.Flow(e.arc) > 0 {
			matchedRightOf[e.left] = e.right
			matchedLeftOf[e.right] = e.left
		}
	}

	visitedLeft := make([]bool, numLeft)
	visitedRight := make([]bool, numRight)
	var visit func(l int32)
	visit = func(l int32) {
		if visitedLeft[l] {
			return
		}
		visitedLeft[l] = true
		for _, e := range adjacency[l] {
			if mf.Flow(e.arc) > 0 {
				// matching edge: never traversed from a left node since
				// an unmatched-start alternating path only uses a
				// matching edge when arriving at a right node.
				continue
			}
			if visitedRight[e.right] {
				continue
			}
			visitedRight[e.right] = true
			if next := matchedLeftOf[e.right]; next >= 0 {
				visit(next)
			}
		}
	}

	for l := int32(0); l < numLeft; l++ {
		if matchedRightOf[l] < 0 {
			visit(l)
		}
	}

	cover := make([]bool, numLeft+numRight)
	for l := int32(0); l < numLeft; l++ {
		if !visitedLeft[l] {
			cover[l] = true
		}
	}
	for r := int32(0); r < numRight; r++ {
		if visitedRight[r] {
			cover[numLeft+r] = true
		}
	}
	return cover, nil
}
