// Package graph provides FlowGraph, the CSR-style directed-graph
// representation shared by every solver in this module, plus pooling and
// traversal helpers built on top of it.
//
// # Build / Finalize Lifecycle
//
// A FlowGraph is built incrementally with AddNode and AddArc, then frozen
// with Finalize. Before Finalize, only the build methods may be called.
// After Finalize, the graph is immutable and exposes the CSR accessors
// (Head, Tail, Opposite, OutgoingArcs). Arc and node identifiers are
// non-negative int32 values; NumNodes()/NumArcs() are fixed once Finalize
// returns.
//
// # Reverse Arcs
//
// Every arc has a reverse arc: Opposite(Reverse(a)) == a. When
// FinalizeOptions.DetectReverse is true (the default), Finalize looks for
// pairs of user-added arcs that are already mutual reverses of one another
// (same endpoints, opposite direction) and pairs them up instead of
// synthesizing a new arc. Arcs left unmatched get a synthesized reverse arc
// with no corresponding user data; callers identify these by checking
// whether a finalized arc index appears in the permutation returned by
// Finalize.
package graph

import "sort"

// FinalizeOptions controls how Finalize lays out the CSR representation.
type FinalizeOptions struct {
	// DetectReverse, when true (the default), pairs up existing mutual
	// reverse arcs instead of synthesizing new ones. When false, every arc
	// gets a brand-new synthesized reverse, matching the classical
	// "reverse-arc static graph" layout.
	DetectReverse bool

	// SortByHead, when true, orders each node's outgoing arcs by head
	// within its range. When false (the default), user arcs come first in
	// insertion order, followed by synthesized reverse arcs.
	SortByHead bool
}

// DefaultFinalizeOptions returns the options spec.md §4.A documents as
// defaults: reverse detection on, no head-sorting.
func DefaultFinalizeOptions() FinalizeOptions {
	return FinalizeOptions{DetectReverse: true, SortByHead: false}
}

// rawArc is a user-added arc before finalization.
type rawArc struct {
	tail, head int32
}

// FlowGraph is a directed graph with paired reverse arcs, built
// incrementally and frozen into a CSR adjacency by Finalize.
type FlowGraph struct {
	numNodes int32
	rawArcs  []rawArc

	finalized bool
	start     []int32 // len numNodes+1, start[numNodes] == numArcs
	arcHead   []int32 // len numArcs
	arcTail   []int32 // len numArcs, arcTail[a] == arcHead[reverse[a]]
	reverse   []int32 // len numArcs
}

// New returns an empty FlowGraph ready for AddNode/AddArc calls.
func New() *FlowGraph {
	return &FlowGraph{}
}

// Reset clears the graph back to its empty, pre-Finalize state so it can be
// reused (typically via GraphPool) without a new allocation.
func (g *FlowGraph) Reset() {
	g.numNodes = 0
	g.rawArcs = g.rawArcs[:0]
	g.finalized = false
	g.start = g.start[:0]
	g.arcHead = g.arcHead[:0]
	g.arcTail = g.arcTail[:0]
	g.reverse = g.reverse[:0]
}

// AddNode grows the node count so that NumNodes() >= n+1. It is a no-op if
// the graph already has at least n+1 nodes. Must be called before Finalize.
func (g *FlowGraph) AddNode(n int32) {
	if n+1 > g.numNodes {
		g.numNodes = n + 1
	}
}

// AddArc appends an arc from tail to head and returns its original index,
// i.e. the index to pass to Finalize's returned permutation. Nodes implied
// by tail/head are created automatically. Must be called before Finalize.
func (g *FlowGraph) AddArc(tail, head int32) int32 {
	g.AddNode(tail)
	g.AddNode(head)
	id := int32(len(g.rawArcs))
	g.rawArcs = append(g.rawArcs, rawArc{tail: tail, head: head})
	return id
}

// NumNodes returns the number of nodes. Valid at any point, though it may
// still grow until Finalize is called.
func (g *FlowGraph) NumNodes() int32 { return g.numNodes }

// NumArcs returns the number of finalized arcs (including synthesized
// reverse arcs). Only valid after Finalize.
func (g *FlowGraph) NumArcs() int32 { return int32(len(g.arcHead)) }

// NumUserArcs returns the number of arcs added via AddArc, before any
// reverse-arc synthesis.
func (g *FlowGraph) NumUserArcs() int32 { return int32(len(g.rawArcs)) }

// IsFinalized reports whether Finalize has been called.
func (g *FlowGraph) IsFinalized() bool { return g.finalized }

// logicalArc is an arc awaiting CSR placement: either a user arc or a
// synthesized reverse, with its reverse partner tracked by index into the
// same slice.
type logicalArc struct {
	tail, head int32
	synthetic  bool
	userIndex  int32 // original AddArc index, or -1 for synthesized arcs
	reverseOf  int32 // index into the logicalArc slice of its reverse
}

// Finalize freezes the graph into its CSR representation and returns the
// permutation mapping each original AddArc index to its finalized arc
// index. Finalize may only be called once.
func (g *FlowGraph) Finalize(opts FinalizeOptions) (permutation []int32, err error) {
	if g.finalized {
		return nil, errAlreadyFinalized
	}

	logical := g.buildLogicalArcs(opts.DetectReverse)

	order := g.arcOrder(logical, opts.SortByHead)

	finalIndex := make([]int32, len(logical))
	for pos, li := range order {
		finalIndex[li] = int32(pos)
	}

	n := len(order)
	g.arcHead = make([]int32, n)
	g.arcTail = make([]int32, n)
	g.reverse = make([]int32, n)
	for pos, li := range order {
		la := logical[li]
		g.arcHead[pos] = la.head
		g.arcTail[pos] = la.tail
		g.reverse[pos] = finalIndex[la.reverseOf]
	}

	g.start = make([]int32, g.numNodes+1)
	for _, la := range logical {
		g.start[la.tail]++
	}
	sum := int32(0)
	for t := int32(0); t < g.numNodes; t++ {
		c := g.start[t]
		g.start[t] = sum
		sum += c
	}
	g.start[g.numNodes] = sum

	permutation = make([]int32, len(g.rawArcs))
	for li, la := range logical {
		if !la.synthetic {
			permutation[la.userIndex] = finalIndex[int32(li)]
		}
	}

	g.finalized = true
	return permutation, nil
}

// buildLogicalArcs pairs up user arcs into forward/reverse partners
// (§4.A reverse detection) and synthesizes reverse arcs for the rest.
func (g *FlowGraph) buildLogicalArcs(detectReverse bool) []logicalArc {
	logical := make([]logicalArc, len(g.rawArcs), 2*len(g.rawArcs))
	for i, ra := range g.rawArcs {
		logical[i] = logicalArc{tail: ra.tail, head: ra.head, userIndex: int32(i), reverseOf: -1}
	}

	if !detectReverse {
		numUser := len(logical)
		for i := 0; i < numUser; i++ {
			appendSynthReverse(&logical, int32(i))
		}
		return logical
	}

	// Group non-self-loop arcs by canonical (min,max) endpoint pair, split
	// into "forward" (tail<head) and "backward" (tail>head) within each
	// group, and pair them off positionally. This matches spec.md §4.A:
	// "pairs that are consecutive and had opposite original orientation
	// form reverse-pairs".
	type bucket struct {
		forward, backward []int32
	}
	buckets := make(map[int64]*bucket)
	canon := func(a, b int32) int64 {
		if a > b {
			a, b = b, a
		}
		return int64(a)<<32 | int64(uint32(b))
	}

	for i, ra := range g.rawArcs {
		if ra.tail == ra.head {
			continue // self-loops never pair; always synthesized below
		}
		key := canon(ra.tail, ra.head)
		b := buckets[key]
		if b == nil {
			b = &bucket{}
			buckets[key] = b
		}
		if ra.tail < ra.head {
			b.forward = append(b.forward, int32(i))
		} else {
			b.backward = append(b.backward, int32(i))
		}
	}

	paired := make([]bool, len(g.rawArcs))
	// Deterministic iteration: sort bucket keys.
	keys := make([]int64, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	for _, k := range keys {
		b := buckets[k]
		m := len(b.forward)
		if len(b.backward) < m {
			m = len(b.backward)
		}
		for i := 0; i < m; i++ {
			f, r := b.forward[i], b.backward[i]
			logical[f].reverseOf = r
			logical[r].reverseOf = f
			paired[f] = true
			paired[r] = true
		}
	}

	for i := range g.rawArcs {
		if !paired[i] {
			appendSynthReverse(&logical, int32(i))
		}
	}

	return logical
}

// appendSynthReverse appends a synthesized reverse arc for logical arc idx
// and wires the two together.
func appendSynthReverse(logical *[]logicalArc, idx int32) {
	l := *logical
	fwd := l[idx]
	revIdx := int32(len(l))
	l = append(l, logicalArc{
		tail:      fwd.head,
		head:      fwd.tail,
		synthetic: true,
		userIndex: -1,
		reverseOf: idx,
	})
	l[idx].reverseOf = revIdx
	*logical = l
}

// arcOrder returns, for each node's outgoing range, the logical-arc indices
// in the order they should appear in the finalized CSR arrays: grouped by
// tail (ascending), and within a tail either by head (sortByHead) or
// user-arcs-then-synthesized (default).
func (g *FlowGraph) arcOrder(logical []logicalArc, sortByHead bool) []int32 {
	byTail := make([][]int32, g.numNodes)
	for i, la := range logical {
		byTail[la.tail] = append(byTail[la.tail], int32(i))
	}

	order := make([]int32, 0, len(logical))
	for t := int32(0); t < g.numNodes; t++ {
		group := byTail[t]
		if sortByHead {
			sort.SliceStable(group, func(i, j int) bool {
				return logical[group[i]].head < logical[group[j]].head
			})
		} else {
			sort.SliceStable(group, func(i, j int) bool {
				return !logical[group[i]].synthetic && logical[group[j]].synthetic
			})
		}
		order = append(order, group...)
	}
	return order
}

// Head returns the destination node of arc a. Only valid after Finalize.
func (g *FlowGraph) Head(a int32) int32 { return g.arcHead[a] }

// Tail returns the source node of arc a, which always equals
// Head(Reverse(a)); it is stored per arc at Finalize. Only valid after
// Finalize.
func (g *FlowGraph) Tail(a int32) int32 { return g.arcTail[a] }

// Reverse returns the index of arc a's paired reverse arc.
// Reverse(Reverse(a)) == a always holds. Only valid after Finalize.
func (g *FlowGraph) Reverse(a int32) int32 { return g.reverse[a] }

// Opposite is an alias for Reverse, matching spec.md §4.A's naming.
func (g *FlowGraph) Opposite(a int32) int32 { return g.reverse[a] }

// OutgoingArcs returns the [start,end) arc-index range for node n's
// outgoing arcs. Only valid after Finalize.
func (g *FlowGraph) OutgoingArcs(n int32) (start, end int32) {
	return g.start[n], g.start[n+1]
}

// OutgoingArcsFrom returns the [cursor,end) arc-index range for node n,
// letting a caller resume a scan from a previously recorded cursor (the
// "first-admissible-arc cursor" of spec.md §3).
func (g *FlowGraph) OutgoingArcsFrom(n, cursor int32) (start, end int32) {
	return cursor, g.start[n+1]
}

var errAlreadyFinalized = newGraphError("graph already finalized")

type graphError string

func newGraphError(s string) error { return graphError(s) }
func (e graphError) Error() string { return string(e) }
