// Package bidijkstra implements the bidirectional Dijkstra shortest-path
// search described in spec.md §4.H: two cooperating searches, one from the
// sources over the forward graph and one from the destinations over the
// backward graph, meeting in the middle.
package bidijkstra

import (
	"container/heap"
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"flowengine/graph"
)

// LengthFunc returns arc a's non-negative length.
type LengthFunc func(a int32) int64

// Path is a shortest path's result: the meeting node and its arc sequences
// in each direction. MeetingNode is -1 when no source reaches any
// destination.
type Path struct {
	Length       int64
	MeetingNode  int32
	ForwardArcs  []int32
	BackwardArcs []int32
}

// ErrNoPath is returned when no path connects any source to any
// destination.
var ErrNoPath = errors.New("bidijkstra: no path found")

const unset = -1

// nodeState holds both directions' settled distance at one node, guarded
// by that node's entry in Search.nodeLocks. Bundling both directions under
// one lock lets either search safely read the other's progress at a node.
type nodeState struct {
	fwdDist    int64
	fwdArc     int32
	fwdKnown   bool
	fwdSettled bool

	bwdDist    int64
	bwdArc     int32
	bwdKnown   bool
	bwdSettled bool
}

// Search runs bidirectional Dijkstra over a pair of graphs that share the
// same node numbering: backward must be forward's transpose, so an arc
// reached by the backward search corresponds to travelling that same arc
// from head to tail in the final path.
type Search struct {
	forward  *graph.FlowGraph
	backward *graph.FlowGraph
	length   LengthFunc

	nodeLocks []sync.Mutex
	nodes     []nodeState

	// globalMu guards best/meetingNode/radius only. Always acquired after
	// any nodeLocks entry, never before, so lock order is node-then-global.
	globalMu    sync.Mutex
	best        int64
	meetingNode int32
	radius      [2]int64
}

const forwardDir, backwardDir = 0, 1

// New returns a Search over the given forward/backward graph pair, using
// length for arc costs on both.
func New(forward, backward *graph.FlowGraph, length LengthFunc) *Search {
	n := forward.NumNodes()
	return &Search{
		forward:   forward,
		backward:  backward,
		length:    length,
		nodeLocks: make([]sync.Mutex, n),
		nodes:     make([]nodeState, n),
	}
}

// OneToOneShortestPath finds the shortest path from source to destination.
func (s *Search) OneToOneShortestPath(ctx context.Context, source, destination int32) (Path, error) {
	return s.SetToSetShortestPath(ctx, []int32{source}, []int32{destination})
}

type pqItem struct {
	node int32
	dist int64
}

type priorityQueue []pqItem

func (pq priorityQueue) Len() int            { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool  { return pq[i].dist < pq[j].dist }
func (pq priorityQueue) Swap(i, j int)       { pq[i], pq[j] = pq[j], pq[i] }
func (pq *priorityQueue) Push(x interface{}) { *pq = append(*pq, x.(pqItem)) }
func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]
	return item
}

// SetToSetShortestPath finds the shortest path from any node in sources to
// any node in destinations, running the forward and backward searches
// concurrently and stopping as soon as their settled frontiers meet. Every
// source and destination starts at distance zero; duplicate entries are
// harmless since a repeated zero-distance relaxation never improves on
// the first.
func (s *Search) SetToSetShortestPath(ctx context.Context, sources, destinations []int32) (Path, error) {
	for i := range s.nodes {
		s.nodes[i] = nodeState{}
	}
	s.best = unset
	s.meetingNode = unset
	s.radius = [2]int64{unset, unset}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.run(ctx, forwardDir, s.forward, sources) })
	g.Go(func() error { return s.run(ctx, backwardDir, s.backward, destinations) })
	if err := g.Wait(); err != nil {
		return Path{}, err
	}

	if s.meetingNode == unset {
		return Path{MeetingNode: unset}, ErrNoPath
	}
	return s.reconstruct(), nil
}

// run executes one direction of the bidirectional search.
func (s *Search) run(ctx context.Context, dir int, g *graph.FlowGraph, starts []int32) error {
	pq := &priorityQueue{}
	heap.Init(pq)

	for _, src := range starts {
		improved := s.relax(dir, src, 0, unset)
		if improved {
			heap.Push(pq, pqItem{node: src, dist: 0})
		}
	}

	checked := 0
	for pq.Len() > 0 {
		checked++
		if checked%256 == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}

		item := heap.Pop(pq).(pqItem)
		v := item.node

		s.nodeLocks[v].Lock()
		st := &s.nodes[v]
		alreadySettled := s.isSettled(st, dir)
		stale := !alreadySettled && s.dist(st, dir) != item.dist
		if alreadySettled || stale {
			s.nodeLocks[v].Unlock()
			continue
		}
		s.setSettled(st, dir)
		otherSettled := s.isSettled(st, 1-dir)
		otherDist := s.dist(st, 1-dir)
		s.nodeLocks[v].Unlock()

		s.globalMu.Lock()
		s.radius[dir] = item.dist
		if otherSettled {
			total := item.dist + otherDist
			if s.meetingNode == unset || total < s.best {
				s.best = total
				s.meetingNode = v
			}
		}
		stopBound := int64(unset)
		if s.best != unset {
			otherRadius := s.radius[1-dir]
			if otherRadius == unset {
				stopBound = s.best
			} else {
				stopBound = s.best - otherRadius
			}
		}
		s.globalMu.Unlock()

		if stopBound != unset && item.dist >= stopBound {
			return nil
		}

		start, end := g.OutgoingArcs(v)
		for a := start; a < end; a++ {
			w := g.Head(a)
			nd := item.dist + s.length(a)
			if s.relax(dir, w, nd, a) {
				heap.Push(pq, pqItem{node: w, dist: nd})
			}
		}
	}
	return nil
}

// relax updates dir's distance/parent-arc at node v if nd improves it,
// returning whether it did.
func (s *Search) relax(dir int, v int32, nd int64, arc int32) bool {
	s.nodeLocks[v].Lock()
	defer s.nodeLocks[v].Unlock()
	st := &s.nodes[v]
	if s.isKnown(st, dir) && s.dist(st, dir) <= nd {
		return false
	}
	s.setDist(st, dir, nd, arc)
	return true
}

func (s *Search) isSettled(st *nodeState, dir int) bool {
	if dir == forwardDir {
		return st.fwdSettled
	}
	return st.bwdSettled
}

func (s *Search) setSettled(st *nodeState, dir int) {
	if dir == forwardDir {
		st.fwdSettled = true
	} else {
		st.bwdSettled = true
	}
}

func (s *Search) isKnown(st *nodeState, dir int) bool {
	if dir == forwardDir {
		return st.fwdKnown
	}
	return st.bwdKnown
}

func (s *Search) dist(st *nodeState, dir int) int64 {
	if dir == forwardDir {
		return st.fwdDist
	}
	return st.bwdDist
}

func (s *Search) setDist(st *nodeState, dir int, nd int64, arc int32) {
	if dir == forwardDir {
		st.fwdDist, st.fwdArc, st.fwdKnown = nd, arc, true
	} else {
		st.bwdDist, st.bwdArc, st.bwdKnown = nd, arc, true
	}
}

// reconstruct walks the forward parent-arc chain from the meeting node back
// to a source, and the backward parent-arc chain back to a destination.
func (s *Search) reconstruct() Path {
	var forwardArcs []int32
	v := s.meetingNode
	for {
		st := &s.nodes[v]
		if st.fwdArc == unset {
			break
		}
		forwardArcs = append(forwardArcs, st.fwdArc)
		v = s.forward.Tail(st.fwdArc)
	}
	for i, j := 0, len(forwardArcs)-1; i < j; i, j = i+1, j-1 {
		forwardArcs[i], forwardArcs[j] = forwardArcs[j], forwardArcs[i]
	}

	var backwardArcs []int32
	v = s.meetingNode
	for {
		st := &s.nodes[v]
		if st.bwdArc == unset {
			break
		}
		backwardArcs = append(backwardArcs, st.bwdArc)
		v = s.backward.Tail(st.bwdArc)
	}

	return Path{
		Length:       s.best,
		MeetingNode:  s.meetingNode,
		ForwardArcs:  forwardArcs,
		BackwardArcs: backwardArcs,
	}
}
