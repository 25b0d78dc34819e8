package graph

import "sync"

// GraphPool provides memory pooling for FlowGraph instances and the scratch
// slices solvers need while running (heights, excess, visited flags).
// Pooling avoids repeated large allocations when a caller solves many
// similarly-sized instances back to back — the common case for a
// long-running service built on this library.
//
// GraphPool is safe for concurrent use; callers running solves on separate
// goroutines should still use separate FlowGraph instances (FlowGraph
// itself is not thread-safe), acquiring one each from the pool.
type GraphPool struct {
	graphs      sync.Pool
	int32Slices sync.Pool
	boolSlices  sync.Pool
	floatSlices sync.Pool
}

// NewGraphPool returns a new, empty GraphPool.
func NewGraphPool() *GraphPool {
	p := &GraphPool{}
	p.graphs.New = func() any { return New() }
	p.int32Slices.New = func() any { return make([]int32, 0, 64) }
	p.boolSlices.New = func() any { return make([]bool, 0, 64) }
	p.floatSlices.New = func() any { return make([]float64, 0, 64) }
	return p
}

// globalPool is a package-level pool available without constructing one,
// mirroring the teacher's GetPool() convenience accessor.
var globalPool = NewGraphPool()

// GetPool returns the shared package-level GraphPool.
func GetPool() *GraphPool { return globalPool }

// AcquireGraph returns a FlowGraph from the pool, resetting it to an empty
// pre-Finalize state. Call ReleaseGraph when done with it.
func (p *GraphPool) AcquireGraph() *FlowGraph {
	g := p.graphs.Get().(*FlowGraph)
	g.Reset()
	return g
}

// ReleaseGraph returns a FlowGraph to the pool for reuse.
func (p *GraphPool) ReleaseGraph(g *FlowGraph) {
	if g == nil {
		return
	}
	p.graphs.Put(g)
}

// AcquireInt32Slice returns a zero-length []int32 with at least the
// requested capacity.
func (p *GraphPool) AcquireInt32Slice(capacity int) []int32 {
	s := p.int32Slices.Get().([]int32)[:0]
	if cap(s) < capacity {
		s = make([]int32, 0, capacity)
	}
	return s
}

// ReleaseInt32Slice returns a []int32 to the pool.
func (p *GraphPool) ReleaseInt32Slice(s []int32) {
	p.int32Slices.Put(s[:0]) //nolint:staticcheck // intentional: reuse backing array
}

// AcquireBoolSlice returns a []bool of exactly the requested length, all
// false.
func (p *GraphPool) AcquireBoolSlice(length int) []bool {
	s := p.boolSlices.Get().([]bool)
	if cap(s) < length {
		s = make([]bool, length)
		return s
	}
	s = s[:length]
	for i := range s {
		s[i] = false
	}
	return s
}

// ReleaseBoolSlice returns a []bool to the pool.
func (p *GraphPool) ReleaseBoolSlice(s []bool) {
	p.boolSlices.Put(s[:0]) //nolint:staticcheck // intentional: reuse backing array
}

// AcquireFloatSlice returns a []float64 of exactly the requested length,
// all zero.
func (p *GraphPool) AcquireFloatSlice(length int) []float64 {
	s := p.floatSlices.Get().([]float64)
	if cap(s) < length {
		s = make([]float64, length)
		return s
	}
	s = s[:length]
	for i := range s {
		s[i] = 0
	}
	return s
}

// ReleaseFloatSlice returns a []float64 to the pool.
func (p *GraphPool) ReleaseFloatSlice(s []float64) {
	p.floatSlices.Put(s[:0]) //nolint:staticcheck // intentional: reuse backing array
}
