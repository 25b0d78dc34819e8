// Package prqueue implements the restricted-push priority queue described
// in spec.md §4.B: an O(1) integer-priority queue used by the max-flow
// core to pick the highest-labelled active node, under the precondition
// that every push has priority >= (current max priority in the queue) - 1.
package prqueue

import "os"

// debug enables the push precondition assertion. Off by default for
// release performance; set PRQUEUE_DEBUG=1 to enable it in tests.
var debug = os.Getenv("PRQUEUE_DEBUG") == "1"

// Queue is a restricted-push priority queue over non-negative integer
// priorities and int32 elements (node indices).
//
// Representation: two priority-sorted stacks, one for even priorities and
// one for odd. Push's precondition (new priority >= max-1) guarantees each
// stack's back element is its own maximum, so Pop just compares the two
// backs. Elements with equal priority come out LIFO.
type Queue struct {
	even, odd []entry
	maxSeen   int
}

type entry struct {
	elt      int32
	priority int
}

// New returns an empty Queue.
func New() *Queue {
	return &Queue{maxSeen: -1}
}

// Push inserts elt with the given priority. priority must be >=
// (current max priority in the queue) - 1; violating this precondition
// leaves the queue in an undefined state (checked only when debug is
// enabled, via PRQUEUE_DEBUG=1).
func (q *Queue) Push(elt int32, priority int) {
	if debug {
		top := -1
		if n := len(q.even); n > 0 {
			top = q.even[n-1].priority
		}
		if n := len(q.odd); n > 0 && q.odd[n-1].priority > top {
			top = q.odd[n-1].priority
		}
		if top >= 0 && priority < top-1 {
			panic("prqueue: push violates restricted-priority precondition")
		}
	}
	if priority > q.maxSeen {
		q.maxSeen = priority
	}
	if priority%2 == 0 {
		q.even = append(q.even, entry{elt: elt, priority: priority})
	} else {
		q.odd = append(q.odd, entry{elt: elt, priority: priority})
	}
}

// Pop removes and returns the element with the highest priority, LIFO
// among ties. ok is false if the queue is empty.
func (q *Queue) Pop() (elt int32, priority int, ok bool) {
	switch {
	case len(q.even) == 0 && len(q.odd) == 0:
		return 0, 0, false
	case len(q.even) == 0:
		return q.popOdd()
	case len(q.odd) == 0:
		return q.popEven()
	}
	if q.even[len(q.even)-1].priority >= q.odd[len(q.odd)-1].priority {
		return q.popEven()
	}
	return q.popOdd()
}

func (q *Queue) popEven() (int32, int, bool) {
	n := len(q.even) - 1
	e := q.even[n]
	q.even = q.even[:n]
	return e.elt, e.priority, true
}

func (q *Queue) popOdd() (int32, int, bool) {
	n := len(q.odd) - 1
	e := q.odd[n]
	q.odd = q.odd[:n]
	return e.elt, e.priority, true
}

// IsEmpty reports whether both stacks are empty.
func (q *Queue) IsEmpty() bool {
	return len(q.even) == 0 && len(q.odd) == 0
}

// Clear empties both stacks, keeping their backing arrays for reuse.
func (q *Queue) Clear() {
	q.even = q.even[:0]
	q.odd = q.odd[:0]
	q.maxSeen = -1
}
