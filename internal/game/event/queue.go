// Package event provides the drain-once FIFO queues that decouple the damage
// pipeline from its consumers within a single simulation tick.
package event

// Queue is a single-threaded FIFO buffer. Producers Push during a tick; one
// designated drain step removes everything once per tick. Entries pushed
// after a drain are not visible until the next drain. Queues are transient
// buffers, not persistent logs: nothing survives a drain.
//
// Queue is not safe for concurrent use; the simulation loop owns it.
type Queue[T any] struct {
	items []T
}

// NewQueue creates an empty queue.
func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{}
}

// Push appends v. Queues are unbounded; every entry is drained within the
// same tick, so depth never accumulates across ticks.
func (q *Queue[T]) Push(v T) {
	q.items = append(q.items, v)
}

// Len returns the number of entries currently buffered.
func (q *Queue[T]) Len() int {
	return len(q.items)
}

// Drain removes and returns all buffered entries in FIFO order. The queue is
// empty afterwards. The returned slice is owned by the caller.
func (q *Queue[T]) Drain() []T {
	out := q.items
	q.items = nil
	return out
}
