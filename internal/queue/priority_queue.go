package queue

import (
	"context"
	"fmt"

	"github.com/ricirt/venturematch/internal/domain"
)

// PriorityQueue is the in-process dispatch buffer between the claim loop and
// the workers. Every item on it is already leased in the tasks table, so the
// buffer holds no state that a restart could lose.
//
// Workers dequeue via the double-select pattern, which guarantees that
// high-priority items are always served before normal or low ones, while
// still allowing fair competition between normal and low when high is empty.
type PriorityQueue struct {
	high   chan Item
	normal chan Item
	low    chan Item
}

// New creates a queue whose three tiers each hold up to capacity items.
func New(capacity int) *PriorityQueue {
	if capacity <= 0 {
		capacity = 1
	}
	return &PriorityQueue{
		high:   make(chan Item, capacity),
		normal: make(chan Item, capacity),
		low:    make(chan Item, capacity),
	}
}

// Enqueue places an item on the appropriate priority channel.
// It is non-blocking: if the target channel is full, ErrQueueFull is returned
// immediately rather than blocking the claim loop.
func (q *PriorityQueue) Enqueue(item Item) error {
	var ch chan Item
	switch item.Priority {
	case domain.PriorityHigh:
		ch = q.high
	case domain.PriorityNormal:
		ch = q.normal
	case domain.PriorityLow:
		ch = q.low
	default:
		return fmt.Errorf("unknown priority %q", item.Priority)
	}
	select {
	case ch <- item:
		return nil
	default:
		return domain.ErrQueueFull
	}
}

// Dequeue blocks until an item is available or ctx is cancelled.
//
// Priority guarantee, the double-select pattern:
//  1. A non-blocking select checks the high channel first. If an item is
//     waiting there, it is returned immediately regardless of normal/low.
//  2. Only when high is empty does the goroutine enter a fair blocking select
//     across all three channels plus the done signal.
//
// Returns (Item{}, false) when ctx is cancelled (graceful shutdown signal).
func (q *PriorityQueue) Dequeue(ctx context.Context) (Item, bool) {
	select {
	case item := <-q.high:
		return item, true
	default:
	}

	select {
	case item := <-q.high:
		return item, true
	case item := <-q.normal:
		return item, true
	case item := <-q.low:
		return item, true
	case <-ctx.Done():
		return Item{}, false
	}
}

// Depths returns the current number of items waiting in each priority tier.
func (q *PriorityQueue) Depths() (high, normal, low int) {
	return len(q.high), len(q.normal), len(q.low)
}

// Free returns how many items can be enqueued regardless of their priority,
// i.e. the smallest free space among the tiers. The claim loop never leases
// more tasks than this.
func (q *PriorityQueue) Free() int {
	free := cap(q.high) - len(q.high)
	if n := cap(q.normal) - len(q.normal); n < free {
		free = n
	}
	if n := cap(q.low) - len(q.low); n < free {
		free = n
	}
	return free
}
