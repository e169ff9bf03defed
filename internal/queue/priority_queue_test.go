package queue_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ricirt/venturematch/internal/domain"
	"github.com/ricirt/venturematch/internal/queue"
)

func item(id string, p domain.Priority) queue.Item {
	return queue.Item{TaskID: id, Kind: domain.TaskProjectUpdating, Priority: p, Attempt: 1}
}

func TestPriorityQueue_BasicEnqueueDequeue(t *testing.T) {
	q := queue.New(8)
	ctx := context.Background()

	if err := q.Enqueue(item("1", domain.PriorityNormal)); err != nil {
		t.Fatal(err)
	}

	got, ok := q.Dequeue(ctx)
	if !ok {
		t.Fatal("expected item, got nothing")
	}
	if got.TaskID != "1" || got.Attempt != 1 {
		t.Fatalf("unexpected item: %+v", got)
	}
}

// TestPriorityQueue_HighBeforeNormal verifies that a high-priority item
// inserted after a normal-priority item is still served first.
func TestPriorityQueue_HighBeforeNormal(t *testing.T) {
	q := queue.New(8)
	ctx := context.Background()

	_ = q.Enqueue(item("normal", domain.PriorityNormal))
	_ = q.Enqueue(item("high", domain.PriorityHigh))

	first, _ := q.Dequeue(ctx)
	if first.TaskID != "high" {
		t.Fatalf("expected high to be dequeued first, got %q", first.TaskID)
	}
}

// TestPriorityQueue_ContextCancellation verifies Dequeue returns (_, false)
// when the context is cancelled while blocking.
func TestPriorityQueue_ContextCancellation(t *testing.T) {
	q := queue.New(8)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan bool, 1)
	go func() {
		_, ok := q.Dequeue(ctx)
		done <- ok
	}()

	cancel()

	select {
	case ok := <-done:
		if ok {
			t.Fatal("expected ok=false after context cancellation")
		}
	case <-time.After(time.Second):
		t.Fatal("Dequeue did not return after context cancellation")
	}
}

func TestPriorityQueue_ErrQueueFull(t *testing.T) {
	q := queue.New(2)

	for i := 0; i < 2; i++ {
		if err := q.Enqueue(item("x", domain.PriorityLow)); err != nil {
			t.Fatalf("unexpected error below capacity: %v", err)
		}
	}
	if err := q.Enqueue(item("y", domain.PriorityLow)); !errors.Is(err, domain.ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	// Other tiers are unaffected.
	if err := q.Enqueue(item("z", domain.PriorityHigh)); err != nil {
		t.Fatalf("unexpected error on high tier: %v", err)
	}
}

func TestPriorityQueue_UnknownPriority(t *testing.T) {
	q := queue.New(2)
	if err := q.Enqueue(item("x", domain.Priority("urgent"))); err == nil {
		t.Fatal("expected error for unknown priority")
	}
}

func TestPriorityQueue_Free(t *testing.T) {
	q := queue.New(3)
	if got := q.Free(); got != 3 {
		t.Fatalf("expected free=3 on empty queue, got %d", got)
	}
	_ = q.Enqueue(item("n1", domain.PriorityNormal))
	_ = q.Enqueue(item("n2", domain.PriorityNormal))
	_ = q.Enqueue(item("h", domain.PriorityHigh))
	if got := q.Free(); got != 1 {
		t.Fatalf("expected free=1 (normal tier), got %d", got)
	}
}

// TestPriorityQueue_ConcurrentEnqueueDequeue verifies there are no races
// when multiple goroutines enqueue and dequeue simultaneously.
func TestPriorityQueue_ConcurrentEnqueueDequeue(t *testing.T) {
	const producers = 5
	const itemsPerProducer = 100
	const total = producers * itemsPerProducer

	q := queue.New(total)
	received := make(chan struct{}, total)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var consumerDone sync.WaitGroup
	consumerDone.Add(1)
	go func() {
		defer consumerDone.Done()
		for {
			_, ok := q.Dequeue(ctx)
			if !ok {
				return
			}
			received <- struct{}{}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < itemsPerProducer; j++ {
				_ = q.Enqueue(item("id", domain.PriorityNormal))
			}
		}()
	}
	wg.Wait()

	for i := 0; i < total; i++ {
		select {
		case <-received:
		case <-ctx.Done():
			t.Fatalf("timeout: only received %d/%d items", i, total)
		}
	}
	cancel()
	consumerDone.Wait()
}

func TestPriorityQueue_Depths(t *testing.T) {
	q := queue.New(8)

	_ = q.Enqueue(item("h", domain.PriorityHigh))
	_ = q.Enqueue(item("n1", domain.PriorityNormal))
	_ = q.Enqueue(item("n2", domain.PriorityNormal))
	_ = q.Enqueue(item("l", domain.PriorityLow))

	high, normal, low := q.Depths()
	if high != 1 || normal != 2 || low != 1 {
		t.Fatalf("unexpected depths: high=%d normal=%d low=%d", high, normal, low)
	}
}
