package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/ricirt/venturematch/internal/domain"
	"github.com/ricirt/venturematch/internal/metrics"
)

func TestWorkerHooks(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	onSucceeded, onRetried, onDead := m.WorkerHooks()

	onSucceeded(domain.TaskProjectUpdating, 20*time.Millisecond)
	onSucceeded(domain.TaskProjectUpdating, 30*time.Millisecond)
	onRetried(domain.TaskProjectUpdating)
	onDead(domain.TaskModerationRequest)
	m.OnEnqueued(domain.TaskProjectCreation)

	if got := testutil.ToFloat64(m.TasksSucceeded.WithLabelValues("project_updating")); got != 2 {
		t.Fatalf("expected 2 successes, got %v", got)
	}
	if got := testutil.ToFloat64(m.TasksRetried.WithLabelValues("project_updating")); got != 1 {
		t.Fatalf("expected 1 retry, got %v", got)
	}
	if got := testutil.ToFloat64(m.TasksDeadLettered.WithLabelValues("moderation_request")); got != 1 {
		t.Fatalf("expected 1 dead letter, got %v", got)
	}
	if got := testutil.ToFloat64(m.TasksEnqueued.WithLabelValues("project_creation")); got != 1 {
		t.Fatalf("expected 1 enqueue, got %v", got)
	}
}

func TestObserveQueue_ZeroesMissingStatuses(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())

	m.ObserveQueue(map[domain.TaskStatus]int{domain.TaskDeadLettered: 3}, 1, 2, 0)
	m.ObserveQueue(map[domain.TaskStatus]int{domain.TaskEnqueued: 1}, 0, 0, 0)

	if got := testutil.ToFloat64(m.TasksByStatus.WithLabelValues("dead_lettered")); got != 0 {
		t.Fatalf("expected dead_lettered gauge reset to 0, got %v", got)
	}
	if got := testutil.ToFloat64(m.TasksByStatus.WithLabelValues("enqueued")); got != 1 {
		t.Fatalf("expected enqueued=1, got %v", got)
	}
}
