package queue_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ricirt/venturematch/internal/domain"
	"github.com/ricirt/venturematch/internal/queue"
	"github.com/ricirt/venturematch/internal/repository"
)

func task(kind domain.TaskKind, key string) *domain.Task {
	return &domain.Task{
		Kind:     kind,
		DedupKey: key,
		Payload:  domain.TaskPayload{ProjectID: 3, EventID: "e1"},
	}
}

func TestProducer_EnqueueFillsDefaults(t *testing.T) {
	repo := repository.NewMockTaskRepository()
	var enqueued []domain.TaskKind
	p := queue.NewProducer(repo, 5, queue.ProducerHooks{
		OnEnqueued: func(k domain.TaskKind) { enqueued = append(enqueued, k) },
	})

	ids, err := p.Enqueue(context.Background(),
		task(domain.TaskModerationRequest, "a"),
		task(domain.TaskProjectCreation, "b"),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 2 || ids[0] == "" || ids[0] == ids[1] {
		t.Fatalf("expected two distinct ids, got %v", ids)
	}

	stored := repo.All()
	if stored[0].Priority != domain.PriorityHigh || stored[1].Priority != domain.PriorityLow {
		t.Fatalf("unexpected priorities: %s, %s", stored[0].Priority, stored[1].Priority)
	}
	for _, s := range stored {
		if s.Status != domain.TaskEnqueued || s.MaxAttempts != 5 || s.Attempts != 0 {
			t.Fatalf("unexpected defaults: %+v", s)
		}
	}
	if len(enqueued) != 2 {
		t.Fatalf("expected 2 enqueue hooks, got %d", len(enqueued))
	}

	select {
	case <-p.Nudges():
	default:
		t.Fatal("expected the claim loop to be nudged")
	}
}

func TestProducer_DuplicateKeyReturnsExistingID(t *testing.T) {
	repo := repository.NewMockTaskRepository()
	hooks := 0
	p := queue.NewProducer(repo, 5, queue.ProducerHooks{OnEnqueued: func(domain.TaskKind) { hooks++ }})
	ctx := context.Background()

	first, err := p.Enqueue(ctx, task(domain.TaskProjectUpdating, "same"))
	if err != nil {
		t.Fatal(err)
	}
	<-p.Nudges()

	second, err := p.Enqueue(ctx, task(domain.TaskProjectUpdating, "same"))
	if err != nil {
		t.Fatal(err)
	}
	if first[0] != second[0] {
		t.Fatalf("expected duplicate enqueue to return %s, got %s", first[0], second[0])
	}
	if n := len(repo.All()); n != 1 {
		t.Fatalf("expected 1 stored task, got %d", n)
	}
	if hooks != 1 {
		t.Fatalf("expected 1 enqueue hook, got %d", hooks)
	}
	select {
	case <-p.Nudges():
		t.Fatal("duplicate enqueue should not nudge")
	default:
	}
}

func TestProducer_Validation(t *testing.T) {
	p := queue.NewProducer(repository.NewMockTaskRepository(), 5, queue.ProducerHooks{})
	ctx := context.Background()

	if _, err := p.Enqueue(ctx, task("unknown", "k")); err == nil {
		t.Fatal("expected error for unknown kind")
	}
	if _, err := p.Enqueue(ctx, task(domain.TaskProjectUpdating, "")); err == nil {
		t.Fatal("expected error for empty dedup key")
	}
	ids, err := p.Enqueue(ctx)
	if err != nil || len(ids) != 0 {
		t.Fatalf("expected empty result for no tasks, got %v, %v", ids, err)
	}
}

func TestProducer_RepositoryError(t *testing.T) {
	repo := repository.NewMockTaskRepository()
	repo.CreateErr = errors.New("db down")
	p := queue.NewProducer(repo, 5, queue.ProducerHooks{})

	if _, err := p.Enqueue(context.Background(), task(domain.TaskProjectUpdating, "k")); err == nil {
		t.Fatal("expected repository error to surface")
	}
}

func TestProducer_EnqueueUnique(t *testing.T) {
	p := queue.NewProducer(repository.NewMockTaskRepository(), 5, queue.ProducerHooks{})
	ctx := context.Background()

	id, created, err := p.EnqueueUnique(ctx, task(domain.TaskModerationApproved, "moderation_decision:tX"))
	if err != nil || !created {
		t.Fatalf("expected a new task, got created=%v err=%v", created, err)
	}
	again, created, err := p.EnqueueUnique(ctx, task(domain.TaskModerationDeclined, "moderation_decision:tX"))
	if err != nil {
		t.Fatal(err)
	}
	if created || again != id {
		t.Fatalf("expected the first decision %s to win, got %s created=%v", id, again, created)
	}
}
