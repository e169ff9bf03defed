package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ricirt/venturematch/internal/domain"
	"github.com/ricirt/venturematch/internal/repository"
)

// ProducerHooks lets the caller observe enqueues without importing prometheus here.
type ProducerHooks struct {
	OnEnqueued func(kind domain.TaskKind)
}

// Producer is the write side of the task queue. Enqueue persists tasks and
// returns; execution happens later on whichever worker claims them.
type Producer struct {
	repo        repository.TaskRepository
	maxAttempts int
	hooks       ProducerHooks
	nudge       chan struct{}
	now         func() time.Time
}

func NewProducer(repo repository.TaskRepository, maxAttempts int, hooks ProducerHooks) *Producer {
	return &Producer{
		repo:        repo,
		maxAttempts: maxAttempts,
		hooks:       hooks,
		nudge:       make(chan struct{}, 1),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Enqueue durably stores tasks in a single transaction and returns their ids
// in input order. Callers set Kind, DedupKey and Payload; everything else is
// filled in here. A task whose dedup key was already enqueued is not stored
// again and its existing id is returned instead.
func (p *Producer) Enqueue(ctx context.Context, tasks ...*domain.Task) ([]string, error) {
	ids, _, err := p.enqueue(ctx, tasks)
	return ids, err
}

// EnqueueUnique stores a single task and reports whether it was new. When
// created is false the returned id belongs to the task already holding t's
// dedup key.
func (p *Producer) EnqueueUnique(ctx context.Context, t *domain.Task) (id string, created bool, err error) {
	ids, fresh, err := p.enqueue(ctx, []*domain.Task{t})
	if err != nil {
		return "", false, err
	}
	return ids[0], fresh[0], nil
}

func (p *Producer) enqueue(ctx context.Context, tasks []*domain.Task) ([]string, []bool, error) {
	if len(tasks) == 0 {
		return []string{}, []bool{}, nil
	}

	now := p.now()
	for _, t := range tasks {
		if !t.Kind.IsValid() {
			return nil, nil, fmt.Errorf("enqueue: unknown task kind %q", t.Kind)
		}
		if t.DedupKey == "" {
			return nil, nil, fmt.Errorf("enqueue %s: dedup key is required", t.Kind)
		}
		t.ID = uuid.New().String()
		t.Priority = t.Kind.Priority()
		t.Status = domain.TaskEnqueued
		t.Attempts = 0
		t.MaxAttempts = p.maxAttempts
		t.RunAt = now
		t.CreatedAt = now
		t.UpdatedAt = now
	}

	created, err := p.repo.CreateBatch(ctx, tasks)
	if err != nil {
		return nil, nil, fmt.Errorf("persist tasks: %w", err)
	}

	ids := make([]string, len(tasks))
	fresh := false
	for i, t := range tasks {
		ids[i] = t.ID
		if created[i] {
			fresh = true
			if p.hooks.OnEnqueued != nil {
				p.hooks.OnEnqueued(t.Kind)
			}
		}
	}
	if fresh {
		p.Nudge()
	}
	return ids, created, nil
}

// Nudge wakes the claim loop without waiting for its next tick. It never blocks.
func (p *Producer) Nudge() {
	select {
	case p.nudge <- struct{}{}:
	default:
	}
}

// Nudges is the signal channel consumed by the claim loop.
func (p *Producer) Nudges() <-chan struct{} {
	return p.nudge
}
