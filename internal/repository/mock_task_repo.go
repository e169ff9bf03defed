package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ricirt/venturematch/internal/domain"
)

// MockTaskRepository is an in-memory TaskRepository with the same lease and
// fencing rules as the Postgres one. Now can be replaced to control time.
type MockTaskRepository struct {
	mu    sync.Mutex
	tasks map[string]*domain.Task
	order []string // insertion order, for stable claims

	Now func() time.Time

	// Optional error overrides, set in tests to simulate failure paths.
	CreateErr error
	ClaimErr  error
}

func NewMockTaskRepository() *MockTaskRepository {
	return &MockTaskRepository{
		tasks: make(map[string]*domain.Task),
		Now:   time.Now,
	}
}

func (m *MockTaskRepository) CreateBatch(_ context.Context, tasks []*domain.Task) ([]bool, error) {
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	created := make([]bool, len(tasks))
	for i, t := range tasks {
		if existing := m.byDedupKey(t.DedupKey); existing != nil {
			t.ID = existing.ID
			continue
		}
		clone := *t
		m.tasks[t.ID] = &clone
		m.order = append(m.order, t.ID)
		created[i] = true
	}
	return created, nil
}

func (m *MockTaskRepository) byDedupKey(key string) *domain.Task {
	for _, t := range m.tasks {
		if t.DedupKey == key {
			return t
		}
	}
	return nil
}

func (m *MockTaskRepository) GetByID(_ context.Context, id string) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *t
	return &clone, nil
}

func (m *MockTaskRepository) Claim(_ context.Context, limit int, lease time.Duration) ([]*domain.Task, error) {
	if m.ClaimErr != nil {
		return nil, m.ClaimErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.Now()
	var due []*domain.Task
	for _, id := range m.order {
		t := m.tasks[id]
		switch {
		case (t.Status == domain.TaskEnqueued || t.Status == domain.TaskRetrying) && !t.RunAt.After(now):
			due = append(due, t)
		case t.Status == domain.TaskRunning && t.LeaseUntil != nil && t.LeaseUntil.Before(now):
			due = append(due, t)
		}
	}
	sort.SliceStable(due, func(i, j int) bool {
		return due[i].Priority.Rank() < due[j].Priority.Rank()
	})
	if len(due) > limit {
		due = due[:limit]
	}

	result := make([]*domain.Task, 0, len(due))
	for _, t := range due {
		until := now.Add(lease)
		t.Status = domain.TaskRunning
		t.Attempts++
		t.LeaseUntil = &until
		t.UpdatedAt = now
		clone := *t
		result = append(result, &clone)
	}
	return result, nil
}

func (m *MockTaskRepository) Start(_ context.Context, id string, attempt int, lease time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.Now()
	t, ok := m.tasks[id]
	if !ok || t.Status != domain.TaskRunning || t.Attempts != attempt ||
		t.LeaseUntil == nil || !t.LeaseUntil.After(now) {
		return 0, domain.ErrLeaseLost
	}
	until := now.Add(lease)
	t.Runs++
	t.LeaseUntil = &until
	t.UpdatedAt = now
	return t.Runs, nil
}

func (m *MockTaskRepository) Complete(_ context.Context, id string, attempt int) error {
	return m.transition(id, attempt, func(t *domain.Task) {
		t.Status = domain.TaskSucceeded
		t.LastError = nil
	})
}

func (m *MockTaskRepository) ScheduleRetry(_ context.Context, id string, attempt int, runAt time.Time, errMsg string) error {
	return m.transition(id, attempt, func(t *domain.Task) {
		t.Status = domain.TaskRetrying
		t.RunAt = runAt
		t.LastError = &errMsg
	})
}

func (m *MockTaskRepository) DeadLetter(_ context.Context, id string, attempt int, errMsg string) error {
	return m.transition(id, attempt, func(t *domain.Task) {
		t.Status = domain.TaskDeadLettered
		t.LastError = &errMsg
	})
}

func (m *MockTaskRepository) transition(id string, attempt int, apply func(*domain.Task)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok || t.Status != domain.TaskRunning || t.Attempts != attempt {
		return domain.ErrLeaseLost
	}
	apply(t)
	t.LeaseUntil = nil
	t.UpdatedAt = m.Now()
	return nil
}

func (m *MockTaskRepository) ListByStatus(_ context.Context, status domain.TaskStatus, limit int) ([]*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*domain.Task
	for _, id := range m.order {
		if t := m.tasks[id]; t.Status == status {
			clone := *t
			result = append(result, &clone)
		}
	}
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *MockTaskRepository) CountByStatus(_ context.Context) (map[domain.TaskStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[domain.TaskStatus]int)
	for _, t := range m.tasks {
		counts[t.Status]++
	}
	return counts, nil
}

func (m *MockTaskRepository) Replay(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return domain.ErrNotFound
	}
	if t.Status != domain.TaskDeadLettered {
		return domain.ErrTaskNotReplayable
	}
	t.Status = domain.TaskEnqueued
	t.Attempts = 0
	t.Runs = 0
	t.RunAt = m.Now()
	t.LeaseUntil = nil
	return nil
}

// All returns every stored task in insertion order. Test helper.
func (m *MockTaskRepository) All() []*domain.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*domain.Task, 0, len(m.order))
	for _, id := range m.order {
		clone := *m.tasks[id]
		result = append(result, &clone)
	}
	return result
}
