package repository

import (
	"context"
	"time"

	"github.com/ricirt/venturematch/internal/domain"
)

// TaskRepository is the durable side of the task queue.
//
// Mutual exclusion per task id comes from leases: Claim hands a task to one
// caller until its lease expires, and every later transition must present
// the attempt number it was claimed with.
type TaskRepository interface {
	// CreateBatch inserts tasks in one transaction. A task whose DedupKey
	// already exists is skipped and its ID is rewritten to the existing row's.
	// The returned slice reports, per task, whether a new row was written.
	CreateBatch(ctx context.Context, tasks []*domain.Task) ([]bool, error)

	GetByID(ctx context.Context, id string) (*domain.Task, error)

	// Claim leases up to limit due tasks: enqueued or retrying tasks whose
	// run_at has passed, and running tasks whose lease expired.
	Claim(ctx context.Context, limit int, lease time.Duration) ([]*domain.Task, error)

	// Start marks the beginning of an execution. It extends the lease to
	// now+lease and increments Runs, but only while the claim for attempt is
	// still live; an expired or superseded claim yields domain.ErrLeaseLost.
	// It returns the new run count.
	Start(ctx context.Context, id string, attempt int, lease time.Duration) (int, error)

	Complete(ctx context.Context, id string, attempt int) error
	ScheduleRetry(ctx context.Context, id string, attempt int, runAt time.Time, errMsg string) error
	DeadLetter(ctx context.Context, id string, attempt int, errMsg string) error

	ListByStatus(ctx context.Context, status domain.TaskStatus, limit int) ([]*domain.Task, error)
	CountByStatus(ctx context.Context) (map[domain.TaskStatus]int, error)

	// Replay moves a dead-lettered task back to enqueued with a fresh budget
	// (attempts and runs reset to zero).
	Replay(ctx context.Context, id string) error
}
