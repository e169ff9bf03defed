package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ricirt/venturematch/internal/domain"
	"github.com/ricirt/venturematch/internal/queue"
	"github.com/ricirt/venturematch/internal/ratelimiter"
	"github.com/ricirt/venturematch/internal/repository"
)

// Executor runs one attempt of a task. A nil error completes the task, an
// error wrapping domain.ErrPermanent dead-letters it, anything else retries.
type Executor interface {
	Execute(ctx context.Context, t *domain.Task) error
}

// RetryPolicy bounds the exponential backoff between attempts.
type RetryPolicy struct {
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// Backoff returns the delay before the attempt following the given one:
// BaseDelay·2^(attempt-1), capped at MaxDelay.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.MaxDelay || d <= 0 {
			return p.MaxDelay
		}
	}
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Worker is a single goroutine that continuously pulls items from the
// dispatch buffer, applies per-kind rate limiting, executes the task, and
// records the outcome against the lease it was claimed with.
type Worker struct {
	id          int
	q           *queue.PriorityQueue
	repo        repository.TaskRepository
	exec        Executor
	limiter     *ratelimiter.KindLimiters
	retry       RetryPolicy
	taskTimeout time.Duration
	lease       time.Duration
	logger      *zap.Logger
	hooks       MetricHooks
	now         func() time.Time
}

// NewWorker constructs a worker. Nil hooks are replaced by no-ops. lease is
// the lease taken when an execution starts and must exceed taskTimeout.
func NewWorker(
	id int,
	q *queue.PriorityQueue,
	repo repository.TaskRepository,
	exec Executor,
	limiter *ratelimiter.KindLimiters,
	retry RetryPolicy,
	taskTimeout time.Duration,
	lease time.Duration,
	logger *zap.Logger,
	hooks MetricHooks,
) *Worker {
	return &Worker{
		id: id, q: q, repo: repo, exec: exec,
		limiter: limiter, retry: retry, taskTimeout: taskTimeout, lease: lease,
		logger: logger, hooks: hooks.withDefaults(),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Run blocks until ctx is cancelled, processing one item per iteration.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("worker started", zap.Int("id", w.id))
	for {
		item, ok := w.q.Dequeue(ctx)
		if !ok {
			w.logger.Info("worker stopping", zap.Int("id", w.id))
			return
		}
		w.process(ctx, item)
	}
}

func (w *Worker) process(ctx context.Context, item queue.Item) {
	start := time.Now()
	log := w.logger.With(
		zap.String("task_id", item.TaskID),
		zap.String("task_kind", string(item.Kind)),
		zap.Int("attempt", item.Attempt),
	)
	// Outcome writes outlive a shutdown that cancels ctx mid-task.
	bookkeeping := context.WithoutCancel(ctx)

	t, err := w.repo.GetByID(ctx, item.TaskID)
	if err != nil {
		// The lease expires and the claim loop hands the task out again.
		log.Error("failed to fetch task", zap.Error(err))
		return
	}
	if t.Status != domain.TaskRunning || t.Attempts != item.Attempt {
		log.Warn("task lease superseded before execution",
			zap.String("status", string(t.Status)), zap.Int("current_attempt", t.Attempts))
		return
	}

	if t.PayloadErr != nil {
		w.deadLetter(bookkeeping, t, t.PayloadErr, log)
		return
	}

	if err := w.limiter.Wait(ctx, t.Kind); err != nil {
		// ctx cancelled while waiting; the lease lapses and the task is reclaimed.
		return
	}

	// The claim may have sat in the buffer past its lease. Start only
	// succeeds while the claim is live, and renews the lease so the claimer
	// cannot hand the task to another worker while it runs.
	runs, err := w.repo.Start(ctx, t.ID, t.Attempts, w.lease)
	if err != nil {
		if errors.Is(err, domain.ErrLeaseLost) {
			log.Warn("claim expired before execution; dropping buffered item")
			return
		}
		log.Error("failed to start task", zap.Error(err))
		return
	}
	t.Runs = runs

	// Earlier runs crashed mid-execution until the budget was spent.
	if t.Runs > t.MaxAttempts {
		w.deadLetter(bookkeeping, t, fmt.Errorf("run %d exceeds budget of %d", t.Runs, t.MaxAttempts), log)
		return
	}

	execCtx, cancel := context.WithTimeout(ctx, w.taskTimeout)
	err = w.exec.Execute(execCtx, t)
	cancel()
	elapsed := time.Since(start)

	if err != nil {
		w.handleFailure(bookkeeping, t, err, log)
		return
	}

	if err := w.repo.Complete(bookkeeping, t.ID, t.Attempts); err != nil {
		w.logTransitionError(log, "complete", err)
		return
	}
	w.hooks.OnSucceeded(t.Kind, elapsed)
	log.Info("task succeeded", zap.Duration("latency", elapsed))
}

// handleFailure retries transient failures with exponential backoff and
// dead-letters permanent ones or those out of attempts:
//
//	attempt 1 → BaseDelay   (default 5 s)
//	attempt 2 → 2·BaseDelay
//	attempt N → min(BaseDelay·2^(N-1), MaxDelay)
func (w *Worker) handleFailure(ctx context.Context, t *domain.Task, execErr error, log *zap.Logger) {
	if errors.Is(execErr, domain.ErrPermanent) || t.Runs >= t.MaxAttempts {
		w.deadLetter(ctx, t, execErr, log)
		return
	}

	delay := w.retry.Backoff(t.Runs)
	if err := w.repo.ScheduleRetry(ctx, t.ID, t.Attempts, w.now().Add(delay), execErr.Error()); err != nil {
		w.logTransitionError(log, "schedule retry", err)
		return
	}
	w.hooks.OnRetried(t.Kind)
	log.Warn("task failed, retry scheduled", zap.Error(execErr), zap.Duration("backoff", delay))
}

func (w *Worker) deadLetter(ctx context.Context, t *domain.Task, cause error, log *zap.Logger) {
	if err := w.repo.DeadLetter(ctx, t.ID, t.Attempts, cause.Error()); err != nil {
		w.logTransitionError(log, "dead-letter", err)
		return
	}
	w.hooks.OnDeadLettered(t.Kind)
	log.Error("task dead-lettered",
		zap.Error(cause),
		zap.String("dedup_key", t.DedupKey),
		zap.Any("payload", t.Payload),
		zap.Int("runs", t.Runs),
		zap.Int("max_attempts", t.MaxAttempts),
		zap.Bool("permanent", errors.Is(cause, domain.ErrPermanent)),
	)
}

func (w *Worker) logTransitionError(log *zap.Logger, op string, err error) {
	if errors.Is(err, domain.ErrLeaseLost) {
		log.Warn("lease lost before "+op+"; another worker owns the task now")
		return
	}
	log.Error("failed to "+op+" task", zap.Error(err))
}
