package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ricirt/venturematch/internal/queue"
	"github.com/ricirt/venturematch/internal/repository"
)

// Claimer leases due tasks from the database and hands them to the workers
// through the dispatch buffer. Retries and tasks abandoned by a crashed
// worker come back through the same query once their run_at or lease passes,
// so no separate retry poller exists.
type Claimer struct {
	repo     repository.TaskRepository
	q        *queue.PriorityQueue
	nudges   <-chan struct{}
	interval time.Duration
	batch    int
	lease    time.Duration
	logger   *zap.Logger
}

func NewClaimer(
	repo repository.TaskRepository,
	q *queue.PriorityQueue,
	nudges <-chan struct{},
	interval time.Duration,
	batch int,
	lease time.Duration,
	logger *zap.Logger,
) *Claimer {
	return &Claimer{
		repo: repo, q: q, nudges: nudges,
		interval: interval, batch: batch, lease: lease, logger: logger,
	}
}

// Run claims every interval, and immediately whenever a producer nudges.
// Stops cleanly when ctx is cancelled.
func (c *Claimer) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.logger.Info("claimer started", zap.Duration("interval", c.interval), zap.Int("batch", c.batch))

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("claimer stopping")
			return
		case <-ticker.C:
		case <-c.nudges:
		}
		if _, err := c.ClaimOnce(ctx); err != nil && ctx.Err() == nil {
			c.logger.Error("claim error", zap.Error(err))
		}
	}
}

// ClaimOnce leases as many due tasks as the buffer can take, in batches,
// and returns how many were handed to workers.
func (c *Claimer) ClaimOnce(ctx context.Context) (int, error) {
	total := 0
	for {
		limit := c.q.Free()
		if limit > c.batch {
			limit = c.batch
		}
		if limit <= 0 {
			return total, nil
		}

		tasks, err := c.repo.Claim(ctx, limit, c.lease)
		if err != nil {
			return total, err
		}
		for _, t := range tasks {
			if err := c.q.Enqueue(queue.Item{
				TaskID:   t.ID,
				Kind:     t.Kind,
				Priority: t.Priority,
				Attempt:  t.Attempts,
			}); err != nil {
				// The lease hands the task out again once it expires.
				c.logger.Warn("could not buffer claimed task",
					zap.String("id", t.ID), zap.Error(err))
				continue
			}
			total++
		}

		if len(tasks) > 0 {
			c.logger.Debug("claimed tasks", zap.Int("count", len(tasks)))
		}
		if len(tasks) < limit {
			return total, nil
		}
	}
}
