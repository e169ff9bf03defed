package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ricirt/venturematch/internal/config"
	"github.com/ricirt/venturematch/internal/domain"
	"github.com/ricirt/venturematch/internal/queue"
	"github.com/ricirt/venturematch/internal/ratelimiter"
	"github.com/ricirt/venturematch/internal/repository"
)

// MetricHooks carries the metric callback functions injected by main.
// Using a struct keeps the pool constructor signature clean.
type MetricHooks struct {
	OnSucceeded    func(kind domain.TaskKind, latency time.Duration)
	OnRetried      func(kind domain.TaskKind)
	OnDeadLettered func(kind domain.TaskKind)
}

func (h MetricHooks) withDefaults() MetricHooks {
	if h.OnSucceeded == nil {
		h.OnSucceeded = func(domain.TaskKind, time.Duration) {}
	}
	if h.OnRetried == nil {
		h.OnRetried = func(domain.TaskKind) {}
	}
	if h.OnDeadLettered == nil {
		h.OnDeadLettered = func(domain.TaskKind) {}
	}
	return h
}

// Pool manages the lifecycle of all workers.
// All workers share the same dispatch buffer; the buffer's double-select
// pattern handles priority ordering internally.
type Pool struct {
	workers []*Worker
	wg      sync.WaitGroup
}

// NewPool creates cfg.Workers identical workers.
func NewPool(
	cfg *config.Config,
	q *queue.PriorityQueue,
	repo repository.TaskRepository,
	exec Executor,
	limiter *ratelimiter.KindLimiters,
	logger *zap.Logger,
	hooks MetricHooks,
) *Pool {
	retry := RetryPolicy{BaseDelay: cfg.RetryBaseDelay, MaxDelay: cfg.RetryMaxDelay}
	workers := make([]*Worker, cfg.Workers)
	for i := range workers {
		workers[i] = NewWorker(
			i, q, repo, exec, limiter, retry, cfg.TaskTimeout, cfg.LeaseDuration,
			logger.With(zap.Int("worker_id", i)),
			hooks,
		)
	}
	return &Pool{workers: workers}
}

// Start launches all workers as goroutines.
// The provided ctx is forwarded to every worker; cancelling it
// triggers a graceful shutdown of the entire pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *Worker) {
			defer p.wg.Done()
			w.Run(ctx)
		}(w)
	}
}

// Wait blocks until every worker has returned after ctx is cancelled.
// Call this after cancelling the context to let in-flight tasks finish.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}
