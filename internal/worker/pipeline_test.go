package worker_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ricirt/venturematch/internal/config"
	"github.com/ricirt/venturematch/internal/domain"
	"github.com/ricirt/venturematch/internal/mailer"
	"github.com/ricirt/venturematch/internal/matcher"
	"github.com/ricirt/venturematch/internal/queue"
	"github.com/ricirt/venturematch/internal/ratelimiter"
	"github.com/ricirt/venturematch/internal/repository"
	"github.com/ricirt/venturematch/internal/service"
	"github.com/ricirt/venturematch/internal/worker"
)

// TestPipeline_EndToEnd raises an update event against a slow email gateway,
// checks the raise returns at once, then lets the pool deliver everything.
func TestPipeline_EndToEnd(t *testing.T) {
	cfg := &config.Config{
		Workers:        4,
		TaskTimeout:    5 * time.Second,
		LeaseDuration:  time.Minute,
		RetryBaseDelay: time.Second,
		RetryMaxDelay:  time.Minute,
	}
	logger := zap.NewNop()
	healthcare := domain.Industry{ID: 1, Name: "HealthCare"}

	store := repository.NewMockDomainStore()
	store.PutUser(&domain.User{ID: 40, FirstName: "Olga"})
	store.PutStartup(&domain.Startup{ID: 4, OwnerID: 40, ContactEmail: "hello@medco.test"})
	store.PutProject(&domain.Project{
		ID: 3, StartupID: 4, Name: "Cure", Industry: &healthcare, IsActive: true,
		Subscribers: []int64{1, 2, 3},
	})
	for id := int64(1); id <= 3; id++ {
		store.PutInvestor(&domain.Investor{ID: id, UserID: 100 + id, ContactEmail: "i@vm.test", IsActive: true})
		store.PutUser(&domain.User{ID: 100 + id, FirstName: "Ivan"})
	}

	tasks := repository.NewMockTaskRepository()
	notes := repository.NewMockNotificationRepository()
	gateway := mailer.NewRecorder()
	gateway.Delay = 300 * time.Millisecond

	q := queue.New(16)
	producer := queue.NewProducer(tasks, 5, queue.ProducerHooks{})
	ledger := service.NewLedger(notes, logger)
	dispatcher := service.NewDispatcher(store, tasks, matcher.New(store), producer, "http://vm.test", logger)
	handler := service.NewHandler(store, ledger, gateway, "admin@vm.test", logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool := worker.NewPool(cfg, q, tasks, handler, ratelimiter.New(100), logger, worker.MetricHooks{})
	pool.Start(ctx)
	claimer := worker.NewClaimer(tasks, q, producer.Nudges(), 50*time.Millisecond, 8, time.Minute, logger)
	go claimer.Run(ctx)

	start := time.Now()
	ids, err := dispatcher.ProjectUpdated(ctx, domain.Origin{EventID: "evt-1"}, 3)
	require.NoError(t, err)
	assert.Len(t, ids, 3)
	assert.Less(t, time.Since(start), gateway.Delay, "raising an event must not wait on email")

	require.Eventually(t, func() bool {
		counts, err := tasks.CountByStatus(context.Background())
		return err == nil && counts[domain.TaskSucceeded] == 3
	}, 5*time.Second, 20*time.Millisecond)

	assert.Equal(t, 3, notes.Count())
	assert.Len(t, gateway.Sent(), 3)

	cancel()
	pool.Wait()
}
