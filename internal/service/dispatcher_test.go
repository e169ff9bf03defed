package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ricirt/venturematch/internal/config"
	"github.com/ricirt/venturematch/internal/domain"
	"github.com/ricirt/venturematch/internal/queue"
	"github.com/ricirt/venturematch/internal/ratelimiter"
	"github.com/ricirt/venturematch/internal/service"
	"github.com/ricirt/venturematch/internal/worker"
)

var origin = domain.Origin{EventID: "evt-1", BaseURL: "https://vm.example.com/"}

func TestDispatcher_ProjectUpdated_SubscriberFanOut(t *testing.T) {
	f := newFixture(t)
	// Finance investors never match the healthcare project.
	f.addInvestor(1, true, true, finance)
	f.addInvestor(2, true, true, finance)
	f.addInvestor(3, true, true, finance)
	f.setSubscribers(1, 2, 3)

	ids, err := f.dispatcher.ProjectUpdated(ctxBG, origin, projectID)
	require.NoError(t, err)
	require.Len(t, ids, 3)

	targets := map[int64]bool{}
	for _, task := range f.tasks.All() {
		assert.Equal(t, domain.TaskProjectUpdating, task.Kind)
		assert.Equal(t, domain.AudienceSubscriber, task.Payload.Audience)
		assert.Equal(t, "https://vm.example.com", task.Payload.BaseURL)
		targets[task.Payload.InvestorID] = true
	}
	assert.Equal(t, map[int64]bool{1: true, 2: true, 3: true}, targets)
}

func TestDispatcher_ProjectUpdated_MergesAudiences(t *testing.T) {
	f := newFixture(t)
	f.addInvestor(1, true, true, healthcare) // subscriber and match
	f.addInvestor(2, true, true, healthcare) // match only
	f.addInvestor(3, false, true, healthcare)
	f.setSubscribers(1)

	ids, err := f.dispatcher.ProjectUpdated(ctxBG, origin, projectID)
	require.NoError(t, err)
	require.Len(t, ids, 2)

	audiences := map[int64]domain.Audience{}
	for _, task := range f.tasks.All() {
		audiences[task.Payload.InvestorID] = task.Payload.Audience
	}
	assert.Equal(t, map[int64]domain.Audience{
		1: domain.AudienceSubscriber,
		2: domain.AudienceInterest,
	}, audiences)
}

func TestDispatcher_ProjectUpdated_SameEventTwice(t *testing.T) {
	f := newFixture(t)
	f.addInvestor(1, true, true, healthcare)

	first, err := f.dispatcher.ProjectUpdated(ctxBG, origin, projectID)
	require.NoError(t, err)
	second, err := f.dispatcher.ProjectUpdated(ctxBG, origin, projectID)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, f.tasks.All(), 1)
}

func TestDispatcher_ProjectCreated_MatchesInterests(t *testing.T) {
	f := newFixture(t)
	f.addInvestor(1, true, true, healthcare)
	f.addInvestor(2, true, true, finance)
	f.addInvestor(3, false, true, healthcare)
	f.addInvestor(4, true, false, healthcare)

	ids, err := f.dispatcher.ProjectCreated(ctxBG, origin, projectID)
	require.NoError(t, err)
	require.Len(t, ids, 1)

	task := f.tasks.All()[0]
	assert.Equal(t, domain.TaskProjectCreation, task.Kind)
	assert.Equal(t, int64(1), task.Payload.InvestorID)
	assert.Equal(t, domain.PriorityLow, task.Priority)
}

func TestDispatcher_ProjectCreated_NoMatchesIsNotAnError(t *testing.T) {
	f := newFixture(t)
	f.addInvestor(1, true, true, finance)

	ids, err := f.dispatcher.ProjectCreated(ctxBG, origin, projectID)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestDispatcher_RaiseValidation(t *testing.T) {
	f := newFixture(t)
	f.store.PutProject(&domain.Project{ID: 8, StartupID: startupID, Name: "NoIndustry", IsActive: true})
	f.store.PutProject(&domain.Project{ID: 9, StartupID: startupID, Name: "Closed", Industry: &healthcare})

	tests := []struct {
		name      string
		projectID int64
		want      error
	}{
		{"non-positive id", 0, domain.ErrInvalidID},
		{"missing project", 99, domain.ErrNotFound},
		{"industry unresolved", 8, domain.ErrIndustryUnresolved},
		{"inactive project", 9, domain.ErrProjectInactive},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.dispatcher.ProjectUpdated(ctxBG, origin, tc.projectID)
			assert.ErrorIs(t, err, tc.want)
			_, err = f.dispatcher.ProjectCreated(ctxBG, origin, tc.projectID)
			assert.ErrorIs(t, err, tc.want)
		})
	}
	assert.Empty(t, f.tasks.All())
}

func TestDispatcher_ProjectSubscribed_TargetsOwner(t *testing.T) {
	f := newFixture(t)
	f.addInvestor(7, true, true, healthcare)
	f.setSubscribers(7)

	id, err := f.dispatcher.ProjectSubscribed(ctxBG, origin, projectID, 7)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	all := f.tasks.All()
	require.Len(t, all, 1)
	task := all[0]
	assert.Equal(t, domain.TaskInvestorSubscription, task.Kind)
	assert.Equal(t, domain.RecipientStartup, task.Payload.RecipientType)
	assert.Equal(t, int64(ownerUserID), task.Payload.RecipientID)
	assert.NotEqual(t, int64(7), task.Payload.RecipientID)
	assert.Equal(t, int64(7), task.Payload.InvestorID)
}

func TestDispatcher_ProjectSubscribed_UnknownInvestor(t *testing.T) {
	f := newFixture(t)
	_, err := f.dispatcher.ProjectSubscribed(ctxBG, origin, projectID, 55)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// TestDispatcher_DoesNotWaitForDelivery runs a worker pool against a stalled
// email gateway and raises a second event while the first send is in flight.
func TestDispatcher_DoesNotWaitForDelivery(t *testing.T) {
	f := newFixture(t)
	f.mail.Delay = time.Second
	f.addInvestor(1, true, true, healthcare)

	ctx, cancel := context.WithCancel(ctxBG)
	defer cancel()
	cfg := &config.Config{
		Workers:        2,
		TaskTimeout:    5 * time.Second,
		LeaseDuration:  time.Minute,
		RetryBaseDelay: time.Second,
		RetryMaxDelay:  time.Minute,
	}
	q := queue.New(16)
	pool := worker.NewPool(cfg, q, f.tasks, f.handler, ratelimiter.New(100), zap.NewNop(), worker.MetricHooks{})
	pool.Start(ctx)
	go worker.NewClaimer(f.tasks, q, nil, 10*time.Millisecond, 8, time.Minute, zap.NewNop()).Run(ctx)

	_, err := f.dispatcher.ProjectCreated(ctxBG, origin, projectID)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		all := f.tasks.All()
		return len(all) == 1 && all[0].Runs == 1
	}, 2*time.Second, 5*time.Millisecond, "first task never started")

	start := time.Now()
	ids, err := f.dispatcher.ProjectUpdated(ctxBG, origin, projectID)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Len(t, ids, 1)
	assert.Less(t, elapsed, f.mail.Delay/2)
	assert.Zero(t, f.mail.Calls(), "first send should still be in flight")

	require.Eventually(t, func() bool {
		counts, err := f.tasks.CountByStatus(ctxBG)
		return err == nil && counts[domain.TaskSucceeded] == 2
	}, 5*time.Second, 20*time.Millisecond)
	assert.Len(t, f.mail.Sent(), 2)

	cancel()
	pool.Wait()
}

func TestDispatcher_EmptyOriginGetsDefaults(t *testing.T) {
	f := newFixture(t)
	f.addInvestor(1, true, true, healthcare)

	_, err := f.dispatcher.ProjectCreated(ctxBG, domain.Origin{}, projectID)
	require.NoError(t, err)

	task := f.tasks.All()[0]
	assert.Equal(t, "http://default.test", task.Payload.BaseURL)
	assert.NotEmpty(t, task.Payload.EventID)
}

func TestDispatcher_ModerationSubmitted(t *testing.T) {
	f := newFixture(t)

	ticket, err := f.dispatcher.ModerationSubmitted(ctxBG, origin, domain.EntityStartup, startupID)
	require.NoError(t, err)

	task := f.tasks.All()[0]
	assert.Equal(t, ticket, task.ID)
	assert.Equal(t, domain.TaskModerationRequest, task.Kind)
	assert.Equal(t, domain.PriorityHigh, task.Priority)

	_, err = f.dispatcher.ModerationSubmitted(ctxBG, origin, domain.EntityKind("user"), 1)
	assert.ErrorIs(t, err, domain.ErrInvalidEntityKind)
	_, err = f.dispatcher.ModerationSubmitted(ctxBG, origin, domain.EntityInvestor, 404)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDispatcher_ModerationDecided_FirstDecisionWins(t *testing.T) {
	f := newFixture(t)
	ticket, err := f.dispatcher.ModerationSubmitted(ctxBG, origin, domain.EntityStartup, startupID)
	require.NoError(t, err)

	first, err := f.dispatcher.ModerationDecided(ctxBG, origin, domain.DecisionApprove, domain.EntityStartup, startupID, ticket)
	require.NoError(t, err)
	assert.False(t, first.AlreadyRecorded)
	assert.Equal(t, domain.DecisionApprove, first.Decision)

	again, err := f.dispatcher.ModerationDecided(ctxBG, origin, domain.DecisionDecline, domain.EntityStartup, startupID, ticket)
	require.NoError(t, err)
	assert.True(t, again.AlreadyRecorded)
	assert.Equal(t, domain.DecisionApprove, again.Decision)
	assert.Equal(t, first.TaskID, again.TaskID)

	// request + one decision
	assert.Len(t, f.tasks.All(), 2)
}

func TestDispatcher_ModerationDecided_RejectsBadTickets(t *testing.T) {
	f := newFixture(t)
	f.addInvestor(1, true, false, healthcare)
	ticket, err := f.dispatcher.ModerationSubmitted(ctxBG, origin, domain.EntityStartup, startupID)
	require.NoError(t, err)

	tests := []struct {
		name   string
		kind   domain.EntityKind
		id     int64
		ticket string
		want   error
	}{
		{"empty ticket", domain.EntityStartup, startupID, "", domain.ErrInvalidTicket},
		{"not a uuid", domain.EntityStartup, startupID, "abc", domain.ErrInvalidTicket},
		{"unknown ticket", domain.EntityStartup, startupID, "6f1c2a52-4b8e-4bd5-9a51-4c7e0b1b2f10", domain.ErrInvalidTicket},
		{"ticket for another entity", domain.EntityInvestor, 1, ticket, domain.ErrInvalidTicket},
		{"bad kind", domain.EntityKind("user"), startupID, ticket, domain.ErrInvalidEntityKind},
		{"bad id", domain.EntityStartup, 0, ticket, domain.ErrInvalidID},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.dispatcher.ModerationDecided(ctxBG, origin, domain.DecisionApprove, tc.kind, tc.id, tc.ticket)
			assert.True(t, errors.Is(err, tc.want), "expected %v, got %v", tc.want, err)
		})
	}
}

func TestDecisionPage(t *testing.T) {
	assert.Equal(t, "Startup profile #4 passed moderation approval",
		service.DecisionPage(domain.EntityStartup, 4, domain.DecisionApprove))
	assert.Equal(t, "Investor profile #9 did not pass moderation approval",
		service.DecisionPage(domain.EntityInvestor, 9, domain.DecisionDecline))
}
