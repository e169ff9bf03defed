package service_test

import (
	"context"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/ricirt/venturematch/internal/domain"
	"github.com/ricirt/venturematch/internal/mailer"
	"github.com/ricirt/venturematch/internal/matcher"
	"github.com/ricirt/venturematch/internal/queue"
	"github.com/ricirt/venturematch/internal/repository"
	"github.com/ricirt/venturematch/internal/service"
)

var (
	healthcare = domain.Industry{ID: 1, Name: "HealthCare"}
	finance    = domain.Industry{ID: 2, Name: "Finance"}
)

var ctxBG = context.Background()

const (
	ownerUserID = 40
	startupID   = 4
	projectID   = 3
)

type fixture struct {
	store      *repository.MockDomainStore
	tasks      *repository.MockTaskRepository
	notes      *repository.MockNotificationRepository
	mail       *mailer.Recorder
	ledger     *service.Ledger
	dispatcher *service.Dispatcher
	handler    *service.Handler
}

// newFixture seeds one startup owning one active healthcare project.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: repository.NewMockDomainStore(),
		tasks: repository.NewMockTaskRepository(),
		notes: repository.NewMockNotificationRepository(),
		mail:  mailer.NewRecorder(),
	}
	logger := zap.NewNop()
	f.ledger = service.NewLedger(f.notes, logger)
	producer := queue.NewProducer(f.tasks, 5, queue.ProducerHooks{})
	f.dispatcher = service.NewDispatcher(f.store, f.tasks, matcher.New(f.store), producer, "http://default.test", logger)
	f.handler = service.NewHandler(f.store, f.ledger, f.mail, "admin@vm.test", logger)

	f.store.PutUser(&domain.User{ID: ownerUserID, Email: "owner@vm.test", FirstName: "Olga", LastName: "Owner"})
	f.store.PutStartup(&domain.Startup{ID: startupID, OwnerID: ownerUserID, Name: "MedCo", ContactEmail: "hello@medco.test"})
	f.store.PutProject(&domain.Project{
		ID: projectID, StartupID: startupID, Name: "Cure", Industry: &healthcare,
		Status: "open", BudgetNeeded: "1000.00", IsActive: true,
	})
	return f
}

// addInvestor seeds an investor with user id = id + 100.
func (f *fixture) addInvestor(id int64, active, verified bool, interests ...domain.Industry) *domain.Investor {
	inv := &domain.Investor{
		ID: id, UserID: id + 100, ContactEmail: fmt.Sprintf("inv%d@vm.test", id),
		Interests: interests, IsActive: active, IsVerified: verified,
	}
	f.store.PutInvestor(inv)
	f.store.PutUser(&domain.User{ID: inv.UserID, Email: inv.ContactEmail, FirstName: "Ivan", LastName: "Investor"})
	return inv
}

func (f *fixture) setSubscribers(ids ...int64) {
	p, _ := f.store.GetProject(ctxBG, projectID)
	p.Subscribers = ids
	f.store.PutProject(p)
}

// runAll executes every stored task once, the way a worker would.
func (f *fixture) runAll(t *testing.T) {
	t.Helper()
	for _, task := range f.tasks.All() {
		if err := f.handler.Execute(ctxBG, task); err != nil {
			t.Fatalf("execute %s (%s): %v", task.ID, task.Kind, err)
		}
	}
}
