package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ricirt/venturematch/internal/domain"
	"github.com/ricirt/venturematch/internal/matcher"
	"github.com/ricirt/venturematch/internal/queue"
	"github.com/ricirt/venturematch/internal/repository"
)

// Dispatcher turns domain events into queued tasks. It validates the event
// synchronously, computes the audience, and enqueues one task per recipient.
// It never waits on delivery.
type Dispatcher struct {
	store          repository.DomainStore
	tasks          repository.TaskRepository
	matcher        *matcher.Matcher
	producer       *queue.Producer
	defaultBaseURL string
	logger         *zap.Logger
}

func NewDispatcher(
	store repository.DomainStore,
	tasks repository.TaskRepository,
	m *matcher.Matcher,
	producer *queue.Producer,
	defaultBaseURL string,
	logger *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		store:          store,
		tasks:          tasks,
		matcher:        m,
		producer:       producer,
		defaultBaseURL: strings.TrimRight(defaultBaseURL, "/"),
		logger:         logger,
	}
}

// ProjectCreated enqueues a project_creation task for every investor whose
// interests match the new project.
func (d *Dispatcher) ProjectCreated(ctx context.Context, origin domain.Origin, projectID int64) ([]string, error) {
	origin = d.normalize(origin)
	project, err := d.activeProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.Industry == nil {
		return nil, domain.ErrIndustryUnresolved
	}

	matched, err := d.matcher.Match(ctx, project)
	if err != nil {
		return nil, err
	}

	tasks := make([]*domain.Task, 0, len(matched))
	for _, inv := range matched {
		tasks = append(tasks, investorTask(domain.TaskProjectCreation, inv.ID, project.ID, domain.AudienceInterest, origin))
	}
	return d.enqueue(ctx, "project_created", tasks)
}

// ProjectUpdated notifies the project's subscribers and every investor whose
// interests match. An investor in both groups gets a single task, tagged as
// a subscriber.
func (d *Dispatcher) ProjectUpdated(ctx context.Context, origin domain.Origin, projectID int64) ([]string, error) {
	origin = d.normalize(origin)
	project, err := d.activeProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.Industry == nil {
		return nil, domain.ErrIndustryUnresolved
	}

	matched, err := d.matcher.Match(ctx, project)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]struct{}, len(project.Subscribers)+len(matched))
	tasks := make([]*domain.Task, 0, len(project.Subscribers)+len(matched))
	for _, investorID := range project.Subscribers {
		if _, dup := seen[investorID]; dup {
			continue
		}
		seen[investorID] = struct{}{}
		tasks = append(tasks, investorTask(domain.TaskProjectUpdating, investorID, project.ID, domain.AudienceSubscriber, origin))
	}
	for _, inv := range matched {
		if _, dup := seen[inv.ID]; dup {
			continue
		}
		seen[inv.ID] = struct{}{}
		tasks = append(tasks, investorTask(domain.TaskProjectUpdating, inv.ID, project.ID, domain.AudienceInterest, origin))
	}
	return d.enqueue(ctx, "project_updated", tasks)
}

// ProjectSubscribed enqueues one investor_subscription task addressed to the
// owner of the project's startup. The subscribing investor is only the
// subject of the notice.
func (d *Dispatcher) ProjectSubscribed(ctx context.Context, origin domain.Origin, projectID, subscriberID int64) (string, error) {
	origin = d.normalize(origin)
	if subscriberID <= 0 {
		return "", domain.ErrInvalidID
	}
	project, err := d.activeProject(ctx, projectID)
	if err != nil {
		return "", err
	}
	if _, err := d.store.GetInvestor(ctx, subscriberID); err != nil {
		return "", fmt.Errorf("subscriber %d: %w", subscriberID, err)
	}
	startup, err := d.store.GetStartup(ctx, project.StartupID)
	if err != nil {
		return "", fmt.Errorf("startup of project %d: %w", project.ID, err)
	}

	t := &domain.Task{
		Kind:     domain.TaskInvestorSubscription,
		DedupKey: domain.SubscriptionKey(startup.OwnerID, project.ID, subscriberID, origin.EventID),
		Payload: domain.TaskPayload{
			InvestorID:    subscriberID,
			ProjectID:     project.ID,
			RecipientType: domain.RecipientStartup,
			RecipientID:   startup.OwnerID,
			BaseURL:       origin.BaseURL,
			EventID:       origin.EventID,
		},
	}
	ids, err := d.enqueue(ctx, "project_subscribed", []*domain.Task{t})
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

// ModerationSubmitted enqueues the admin review email for an entity. The
// returned task id doubles as the ticket embedded in the action links.
func (d *Dispatcher) ModerationSubmitted(ctx context.Context, origin domain.Origin, kind domain.EntityKind, entityID int64) (string, error) {
	origin = d.normalize(origin)
	if !kind.IsValid() {
		return "", domain.ErrInvalidEntityKind
	}
	if entityID <= 0 {
		return "", domain.ErrInvalidID
	}
	if _, err := loadEntity(ctx, d.store, kind, entityID); err != nil {
		return "", err
	}

	t := &domain.Task{
		Kind:     domain.TaskModerationRequest,
		DedupKey: domain.ModerationRequestKey(kind, entityID, origin.EventID),
		Payload: domain.TaskPayload{
			EntityKind: kind,
			EntityID:   entityID,
			BaseURL:    origin.BaseURL,
			EventID:    origin.EventID,
		},
	}
	ids, err := d.enqueue(ctx, "moderation_submitted", []*domain.Task{t})
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

// DecisionReceipt describes the outcome of an approve/decline click.
type DecisionReceipt struct {
	TaskID string
	// Decision is the decision in effect for the ticket. It differs from the
	// requested one when an earlier click already decided the ticket.
	Decision domain.Decision
	// AlreadyRecorded is true for every click after the first.
	AlreadyRecorded bool
}

// ModerationDecided validates a moderation link and enqueues the follow-up
// task that applies the decision. Only the first decision per ticket counts.
func (d *Dispatcher) ModerationDecided(
	ctx context.Context,
	origin domain.Origin,
	decision domain.Decision,
	kind domain.EntityKind,
	entityID int64,
	ticket string,
) (*DecisionReceipt, error) {
	origin = d.normalize(origin)
	if !decision.IsValid() {
		return nil, domain.ErrInvalidDecision
	}
	if !kind.IsValid() {
		return nil, domain.ErrInvalidEntityKind
	}
	if entityID <= 0 {
		return nil, domain.ErrInvalidID
	}
	if err := d.checkTicket(ctx, ticket, kind, entityID); err != nil {
		return nil, err
	}
	if _, err := loadEntity(ctx, d.store, kind, entityID); err != nil {
		return nil, err
	}

	taskKind := domain.TaskModerationApproved
	if decision == domain.DecisionDecline {
		taskKind = domain.TaskModerationDeclined
	}
	t := &domain.Task{
		Kind:     taskKind,
		DedupKey: domain.ModerationDecisionKey(ticket),
		Payload: domain.TaskPayload{
			EntityKind: kind,
			EntityID:   entityID,
			Ticket:     ticket,
			BaseURL:    origin.BaseURL,
			EventID:    origin.EventID,
		},
	}
	id, created, err := d.producer.EnqueueUnique(ctx, t)
	if err != nil {
		return nil, err
	}
	receipt := &DecisionReceipt{TaskID: id, Decision: decision, AlreadyRecorded: !created}
	if !created {
		existing, err := d.tasks.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load recorded decision: %w", err)
		}
		receipt.Decision = decisionOf(existing.Kind)
	}

	d.logger.Info("moderation decision",
		zap.String("entity_kind", string(kind)),
		zap.Int64("entity_id", entityID),
		zap.String("decision", string(receipt.Decision)),
		zap.Bool("already_recorded", receipt.AlreadyRecorded),
		zap.String("task_id", id),
	)
	return receipt, nil
}

// checkTicket accepts a ticket only if it is the id of a moderation_request
// task raised for exactly this entity.
func (d *Dispatcher) checkTicket(ctx context.Context, ticket string, kind domain.EntityKind, entityID int64) error {
	if _, err := uuid.Parse(ticket); err != nil {
		return domain.ErrInvalidTicket
	}
	req, err := d.tasks.GetByID(ctx, ticket)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrInvalidTicket
	}
	if err != nil {
		return fmt.Errorf("load moderation ticket: %w", err)
	}
	if req.Kind != domain.TaskModerationRequest || req.PayloadErr != nil ||
		req.Payload.EntityKind != kind || req.Payload.EntityID != entityID {
		return domain.ErrInvalidTicket
	}
	return nil
}

func decisionOf(kind domain.TaskKind) domain.Decision {
	if kind == domain.TaskModerationDeclined {
		return domain.DecisionDecline
	}
	return domain.DecisionApprove
}

func (d *Dispatcher) activeProject(ctx context.Context, projectID int64) (*domain.Project, error) {
	if projectID <= 0 {
		return nil, domain.ErrInvalidID
	}
	project, err := d.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("project %d: %w", projectID, err)
	}
	if !project.IsActive {
		return nil, domain.ErrProjectInactive
	}
	return project, nil
}

func (d *Dispatcher) enqueue(ctx context.Context, event string, tasks []*domain.Task) ([]string, error) {
	ids, err := d.producer.Enqueue(ctx, tasks...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", event, err)
	}
	d.logger.Info("event dispatched",
		zap.String("event", event),
		zap.Int("tasks", len(ids)),
	)
	return ids, nil
}

// normalize fills in a missing event id and base URL. An event raised
// without an id cannot be deduplicated against a re-raise of itself.
func (d *Dispatcher) normalize(o domain.Origin) domain.Origin {
	if o.EventID == "" {
		o.EventID = uuid.New().String()
	}
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	if o.BaseURL == "" {
		o.BaseURL = d.defaultBaseURL
	}
	return o
}

func investorTask(kind domain.TaskKind, investorID, projectID int64, audience domain.Audience, origin domain.Origin) *domain.Task {
	return &domain.Task{
		Kind:     kind,
		DedupKey: domain.NotificationKey(kind, domain.RecipientInvestor, investorID, projectID, origin.EventID),
		Payload: domain.TaskPayload{
			InvestorID:    investorID,
			ProjectID:     projectID,
			RecipientType: domain.RecipientInvestor,
			Audience:      audience,
			BaseURL:       origin.BaseURL,
			EventID:       origin.EventID,
		},
	}
}
