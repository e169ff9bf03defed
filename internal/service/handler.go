package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ricirt/venturematch/internal/domain"
	"github.com/ricirt/venturematch/internal/mailer"
	"github.com/ricirt/venturematch/internal/matcher"
	"github.com/ricirt/venturematch/internal/repository"
)

// errGone signals that an entity the task refers to no longer exists or no
// longer qualifies. Execute turns it into a logged no-op success.
var errGone = errors.New("entity gone")

// Handler executes claimed tasks. Every handler re-reads current state,
// records the ledger row, then sends the email. The ledger write is keyed by
// the task's dedup key, so re-running a task never adds a second row.
type Handler struct {
	store      repository.DomainStore
	ledger     *Ledger
	gateway    mailer.Gateway
	adminEmail string
	logger     *zap.Logger
}

func NewHandler(
	store repository.DomainStore,
	ledger *Ledger,
	gateway mailer.Gateway,
	adminEmail string,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		store:      store,
		ledger:     ledger,
		gateway:    gateway,
		adminEmail: adminEmail,
		logger:     logger,
	}
}

// Execute runs one attempt of t. A nil return completes the task; an error
// wrapping domain.ErrPermanent dead-letters it; any other error is retried.
func (h *Handler) Execute(ctx context.Context, t *domain.Task) error {
	var err error
	switch t.Kind {
	case domain.TaskProjectCreation:
		err = h.projectCreation(ctx, t)
	case domain.TaskProjectUpdating:
		err = h.projectUpdating(ctx, t)
	case domain.TaskInvestorSubscription:
		err = h.investorSubscription(ctx, t)
	case domain.TaskModerationRequest:
		err = h.moderationRequest(ctx, t)
	case domain.TaskModerationApproved:
		err = h.moderationDecision(ctx, t, true)
	case domain.TaskModerationDeclined:
		err = h.moderationDecision(ctx, t, false)
	default:
		return domain.Permanentf("no handler for task kind %q", t.Kind)
	}

	if errors.Is(err, errGone) {
		h.logger.Warn("task target no longer applies; completing without notification",
			zap.String("task_id", t.ID),
			zap.String("task_kind", string(t.Kind)),
			zap.String("reason", err.Error()),
		)
		return nil
	}
	return err
}

func (h *Handler) projectCreation(ctx context.Context, t *domain.Task) error {
	project, inv, err := h.projectAndInvestor(ctx, t.Payload)
	if err != nil {
		return err
	}
	if !matcher.Matches(project, inv) {
		return fmt.Errorf("investor %d no longer matches project %d: %w", inv.ID, project.ID, errGone)
	}
	return h.notifyInvestor(ctx, t, project, inv, domain.KindProjectCreation, mailer.TemplateProjectCreation,
		fmt.Sprintf("New project %s matching your interests has been created", project.Name))
}

func (h *Handler) projectUpdating(ctx context.Context, t *domain.Task) error {
	project, inv, err := h.projectAndInvestor(ctx, t.Payload)
	if err != nil {
		return err
	}
	// The investor must still belong to the audience it was picked from, or
	// have moved into the other one since.
	if !project.HasSubscriber(inv.ID) && !matcher.Matches(project, inv) {
		return fmt.Errorf("investor %d left the %s audience of project %d: %w",
			inv.ID, t.Payload.Audience, project.ID, errGone)
	}
	return h.notifyInvestor(ctx, t, project, inv, domain.KindProjectUpdating, mailer.TemplateProjectUpdating,
		fmt.Sprintf("Project %s has been updated", project.Name))
}

func (h *Handler) investorSubscription(ctx context.Context, t *domain.Task) error {
	project, inv, err := h.projectAndInvestor(ctx, t.Payload)
	if err != nil {
		return err
	}
	if !project.HasSubscriber(inv.ID) {
		return fmt.Errorf("investor %d unsubscribed from project %d: %w", inv.ID, project.ID, errGone)
	}
	startup, err := found(h.store.GetStartup(ctx, project.StartupID))
	if err != nil {
		return err
	}
	owner, err := found(h.store.GetUser(ctx, startup.OwnerID))
	if err != nil {
		return err
	}
	investorUser, err := found(h.store.GetUser(ctx, inv.UserID))
	if err != nil {
		return err
	}

	projectID := project.ID
	if _, _, err := h.ledger.Record(ctx, domain.NotificationDraft{
		RecipientType: domain.RecipientStartup,
		RecipientID:   owner.ID,
		ProjectID:     &projectID,
		Kind:          domain.KindInvestorSubscription,
		Text: fmt.Sprintf("Investor %s %s subscribed to Project with id %d",
			investorUser.FirstName, investorUser.LastName, project.ID),
		DedupKey: t.DedupKey,
	}); err != nil {
		return err
	}

	return h.send(ctx, mailer.TemplateInvestorSubscription, startup.ContactEmail, mailer.Data{
		FirstName:    owner.FirstName,
		ProjectID:    project.ID,
		ProjectName:  project.Name,
		ProjectURL:   projectURL(t.Payload.BaseURL, project.ID),
		InvestorName: investorUser.FullName(),
	})
}

func (h *Handler) moderationRequest(ctx context.Context, t *domain.Task) error {
	p := t.Payload
	entity, err := loadEntity(ctx, h.store, p.EntityKind, p.EntityID)
	if err != nil {
		return classify(err)
	}
	snap, err := snapshot(entity)
	if err != nil {
		return err
	}
	return h.send(ctx, mailer.TemplateModerationRequest, h.adminEmail, mailer.Data{
		EntityTitle: p.EntityKind.Title(),
		EntityID:    p.EntityID,
		Snapshot:    snap,
		ApproveURL:  moderationURL(p.BaseURL, domain.DecisionApprove, p.EntityKind, p.EntityID, t.ID),
		DeclineURL:  moderationURL(p.BaseURL, domain.DecisionDecline, p.EntityKind, p.EntityID, t.ID),
	})
}

func (h *Handler) moderationDecision(ctx context.Context, t *domain.Task, approved bool) error {
	p := t.Payload
	if !p.EntityKind.IsValid() {
		return domain.Permanentf("invalid entity kind %q", p.EntityKind)
	}
	if _, err := h.store.SetVerified(ctx, p.EntityKind, p.EntityID, approved); err != nil {
		return classify(fmt.Errorf("set %s %d verified: %w", p.EntityKind, p.EntityID, err))
	}

	sub, err := resolveSubmitter(ctx, h.store, p.EntityKind, p.EntityID)
	if err != nil {
		return classify(err)
	}
	user, err := found(h.store.GetUser(ctx, sub.userID))
	if err != nil {
		return err
	}

	decision := domain.DecisionApprove
	kind, tmpl := domain.KindModerationApproved, mailer.TemplateModerationApproved
	if !approved {
		decision = domain.DecisionDecline
		kind, tmpl = domain.KindModerationDeclined, mailer.TemplateModerationDeclined
	}

	if _, _, err := h.ledger.Record(ctx, domain.NotificationDraft{
		RecipientType: sub.recipientType,
		RecipientID:   sub.userID,
		ProjectID:     sub.projectID,
		Kind:          kind,
		Text:          DecisionPage(p.EntityKind, p.EntityID, decision),
		DedupKey:      t.DedupKey,
	}); err != nil {
		return err
	}

	return h.send(ctx, tmpl, sub.email, mailer.Data{
		FirstName:   user.FirstName,
		EntityTitle: p.EntityKind.Title(),
		EntityID:    p.EntityID,
	})
}

// ---- private helpers ----

func (h *Handler) projectAndInvestor(ctx context.Context, p domain.TaskPayload) (*domain.Project, *domain.Investor, error) {
	project, err := found(h.store.GetProject(ctx, p.ProjectID))
	if err != nil {
		return nil, nil, err
	}
	if !project.IsActive {
		return nil, nil, fmt.Errorf("project %d is inactive: %w", project.ID, errGone)
	}
	inv, err := found(h.store.GetInvestor(ctx, p.InvestorID))
	if err != nil {
		return nil, nil, err
	}
	return project, inv, nil
}

func (h *Handler) notifyInvestor(
	ctx context.Context,
	t *domain.Task,
	project *domain.Project,
	inv *domain.Investor,
	kind domain.Kind,
	tmpl string,
	text string,
) error {
	user, err := found(h.store.GetUser(ctx, inv.UserID))
	if err != nil {
		return err
	}

	projectID := project.ID
	if _, _, err := h.ledger.Record(ctx, domain.NotificationDraft{
		RecipientType: domain.RecipientInvestor,
		RecipientID:   user.ID,
		ProjectID:     &projectID,
		Kind:          kind,
		Text:          text,
		DedupKey:      t.DedupKey,
	}); err != nil {
		return err
	}

	return h.send(ctx, tmpl, inv.ContactEmail, mailer.Data{
		FirstName:   user.FirstName,
		ProjectID:   project.ID,
		ProjectName: project.Name,
		ProjectURL:  projectURL(t.Payload.BaseURL, project.ID),
	})
}

func (h *Handler) send(ctx context.Context, tmpl, to string, data mailer.Data) error {
	msg, err := mailer.Compose(tmpl, to, data)
	if err != nil {
		return domain.Permanentf("compose email: %v", err)
	}
	if err := h.gateway.Send(ctx, msg); err != nil {
		return fmt.Errorf("send %s email: %w", tmpl, err)
	}
	return nil
}

// found wraps a store lookup, mapping ErrNotFound to errGone.
func found[T any](v T, err error) (T, error) {
	return v, classify(err)
}

func classify(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%v: %w", err, errGone)
	}
	return err
}

func projectURL(baseURL string, projectID int64) string {
	return fmt.Sprintf("%s/api/projects/%d", baseURL, projectID)
}

func moderationURL(baseURL string, d domain.Decision, kind domain.EntityKind, id int64, ticket string) string {
	return fmt.Sprintf("%s/moderation/%s/%s/%d?ticket=%s", baseURL, d, kind, id, ticket)
}
