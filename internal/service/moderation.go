package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ricirt/venturematch/internal/domain"
	"github.com/ricirt/venturematch/internal/repository"
)

// loadEntity fetches the entity under moderation. The set of kinds is closed;
// anything else is rejected before touching the store.
func loadEntity(ctx context.Context, store repository.DomainStore, kind domain.EntityKind, id int64) (any, error) {
	var (
		entity any
		err    error
	)
	switch kind {
	case domain.EntityInvestor:
		entity, err = store.GetInvestor(ctx, id)
	case domain.EntityProject:
		entity, err = store.GetProject(ctx, id)
	case domain.EntityStartup:
		entity, err = store.GetStartup(ctx, id)
	default:
		return nil, domain.ErrInvalidEntityKind
	}
	if err != nil {
		return nil, fmt.Errorf("%s %d: %w", kind, id, err)
	}
	return entity, nil
}

// snapshot renders the entity as indented JSON for the review email.
func snapshot(entity any) (string, error) {
	b, err := json.MarshalIndent(entity, "", "  ")
	if err != nil {
		return "", domain.Permanentf("serialize entity: %v", err)
	}
	return string(b), nil
}

// submitter identifies who receives the outcome of a moderation decision.
type submitter struct {
	recipientType domain.RecipientType
	userID        int64
	email         string
	projectID     *int64
}

// resolveSubmitter maps an entity to its owner: the investor's own user for
// investors, the startup owner for startups and their projects.
func resolveSubmitter(ctx context.Context, store repository.DomainStore, kind domain.EntityKind, id int64) (*submitter, error) {
	switch kind {
	case domain.EntityInvestor:
		inv, err := store.GetInvestor(ctx, id)
		if err != nil {
			return nil, err
		}
		return &submitter{domain.RecipientInvestor, inv.UserID, inv.ContactEmail, nil}, nil

	case domain.EntityStartup:
		st, err := store.GetStartup(ctx, id)
		if err != nil {
			return nil, err
		}
		return &submitter{domain.RecipientStartup, st.OwnerID, st.ContactEmail, nil}, nil

	case domain.EntityProject:
		p, err := store.GetProject(ctx, id)
		if err != nil {
			return nil, err
		}
		st, err := store.GetStartup(ctx, p.StartupID)
		if err != nil {
			return nil, err
		}
		projectID := p.ID
		return &submitter{domain.RecipientStartup, st.OwnerID, st.ContactEmail, &projectID}, nil
	}
	return nil, domain.Permanentf("invalid entity kind %q", kind)
}

// DecisionPage is the plain-text confirmation shown after an admin clicks an
// approve or decline link.
func DecisionPage(kind domain.EntityKind, id int64, decision domain.Decision) string {
	if decision == domain.DecisionDecline {
		return fmt.Sprintf("%s profile #%d did not pass moderation approval", kind.Title(), id)
	}
	return fmt.Sprintf("%s profile #%d passed moderation approval", kind.Title(), id)
}
