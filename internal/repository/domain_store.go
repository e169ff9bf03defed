package repository

import (
	"context"

	"github.com/ricirt/venturematch/internal/domain"
)

// DomainStore is the narrow read surface over the CRUD service's tables,
// plus the single-row verification flag flip used by moderation.
// Every getter returns domain.ErrNotFound for a missing row.
type DomainStore interface {
	GetProject(ctx context.Context, id int64) (*domain.Project, error)
	GetInvestor(ctx context.Context, id int64) (*domain.Investor, error)
	GetStartup(ctx context.Context, id int64) (*domain.Startup, error)
	GetUser(ctx context.Context, id int64) (*domain.User, error)

	// InvestorsByIndustry returns every investor listing the industry among
	// its interests, with all interests loaded. No activity filter applied.
	InvestorsByIndustry(ctx context.Context, industryID int64) ([]*domain.Investor, error)

	// SetVerified sets is_verified on one entity and reports whether the
	// value changed.
	SetVerified(ctx context.Context, kind domain.EntityKind, id int64, verified bool) (bool, error)
}
