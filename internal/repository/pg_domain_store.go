package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ricirt/venturematch/internal/domain"
)

const investorSelect = `
	SELECT i.id, i.user_id, i.contact_email, i.investment_amount::text, i.is_active, i.is_verified,
	       COALESCE(array_agg(ind.id ORDER BY ind.id) FILTER (WHERE ind.id IS NOT NULL), '{}'),
	       COALESCE(array_agg(ind.name ORDER BY ind.id) FILTER (WHERE ind.id IS NOT NULL), '{}')
	FROM investors i
	LEFT JOIN investors_interests ii ON ii.investor_id = i.id
	LEFT JOIN industries ind ON ind.id = ii.industry_id`

type pgDomainStore struct {
	pool *pgxpool.Pool
}

// NewPgDomainStore returns a DomainStore reading the marketplace tables.
func NewPgDomainStore(pool *pgxpool.Pool) DomainStore {
	return &pgDomainStore{pool: pool}
}

func (s *pgDomainStore) GetProject(ctx context.Context, id int64) (*domain.Project, error) {
	var p domain.Project
	var industryID *int64
	var industryName *string
	err := s.pool.QueryRow(ctx, `
		SELECT p.id, p.startup_id, p.project_name, p.status, p.budget_needed::text,
		       p.budget_ready::text, p.is_active, p.is_verified, ind.id, ind.name
		FROM projects p
		LEFT JOIN industries ind ON ind.id = p.industry_id
		WHERE p.id = $1`, id).Scan(
		&p.ID, &p.StartupID, &p.Name, &p.Status, &p.BudgetNeeded,
		&p.BudgetReady, &p.IsActive, &p.IsVerified, &industryID, &industryName,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	if industryID != nil {
		p.Industry = &domain.Industry{ID: *industryID, Name: *industryName}
	}

	if p.Subscribers, err = s.investorIDs(ctx, "projects_subscribers", id); err != nil {
		return nil, err
	}
	if p.Investors, err = s.investorIDs(ctx, "projects_investors", id); err != nil {
		return nil, err
	}
	return &p, nil
}

// investorIDs reads one of the project/investor join tables. The table name
// comes from a fixed set inside this file, never from input.
func (s *pgDomainStore) investorIDs(ctx context.Context, table string, projectID int64) ([]int64, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT investor_id FROM `+table+` WHERE project_id = $1 ORDER BY investor_id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", table, err)
	}
	return ids, nil
}

func (s *pgDomainStore) GetInvestor(ctx context.Context, id int64) (*domain.Investor, error) {
	row := s.pool.QueryRow(ctx, investorSelect+` WHERE i.id = $1 GROUP BY i.id`, id)
	inv, err := scanInvestor(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get investor: %w", err)
	}
	return inv, nil
}

func (s *pgDomainStore) InvestorsByIndustry(ctx context.Context, industryID int64) ([]*domain.Investor, error) {
	rows, err := s.pool.Query(ctx, investorSelect+`
		WHERE i.id IN (SELECT investor_id FROM investors_interests WHERE industry_id = $1)
		GROUP BY i.id
		ORDER BY i.id`, industryID)
	if err != nil {
		return nil, fmt.Errorf("investors by industry: %w", err)
	}
	defer rows.Close()

	var result []*domain.Investor
	for rows.Next() {
		inv, err := scanInvestor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan investor: %w", err)
		}
		result = append(result, inv)
	}
	return result, rows.Err()
}

func (s *pgDomainStore) GetStartup(ctx context.Context, id int64) (*domain.Startup, error) {
	var st domain.Startup
	err := s.pool.QueryRow(ctx, `
		SELECT id, owner_id, startup_name, contact_email, is_verified
		FROM startups WHERE id = $1`, id).Scan(
		&st.ID, &st.OwnerID, &st.Name, &st.ContactEmail, &st.IsVerified,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get startup: %w", err)
	}
	return &st, nil
}

func (s *pgDomainStore) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	var u domain.User
	err := s.pool.QueryRow(ctx, `
		SELECT id, email, first_name, last_name FROM users WHERE id = $1`, id).Scan(
		&u.ID, &u.Email, &u.FirstName, &u.LastName,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (s *pgDomainStore) SetVerified(ctx context.Context, kind domain.EntityKind, id int64, verified bool) (bool, error) {
	var table string
	switch kind {
	case domain.EntityInvestor:
		table = "investors"
	case domain.EntityProject:
		table = "projects"
	case domain.EntityStartup:
		table = "startups"
	default:
		return false, domain.ErrInvalidEntityKind
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE `+table+` SET is_verified = $1 WHERE id = $2 AND is_verified IS DISTINCT FROM $1`,
		verified, id)
	if err != nil {
		return false, fmt.Errorf("set %s verified: %w", kind, err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM `+table+` WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check %s exists: %w", kind, err)
	}
	if !exists {
		return false, domain.ErrNotFound
	}
	return false, nil
}

func scanInvestor(row pgx.Row) (*domain.Investor, error) {
	var inv domain.Investor
	var ids []int64
	var names []string
	if err := row.Scan(
		&inv.ID, &inv.UserID, &inv.ContactEmail, &inv.InvestmentAmount,
		&inv.IsActive, &inv.IsVerified, &ids, &names,
	); err != nil {
		return nil, err
	}
	inv.Interests = make([]domain.Industry, len(ids))
	for i := range ids {
		inv.Interests[i] = domain.Industry{ID: ids[i], Name: names[i]}
	}
	return &inv, nil
}
