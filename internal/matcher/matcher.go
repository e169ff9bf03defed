// Package matcher decides which investors care about a project.
//
// An investor matches a project when it is active, verified, and lists the
// project's industry among its interests. A project with no industry matches
// nobody.
package matcher

import (
	"context"
	"fmt"

	"github.com/ricirt/venturematch/internal/domain"
)

// Matches reports whether inv should hear about p.
func Matches(p *domain.Project, inv *domain.Investor) bool {
	if p == nil || inv == nil || p.Industry == nil {
		return false
	}
	return inv.IsActive && inv.IsVerified && inv.InterestedIn(p.Industry.ID)
}

// Match filters candidates down to the investors matching p, deduplicated by
// investor id. The order of the result carries no meaning.
func Match(p *domain.Project, candidates []*domain.Investor) []*domain.Investor {
	if p == nil || p.Industry == nil {
		return nil
	}
	seen := make(map[int64]struct{}, len(candidates))
	var result []*domain.Investor
	for _, inv := range candidates {
		if !Matches(p, inv) {
			continue
		}
		if _, dup := seen[inv.ID]; dup {
			continue
		}
		seen[inv.ID] = struct{}{}
		result = append(result, inv)
	}
	return result
}

// CandidateSource loads investors listing a given industry.
type CandidateSource interface {
	InvestorsByIndustry(ctx context.Context, industryID int64) ([]*domain.Investor, error)
}

// Matcher runs Match against investors loaded from the store.
type Matcher struct {
	source CandidateSource
}

func New(source CandidateSource) *Matcher {
	return &Matcher{source: source}
}

// Match returns the investors interested in p. It never writes.
func (m *Matcher) Match(ctx context.Context, p *domain.Project) ([]*domain.Investor, error) {
	if p == nil || p.Industry == nil {
		return nil, nil
	}
	candidates, err := m.source.InvestorsByIndustry(ctx, p.Industry.ID)
	if err != nil {
		return nil, fmt.Errorf("load investors for industry %d: %w", p.Industry.ID, err)
	}
	return Match(p, candidates), nil
}
