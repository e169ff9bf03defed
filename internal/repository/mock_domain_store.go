package repository

import (
	"context"
	"sync"

	"github.com/ricirt/venturematch/internal/domain"
)

// MockDomainStore is an in-memory DomainStore seeded by tests through the
// Put* helpers.
type MockDomainStore struct {
	mu        sync.RWMutex
	projects  map[int64]*domain.Project
	investors map[int64]*domain.Investor
	startups  map[int64]*domain.Startup
	users     map[int64]*domain.User

	// GetErr, when set, is returned by every getter.
	GetErr error
}

func NewMockDomainStore() *MockDomainStore {
	return &MockDomainStore{
		projects:  make(map[int64]*domain.Project),
		investors: make(map[int64]*domain.Investor),
		startups:  make(map[int64]*domain.Startup),
		users:     make(map[int64]*domain.User),
	}
}

func (m *MockDomainStore) PutProject(p *domain.Project) {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *p
	m.projects[p.ID] = &clone
}

func (m *MockDomainStore) PutInvestor(i *domain.Investor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *i
	m.investors[i.ID] = &clone
}

func (m *MockDomainStore) PutStartup(s *domain.Startup) {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *s
	m.startups[s.ID] = &clone
}

func (m *MockDomainStore) PutUser(u *domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *u
	m.users[u.ID] = &clone
}

// DeleteProject simulates a project removed after an event was raised.
func (m *MockDomainStore) DeleteProject(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.projects, id)
}

func (m *MockDomainStore) DeleteInvestor(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.investors, id)
}

func (m *MockDomainStore) GetProject(_ context.Context, id int64) (*domain.Project, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *p
	return &clone, nil
}

func (m *MockDomainStore) GetInvestor(_ context.Context, id int64) (*domain.Investor, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, ok := m.investors[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *i
	return &clone, nil
}

func (m *MockDomainStore) GetStartup(_ context.Context, id int64) (*domain.Startup, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.startups[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *s
	return &clone, nil
}

func (m *MockDomainStore) GetUser(_ context.Context, id int64) (*domain.User, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (m *MockDomainStore) InvestorsByIndustry(_ context.Context, industryID int64) ([]*domain.Investor, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Investor
	for _, i := range m.investors {
		if i.InterestedIn(industryID) {
			clone := *i
			result = append(result, &clone)
		}
	}
	return result, nil
}

func (m *MockDomainStore) SetVerified(_ context.Context, kind domain.EntityKind, id int64, verified bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var flag *bool
	switch kind {
	case domain.EntityInvestor:
		if i, ok := m.investors[id]; ok {
			flag = &i.IsVerified
		}
	case domain.EntityProject:
		if p, ok := m.projects[id]; ok {
			flag = &p.IsVerified
		}
	case domain.EntityStartup:
		if s, ok := m.startups[id]; ok {
			flag = &s.IsVerified
		}
	default:
		return false, domain.ErrInvalidEntityKind
	}
	if flag == nil {
		return false, domain.ErrNotFound
	}
	changed := *flag != verified
	*flag = verified
	return changed, nil
}
