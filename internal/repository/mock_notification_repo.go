package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/ricirt/venturematch/internal/domain"
)

// MockNotificationRepository is a hand-written, in-memory implementation of
// NotificationRepository used in unit tests. No mock-generation library needed.
type MockNotificationRepository struct {
	mu   sync.RWMutex
	rows map[string]*domain.Notification // keyed by dedup key

	// Optional error overrides, set in tests to simulate failure paths.
	InsertErr error
	ListErr   error
}

func NewMockNotificationRepository() *MockNotificationRepository {
	return &MockNotificationRepository{rows: make(map[string]*domain.Notification)}
}

func (m *MockNotificationRepository) Insert(_ context.Context, n *domain.Notification) (bool, error) {
	if m.InsertErr != nil {
		return false, m.InsertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.rows[n.DedupKey]; exists {
		return false, nil
	}
	clone := *n
	m.rows[n.DedupKey] = &clone
	return true, nil
}

func (m *MockNotificationRepository) ListByRecipient(_ context.Context, recipientID int64, unreadOnly bool) ([]*domain.Notification, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Notification, 0)
	for _, n := range m.rows {
		if n.RecipientID != recipientID || (unreadOnly && n.IsRead) {
			continue
		}
		clone := *n
		result = append(result, &clone)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].SendAt.Equal(result[j].SendAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].SendAt.After(result[j].SendAt)
	})
	return result, nil
}

func (m *MockNotificationRepository) MarkRead(_ context.Context, recipientID int64, ids []string) (int64, error) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, row := range m.rows {
		if row.RecipientID == recipientID && want[row.ID] && !row.IsRead {
			row.IsRead = true
			n++
		}
	}
	return n, nil
}

func (m *MockNotificationRepository) MarkAllRead(_ context.Context, recipientID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, row := range m.rows {
		if row.RecipientID == recipientID && !row.IsRead {
			row.IsRead = true
			n++
		}
	}
	return n, nil
}

// Count returns the number of stored rows. Test helper.
func (m *MockNotificationRepository) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rows)
}

// Add stores n directly, bypassing dedup. Test helper for seeding.
func (m *MockNotificationRepository) Add(n *domain.Notification) {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *n
	key := n.DedupKey
	if key == "" {
		key = n.ID
	}
	m.rows[key] = &clone
}
