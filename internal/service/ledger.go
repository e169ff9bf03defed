package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ricirt/venturematch/internal/domain"
	"github.com/ricirt/venturematch/internal/repository"
)

// Ledger is the append-only notification store. Rows are written once and
// only ever flip is_read from false to true.
type Ledger struct {
	repo   repository.NotificationRepository
	logger *zap.Logger
	now    func() time.Time
}

func NewLedger(repo repository.NotificationRepository, logger *zap.Logger) *Ledger {
	return &Ledger{
		repo:   repo,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Record inserts a notification unless one with the same dedup key exists.
// created is false for a duplicate, in which case the returned value is the
// notification as it would have been written, not the stored row.
func (l *Ledger) Record(ctx context.Context, d domain.NotificationDraft) (n *domain.Notification, created bool, err error) {
	if err := d.Validate(); err != nil {
		return nil, false, err
	}

	n = &domain.Notification{
		ID:            uuid.New().String(),
		RecipientType: d.RecipientType,
		RecipientID:   d.RecipientID,
		ProjectID:     d.ProjectID,
		Kind:          d.Kind,
		Text:          d.Text,
		DedupKey:      d.DedupKey,
		SendAt:        l.now(),
	}

	created, err = l.repo.Insert(ctx, n)
	if err != nil {
		return nil, false, fmt.Errorf("record notification: %w", err)
	}
	if !created {
		l.logger.Debug("notification already recorded", zap.String("dedup_key", d.DedupKey))
	}
	return n, created, nil
}

// UnreadFor returns the recipient's unread notifications, newest first.
// An unknown recipient yields an empty slice.
func (l *Ledger) UnreadFor(ctx context.Context, recipientID int64) ([]*domain.Notification, error) {
	return l.repo.ListByRecipient(ctx, recipientID, true)
}

// AllFor returns every notification of the recipient, newest first.
func (l *Ledger) AllFor(ctx context.Context, recipientID int64) ([]*domain.Notification, error) {
	return l.repo.ListByRecipient(ctx, recipientID, false)
}

// MarkAllRead flips every unread notification of the recipient and returns
// how many changed.
func (l *Ledger) MarkAllRead(ctx context.Context, recipientID int64) (int64, error) {
	return l.repo.MarkAllRead(ctx, recipientID)
}

// TakeUnread returns the unread notifications and marks exactly those as
// read. A row recorded between the two steps stays unread for the next call.
func (l *Ledger) TakeUnread(ctx context.Context, recipientID int64) ([]*domain.Notification, error) {
	unread, err := l.repo.ListByRecipient(ctx, recipientID, true)
	if err != nil {
		return nil, err
	}
	if len(unread) == 0 {
		return unread, nil
	}

	ids := make([]string, len(unread))
	for i, n := range unread {
		ids[i] = n.ID
	}
	if _, err := l.repo.MarkRead(ctx, recipientID, ids); err != nil {
		return nil, fmt.Errorf("mark taken notifications read: %w", err)
	}
	return unread, nil
}
