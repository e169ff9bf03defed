package repository

import (
	"context"

	"github.com/ricirt/venturematch/internal/domain"
)

// NotificationRepository defines persistence for the append-only notification
// ledger. The pgx implementation is in pg_notification_repo.go.
// Tests use a hand-written mock (mock_notification_repo.go).
type NotificationRepository interface {
	// Insert writes n unless a row with the same DedupKey exists.
	// It reports whether a new row was written.
	Insert(ctx context.Context, n *domain.Notification) (bool, error)

	// ListByRecipient returns the recipient's rows ordered by send_at
	// descending. An unknown recipient yields an empty slice.
	ListByRecipient(ctx context.Context, recipientID int64, unreadOnly bool) ([]*domain.Notification, error)

	// MarkRead flips is_read on the given rows of one recipient.
	MarkRead(ctx context.Context, recipientID int64, ids []string) (int64, error)

	// MarkAllRead flips is_read on every unread row of one recipient.
	MarkAllRead(ctx context.Context, recipientID int64) (int64, error)
}
