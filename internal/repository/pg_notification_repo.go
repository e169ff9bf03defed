package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ricirt/venturematch/internal/domain"
)

type pgNotificationRepository struct {
	pool *pgxpool.Pool
}

// NewPgNotificationRepository returns a NotificationRepository backed by PostgreSQL.
func NewPgNotificationRepository(pool *pgxpool.Pool) NotificationRepository {
	return &pgNotificationRepository{pool: pool}
}

func (r *pgNotificationRepository) Insert(ctx context.Context, n *domain.Notification) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO notifications
			(id, recipient_type, recipient_id, project_id, kind, text, dedup_key, send_at, is_read)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (dedup_key) DO NOTHING`,
		n.ID, n.RecipientType, n.RecipientID, n.ProjectID, n.Kind, n.Text, n.DedupKey, n.SendAt, n.IsRead,
	)
	if err != nil {
		return false, fmt.Errorf("insert notification: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *pgNotificationRepository) ListByRecipient(ctx context.Context, recipientID int64, unreadOnly bool) ([]*domain.Notification, error) {
	query := `
		SELECT id, recipient_type, recipient_id, project_id, kind, text, dedup_key, send_at, is_read
		FROM notifications
		WHERE recipient_id = $1`
	if unreadOnly {
		query += ` AND NOT is_read`
	}
	query += ` ORDER BY send_at DESC, id`

	rows, err := r.pool.Query(ctx, query, recipientID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	result := make([]*domain.Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, rows.Err()
}

func (r *pgNotificationRepository) MarkRead(ctx context.Context, recipientID int64, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE notifications SET is_read = TRUE
		WHERE recipient_id = $1 AND id = ANY($2::uuid[]) AND NOT is_read`,
		recipientID, ids)
	if err != nil {
		return 0, fmt.Errorf("mark notifications read: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *pgNotificationRepository) MarkAllRead(ctx context.Context, recipientID int64) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE notifications SET is_read = TRUE
		WHERE recipient_id = $1 AND NOT is_read`, recipientID)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanNotification(row pgx.Row) (*domain.Notification, error) {
	var n domain.Notification
	err := row.Scan(
		&n.ID, &n.RecipientType, &n.RecipientID, &n.ProjectID,
		&n.Kind, &n.Text, &n.DedupKey, &n.SendAt, &n.IsRead,
	)
	if err != nil {
		return nil, fmt.Errorf("scan notification: %w", err)
	}
	return &n, nil
}
