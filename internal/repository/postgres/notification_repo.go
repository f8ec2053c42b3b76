package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/NordCoder/Homeroom/internal/domain/notification"

	"github.com/google/uuid"
)

var _ notification.Repo = (*NotificationRepoImpl)(nil)

type NotificationRepoImpl struct{ db *DB }

func NewNotificationRepo(db *DB) *NotificationRepoImpl { return &NotificationRepoImpl{db: db} }

const (
	qNotifInsert = `
INSERT INTO notifications (principal_id, kind, recipient, subject, sent_at)
VALUES ($1, $2, $3, $4, COALESCE($5, now()))
RETURNING id, sent_at;`

	qNotifByPrincipal = `
SELECT id, principal_id, kind, recipient, subject, sent_at
FROM notifications
WHERE principal_id = $1
ORDER BY sent_at DESC
LIMIT $2;`
)

func (r *NotificationRepoImpl) Create(ctx context.Context, n *notification.Notification) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if err := r.db.execQueryer(ctx).QueryRow(ctx, qNotifInsert,
		n.PrincipalID,
		string(n.Kind),
		n.Recipient,
		n.Subject,
		nullTime(n.SentAt),
	).Scan(&n.ID, &n.SentAt); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (r *NotificationRepoImpl) ListByPrincipal(ctx context.Context, principalID uuid.UUID, limit int) ([]*notification.Notification, error) {
	if limit <= 0 {
		limit = 50
	}

	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.execQueryer(ctx).Query(ctx, qNotifByPrincipal, principalID, limit)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	out := make([]*notification.Notification, 0, limit)
	for rows.Next() {
		var n notification.Notification
		var kind string
		if err := rows.Scan(&n.ID, &n.PrincipalID, &kind, &n.Recipient, &n.Subject, &n.SentAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.Kind = notification.Kind(kind)
		out = append(out, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
