package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/NordCoder/Homeroom/internal/domain/notification"

	"github.com/google/uuid"
)

var _ notification.Repo = (*NotificationRepo)(nil)

type NotificationRepo struct {
	mu     sync.Mutex
	nextID int64
	items  []notification.Notification
}

func NewNotificationRepo() *NotificationRepo { return &NotificationRepo{} }

func (r *NotificationRepo) Create(_ context.Context, n *notification.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	n.ID = r.nextID
	if n.SentAt.IsZero() {
		n.SentAt = time.Now().UTC()
	}
	r.items = append(r.items, *n)
	return nil
}

func (r *NotificationRepo) ListByPrincipal(_ context.Context, principalID uuid.UUID, limit int) ([]*notification.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*notification.Notification, 0)
	for i := range r.items {
		if r.items[i].PrincipalID == principalID {
			n := r.items[i]
			out = append(out, &n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SentAt.After(out[j].SentAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
