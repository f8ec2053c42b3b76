package notification

import (
	"context"

	"github.com/google/uuid"
)

type Repo interface {
	Create(ctx context.Context, n *Notification) error
	ListByPrincipal(ctx context.Context, principalID uuid.UUID, limit int) ([]*Notification, error)
}

// MailQueue accepts mail events for asynchronous delivery.
type MailQueue interface {
	EnqueueMail(ctx context.Context, ev MailEvent) error
}
