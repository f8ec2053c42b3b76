package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/NordCoder/Homeroom/internal/domain/notification"
	"github.com/NordCoder/Homeroom/internal/domain/outbox"

	"github.com/google/uuid"
)

var _ notification.MailQueue = (*MailQueue)(nil)

// MailQueue stores mail events in the outbox; the Runner publishes them later.
type MailQueue struct {
	repo outbox.Repository
}

func NewMailQueue(repo outbox.Repository) *MailQueue { return &MailQueue{repo: repo} }

func (q *MailQueue) EnqueueMail(ctx context.Context, ev notification.MailEvent) error {
	var kind outbox.Kind
	switch ev.Kind {
	case notification.KindVerification:
		kind = outbox.KindVerificationEmail
	case notification.KindPasswordReset:
		kind = outbox.KindPasswordResetEmail
	default:
		return fmt.Errorf("unsupported mail kind %q", ev.Kind)
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal mail event: %w", err)
	}
	return q.repo.Enqueue(ctx, uuid.NewString(), kind, data)
}
