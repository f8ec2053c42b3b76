package kafka

import (
	"context"

	"github.com/NordCoder/Homeroom/internal/domain/notification"
)

type MailEvents interface {
	PublishMail(ctx context.Context, ev notification.MailEvent) error
}
