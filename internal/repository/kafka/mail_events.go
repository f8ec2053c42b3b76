package kafka

import (
	"context"

	"github.com/NordCoder/Homeroom/internal/domain/kafka"
	"github.com/NordCoder/Homeroom/internal/domain/notification"

	kafkago "github.com/segmentio/kafka-go"
)

const MailTopic = "homeroom.auth.mail"

type MailEventsKafka struct {
	p *Producer
}

func NewMailEventsKafka(p *Producer) *MailEventsKafka { return &MailEventsKafka{p: p} }

var _ kafka.MailEvents = (*MailEventsKafka)(nil)

// PublishMail keys by principal so mails for one teacher stay ordered.
func (e *MailEventsKafka) PublishMail(ctx context.Context, ev notification.MailEvent) error {
	return e.p.PublishJSON(ctx, []byte(ev.PrincipalID.String()), ev,
		kafkago.Header{Key: HeaderMailKind, Value: []byte(ev.Kind)})
}
