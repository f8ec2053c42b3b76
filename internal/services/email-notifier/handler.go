package notifier

import (
	"context"
	"fmt"

	config "github.com/NordCoder/Homeroom/internal/config/email-notifier"
	"github.com/NordCoder/Homeroom/internal/domain/notification"
	"github.com/NordCoder/Homeroom/internal/obs"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	mConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "email_notifier_messages_consumed_total",
		Help: "Mail events consumed, by kind.",
	}, []string{"kind"})
	mSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "email_notifier_emails_sent_total",
		Help: "Emails sent, by kind.",
	}, []string{"kind"})
	mErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "email_notifier_errors_total",
		Help: "Errors by stage.",
	}, []string{"stage"})
)

type Handler struct {
	Log   *zap.Logger
	Store notification.Repo
	Out   notification.EmailSender
	Clock notification.Clock
	Links config.Links
}

// HandleMail sends one mail. Malformed events are dropped; send failures are
// returned so the message is not committed.
func (h *Handler) HandleMail(ctx context.Context, ev notification.MailEvent) error {
	log := obs.WithTrace(ctx, h.Log).With(
		zap.String("kind", string(ev.Kind)),
		zap.String("principal_id", ev.PrincipalID.String()),
	)
	mConsumed.WithLabelValues(string(ev.Kind)).Inc()

	if ev.Email == "" || ev.Token == "" {
		mErrors.WithLabelValues("invalid").Inc()
		log.Warn("mail event without recipient or token; dropped")
		return nil
	}
	msg, ok := Render(h.Links, ev)
	if !ok {
		mErrors.WithLabelValues("unknown_kind").Inc()
		log.Warn("unknown mail kind; dropped")
		return nil
	}

	if err := h.Out.Send(ctx, ev.Email, msg.Subject, msg.Body); err != nil {
		mErrors.WithLabelValues("send").Inc()
		return fmt.Errorf("send email: %w", err)
	}
	mSent.WithLabelValues(string(ev.Kind)).Inc()

	err := h.Store.Create(ctx, &notification.Notification{
		PrincipalID: ev.PrincipalID,
		Kind:        ev.Kind,
		Recipient:   ev.Email,
		Subject:     msg.Subject,
		SentAt:      h.Clock.Now().UTC(),
	})
	if err != nil {
		mErrors.WithLabelValues("record").Inc()
		log.Warn("record notification", zap.Error(err))
	}
	return nil
}
