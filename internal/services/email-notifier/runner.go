package notifier

import (
	"context"
	"errors"

	"github.com/NordCoder/Homeroom/internal/domain/notification"
	kafkax "github.com/NordCoder/Homeroom/internal/repository/kafka"

	"go.uber.org/zap"
)

type Subscriber interface {
	Consume(ctx context.Context, h kafkax.Handler) error
}

type Runner struct {
	log *zap.Logger
	sub Subscriber
	h   *Handler
}

func NewRunner(log *zap.Logger, sub Subscriber, h *Handler) *Runner {
	return &Runner{log: log, sub: sub, h: h}
}

func (r *Runner) Run(ctx context.Context) error {
	handler := kafkax.JSONHandler(func(ctx context.Context, _ []byte, ev *notification.MailEvent) error {
		return r.h.HandleMail(ctx, *ev)
	})
	if err := r.sub.Consume(ctx, handler); err != nil && !errors.Is(err, context.Canceled) {
		mErrors.WithLabelValues("consume").Inc()
		r.log.Warn("kafka consume", zap.Error(err))
		return err
	}
	return ctx.Err()
}
