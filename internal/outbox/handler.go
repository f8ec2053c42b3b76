package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/NordCoder/Homeroom/internal/domain/kafka"
	"github.com/NordCoder/Homeroom/internal/domain/notification"
	"github.com/NordCoder/Homeroom/internal/domain/outbox"
	"github.com/NordCoder/Homeroom/internal/obs/retry"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var (
	outboxHandlerLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "outbox_handler_latency_seconds",
		Help:    "Latency of outbox handlers including retries.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
	outboxHandlerErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_handler_errors_total",
		Help: "Errors in outbox handlers (after retries).",
	}, []string{"kind"})
)

func instrument(kind string, h outbox.KindHandler, pol retry.Policy) outbox.KindHandler {
	tr := otel.Tracer("outbox.handler")
	if pol.Name == "" {
		pol.Name = "outbox_" + kind
	}
	return func(ctx context.Context, data []byte) error {
		ctx, span := tr.Start(ctx, "outbox.handle")
		defer span.End()

		start := time.Now()
		err := retry.Do(ctx, func() error { return h(ctx, data) }, pol)
		outboxHandlerLatency.WithLabelValues(kind).Observe(time.Since(start).Seconds())
		if err != nil {
			span.RecordError(err)
			outboxHandlerErrors.WithLabelValues(kind).Inc()
		}
		return err
	}
}

func publishMail(pub kafka.MailEvents) outbox.KindHandler {
	return func(ctx context.Context, data []byte) error {
		var ev notification.MailEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return retry.Permanent(fmt.Errorf("unmarshal mail payload: %w", err))
		}
		return pub.PublishMail(ctx, ev)
	}
}

func MakeGlobalOutboxHandler(pub kafka.MailEvents, pol retry.Policy) outbox.GlobalHandler {
	verification := instrument(outbox.KindVerificationEmail.String(), publishMail(pub), pol)
	reset := instrument(outbox.KindPasswordResetEmail.String(), publishMail(pub), pol)
	return func(kind outbox.Kind) (outbox.KindHandler, error) {
		switch kind {
		case outbox.KindVerificationEmail:
			return verification, nil
		case outbox.KindPasswordResetEmail:
			return reset, nil
		default:
			return nil, fmt.Errorf("unsupported outbox kind: %d", kind)
		}
	}
}
