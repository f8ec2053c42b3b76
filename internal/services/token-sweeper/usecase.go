package sweeper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type RefreshSweeper interface {
	DeleteStale(ctx context.Context, before time.Time, limit int) (int64, error)
}

type ResetSweeper interface {
	ClearStalePasswordResets(ctx context.Context, requestedBefore time.Time) (int64, error)
}

type OutboxPurger interface {
	PurgeSucceeded(ctx context.Context, before time.Time) (int64, error)
	PurgeUndelivered(ctx context.Context, createdBefore time.Time) (int64, error)
}

type Policy struct {
	Retention   time.Duration
	ResetWindow time.Duration
	// UndeliveredAfter bounds how long an unsent mail payload may sit in the
	// outbox. Zero falls back to Retention.
	UndeliveredAfter time.Duration
	BatchLimit       int
}

type Result struct {
	RefreshDeleted    int64
	ResetsCleared     int64
	OutboxPurged      int64
	OutboxUndelivered int64
}

type Usecase struct {
	Refresh RefreshSweeper
	Resets  ResetSweeper
	Outbox  OutboxPurger
	Policy  Policy
	Now     func() time.Time
}

func NewUC(refresh RefreshSweeper, resets ResetSweeper, outbox OutboxPurger, p Policy) *Usecase {
	if p.BatchLimit <= 0 {
		p.BatchLimit = 1000
	}
	if p.UndeliveredAfter <= 0 {
		p.UndeliveredAfter = p.Retention
	}
	return &Usecase{
		Refresh: refresh,
		Resets:  resets,
		Outbox:  outbox,
		Policy:  p,
		Now:     func() time.Time { return time.Now().UTC() },
	}
}

// Tick runs every sweep step once. A failing step does not stop the others;
// their errors are joined.
func (u *Usecase) Tick(ctx context.Context) (Result, error) {
	tr := otel.Tracer("sweeper.uc")
	ctx, span := tr.Start(ctx, "sweeper.tick",
		trace.WithAttributes(attribute.Int("batch.limit", u.Policy.BatchLimit)),
	)
	defer span.End()

	now := u.Now()
	cutoff := now.Add(-u.Policy.Retention)
	var res Result
	var errs []error

	step := func(name string, fn func(ctx context.Context) (int64, error)) int64 {
		ctx, sp := tr.Start(ctx, "sweeper."+name)
		defer sp.End()
		n, err := fn(ctx)
		if err != nil {
			sp.RecordError(err)
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			return 0
		}
		sp.SetAttributes(attribute.Int64("rows", n))
		return n
	}

	res.RefreshDeleted = step("refresh_tokens", func(ctx context.Context) (int64, error) {
		var total int64
		for {
			n, err := u.Refresh.DeleteStale(ctx, cutoff, u.Policy.BatchLimit)
			total += n
			if err != nil || n < int64(u.Policy.BatchLimit) {
				return total, err
			}
		}
	})
	res.ResetsCleared = step("password_resets", func(ctx context.Context) (int64, error) {
		return u.Resets.ClearStalePasswordResets(ctx, now.Add(-u.Policy.ResetWindow))
	})
	res.OutboxPurged = step("outbox", func(ctx context.Context) (int64, error) {
		return u.Outbox.PurgeSucceeded(ctx, cutoff)
	})
	res.OutboxUndelivered = step("outbox_undelivered", func(ctx context.Context) (int64, error) {
		return u.Outbox.PurgeUndelivered(ctx, now.Add(-u.Policy.UndeliveredAfter))
	})

	span.SetAttributes(
		attribute.Int64("refresh.deleted", res.RefreshDeleted),
		attribute.Int64("resets.cleared", res.ResetsCleared),
		attribute.Int64("outbox.purged", res.OutboxPurged),
		attribute.Int64("outbox.undelivered", res.OutboxUndelivered),
	)
	err := errors.Join(errs...)
	if err != nil {
		span.RecordError(err)
	}
	return res, err
}
