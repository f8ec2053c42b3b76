package sweeper

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	mRemoved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "token_sweeper_rows_removed_total", Help: "Rows removed or cleared, by target.",
	}, []string{"target"})
	mErr = promauto.NewCounter(prometheus.CounterOpts{
		Name: "token_sweeper_errors_total", Help: "Ticks that ended with an error.",
	})
	mLoopDur = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "token_sweeper_tick_duration_seconds", Help: "Sweeper tick duration.",
		Buckets: prometheus.DefBuckets,
	})
)

type Runner struct {
	Log  *zap.Logger
	UC   *Usecase
	Tick time.Duration
}

func New(log *zap.Logger, uc *Usecase, tick time.Duration) *Runner {
	if tick <= 0 {
		tick = 10 * time.Minute
	}
	return &Runner{Log: log, UC: uc, Tick: tick}
}

func (r *Runner) tick(ctx context.Context) {
	start := time.Now()
	res, err := r.UC.Tick(ctx)
	if err != nil {
		mErr.Inc()
		r.Log.Warn("sweep error", zap.Error(err))
	}
	mRemoved.WithLabelValues("refresh_tokens").Add(float64(res.RefreshDeleted))
	mRemoved.WithLabelValues("password_resets").Add(float64(res.ResetsCleared))
	mRemoved.WithLabelValues("outbox").Add(float64(res.OutboxPurged))
	mRemoved.WithLabelValues("outbox_undelivered").Add(float64(res.OutboxUndelivered))
	if res != (Result{}) {
		r.Log.Info("sweep done",
			zap.Int64("refresh_deleted", res.RefreshDeleted),
			zap.Int64("resets_cleared", res.ResetsCleared),
			zap.Int64("outbox_purged", res.OutboxPurged),
			zap.Int64("outbox_undelivered", res.OutboxUndelivered),
		)
	}
	mLoopDur.Observe(time.Since(start).Seconds())
}

func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.Tick)
	defer ticker.Stop()

	r.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}
