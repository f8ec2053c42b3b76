package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/NordCoder/Homeroom/internal/domain/outbox"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

var _ outbox.Repository = (*OutboxRepo)(nil)

type OutboxRepo struct {
	mu   sync.Mutex
	now  func() time.Time
	msgs map[string]*outbox.Message
}

func NewOutboxRepo(now func() time.Time) *OutboxRepo {
	if now == nil {
		now = time.Now
	}
	return &OutboxRepo{now: now, msgs: map[string]*outbox.Message{}}
}

func (r *OutboxRepo) Enqueue(ctx context.Context, key string, kind outbox.Kind, data []byte) error {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.msgs[key]; ok {
		return nil
	}
	now := r.now()
	m := &outbox.Message{
		IdempotencyKey: key,
		Kind:           kind,
		Data:           append([]byte(nil), data...),
		Status:         outbox.StatusCreated,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	m.SetTrace(carrier)
	r.msgs[key] = m
	return nil
}

func (r *OutboxRepo) PickBatch(_ context.Context, batch int, inProgressTTL time.Duration) ([]outbox.Message, error) {
	if batch <= 0 {
		return nil, errors.New("batch must be > 0")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	cand := make([]*outbox.Message, 0)
	for _, m := range r.msgs {
		if m.Status == outbox.StatusCreated ||
			(m.Status == outbox.StatusInProgress && m.UpdatedAt.Before(now.Add(-inProgressTTL))) {
			cand = append(cand, m)
		}
	}
	sort.Slice(cand, func(i, j int) bool { return cand[i].CreatedAt.Before(cand[j].CreatedAt) })
	if len(cand) > batch {
		cand = cand[:batch]
	}

	out := make([]outbox.Message, 0, len(cand))
	for _, m := range cand {
		m.Status = outbox.StatusInProgress
		m.UpdatedAt = now
		out = append(out, *m)
	}
	return out, nil
}

func (r *OutboxRepo) MarkSuccess(_ context.Context, keys []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for _, k := range keys {
		if m, ok := r.msgs[k]; ok {
			m.Status = outbox.StatusSuccess
			m.Data = nil
			m.UpdatedAt = now
		}
	}
	return nil
}

func (r *OutboxRepo) PurgeSucceeded(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for k, m := range r.msgs {
		if m.Status == outbox.StatusSuccess && m.UpdatedAt.Before(before) {
			delete(r.msgs, k)
			n++
		}
	}
	return n, nil
}

func (r *OutboxRepo) PurgeUndelivered(_ context.Context, createdBefore time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for k, m := range r.msgs {
		if m.Status != outbox.StatusSuccess && m.CreatedAt.Before(createdBefore) {
			delete(r.msgs, k)
			n++
		}
	}
	return n, nil
}

// Messages returns a snapshot ordered by creation time.
func (r *OutboxRepo) Messages() []outbox.Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]outbox.Message, 0, len(r.msgs))
	for _, m := range r.msgs {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
