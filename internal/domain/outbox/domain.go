package outbox

import (
	"context"
	"time"
)

type Status string

const (
	StatusCreated    Status = "CREATED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusSuccess    Status = "SUCCESS"
)

// Kind is persisted as an integer; never renumber.
type Kind int

const (
	KindVerificationEmail  Kind = 1
	KindPasswordResetEmail Kind = 2
)

func (k Kind) String() string {
	switch k {
	case KindVerificationEmail:
		return "verification_email"
	case KindPasswordResetEmail:
		return "password_reset_email"
	default:
		return "unknown"
	}
}

const (
	headerTraceparent = "traceparent"
	headerTracestate  = "tracestate"
	headerBaggage     = "baggage"
)

// Message is one queued side effect. The trace fields hold the W3C context of the
// request that enqueued it.
type Message struct {
	IdempotencyKey string
	Kind           Kind
	Data           []byte
	Status         Status
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Tracestate     string
	Traceparent    string
	Baggage        string
}

func (m Message) TraceCarrier() map[string]string {
	return map[string]string{
		headerTraceparent: m.Traceparent,
		headerTracestate:  m.Tracestate,
		headerBaggage:     m.Baggage,
	}
}

func (m *Message) SetTrace(c map[string]string) {
	m.Traceparent = c[headerTraceparent]
	m.Tracestate = c[headerTracestate]
	m.Baggage = c[headerBaggage]
}

type Repository interface {
	// Enqueue is a no-op when key already exists.
	Enqueue(ctx context.Context, key string, kind Kind, data []byte) error
	// PickBatch claims up to batch CREATED rows plus IN_PROGRESS rows older than
	// inProgressTTL, oldest first.
	PickBatch(ctx context.Context, batch int, inProgressTTL time.Duration) ([]Message, error)
	// MarkSuccess also drops the payload; mail events carry one-shot tokens.
	MarkSuccess(ctx context.Context, keys []string) error
	PurgeSucceeded(ctx context.Context, before time.Time) (int64, error)
	// PurgeUndelivered deletes rows that never reached SUCCESS and were created
	// before createdBefore.
	PurgeUndelivered(ctx context.Context, createdBefore time.Time) (int64, error)
}

type KindHandler func(ctx context.Context, data []byte) error

type GlobalHandler func(kind Kind) (KindHandler, error)
