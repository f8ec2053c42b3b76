package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindVerification  Kind = "email_verification"
	KindPasswordReset Kind = "password_reset"
)

// MailEvent travels from the auth-api outbox to the email-notifier over Kafka.
// Token is the raw one-shot token; it is never persisted in this form.
type MailEvent struct {
	Kind        Kind      `json:"kind"`
	PrincipalID uuid.UUID `json:"principal_id"`
	Email       string    `json:"email"`
	FirstName   string    `json:"first_name"`
	Token       string    `json:"token"`
	RequestedAt time.Time `json:"requested_at"`
	ExpiresAt   time.Time `json:"expires_at,omitempty"`
}

type Notification struct {
	ID          int64     `json:"id"`
	PrincipalID uuid.UUID `json:"principal_id"`
	Kind        Kind      `json:"kind"`
	Recipient   string    `json:"recipient"`
	Subject     string    `json:"subject"`
	SentAt      time.Time `json:"sent_at"`
}

type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

type Clock interface {
	Now() time.Time
}
