package principal

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repo interface {
	// Create fails with domain.ErrConflict when the email (case-insensitive) or a token digest is taken.
	Create(ctx context.Context, p *Principal) error
	GetByID(ctx context.Context, id uuid.UUID) (*Principal, error)
	GetByEmail(ctx context.Context, email string) (*Principal, error)
	GetByPasswordResetToken(ctx context.Context, tokenHash string) (*Principal, error)
	GetByVerificationToken(ctx context.Context, tokenHash string) (*Principal, error)

	SetPassword(ctx context.Context, id uuid.UUID, passwordHash string) (*Principal, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*Principal, error)
	SetPasswordResetToken(ctx context.Context, id uuid.UUID, tokenHash string, requestedAt time.Time) (*Principal, error)
	ClearPasswordResetToken(ctx context.Context, id uuid.UUID) (*Principal, error)
	SetVerificationToken(ctx context.Context, id uuid.UUID, tokenHash string) (*Principal, error)

	// ConsumePasswordReset sets the password and clears both reset fields only while the
	// stored digest still equals tokenHash. domain.ErrNotFound means another caller won.
	ConsumePasswordReset(ctx context.Context, id uuid.UUID, tokenHash, passwordHash string) (*Principal, error)
	// MarkEmailVerified clears the verification digest exactly once.
	MarkEmailVerified(ctx context.Context, id uuid.UUID, tokenHash string, at time.Time) (*Principal, error)

	ClearStalePasswordResets(ctx context.Context, requestedBefore time.Time) (int64, error)
}
