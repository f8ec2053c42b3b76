package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type RefreshTokenRepo interface {
	// Create fails with domain.ErrConflict on token hash or jti collision.
	Create(ctx context.Context, t *RefreshToken) error
	// FindActive returns domain.ErrNotFound unless the record is unrevoked and unexpired at now.
	FindActive(ctx context.Context, tokenHash string, now time.Time) (*RefreshToken, error)
	// Revoke is idempotent.
	Revoke(ctx context.Context, id uuid.UUID, at time.Time) error
	RevokeAllForPrincipal(ctx context.Context, principalID uuid.UUID, at time.Time) (int64, error)
	DeleteStale(ctx context.Context, before time.Time, limit int) (int64, error)
}
