package auth

import (
	"time"

	"github.com/google/uuid"
)

type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

// RefreshToken is the persisted record of one issued refresh token.
// TokenHash is the SHA-256 digest of the signed token string.
type RefreshToken struct {
	ID          uuid.UUID
	PrincipalID uuid.UUID
	TokenHash   string
	JTI         string
	IssuedAt    time.Time
	ExpiresAt   time.Time
	RevokedAt   *time.Time
}

func (t *RefreshToken) Active(now time.Time) bool {
	return t.RevokedAt == nil && t.ExpiresAt.After(now)
}
