package principal

import (
	"time"

	"github.com/google/uuid"
)

// Principal is a teacher account. Token fields hold digests, never raw tokens.
type Principal struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	IsActive     bool

	EmailVerifiedAt        *time.Time
	EmailVerificationToken *string

	PasswordResetToken       *string
	PasswordResetRequestedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p *Principal) EmailVerified() bool { return p.EmailVerifiedAt != nil }
