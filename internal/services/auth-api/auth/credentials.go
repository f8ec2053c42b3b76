package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	tokens "github.com/NordCoder/Homeroom/internal/auth"
	"github.com/NordCoder/Homeroom/internal/domain"
	domainauth "github.com/NordCoder/Homeroom/internal/domain/auth"
	"github.com/NordCoder/Homeroom/internal/domain/principal"

	"github.com/google/uuid"
)

const (
	minPasswordRunes = 8
	maxNameRunes     = 100
	maxEmailBytes    = 254
)

// Credentials is the principal store: password hashes, activation, and the
// one-shot verification and reset tokens.
type Credentials struct {
	repo      principal.Repo
	hasher    tokens.PasswordHasher
	cfg       Config
	dummyHash string
}

func NewCredentials(repo principal.Repo, hasher tokens.PasswordHasher, cfg Config) (*Credentials, error) {
	dummy, err := hasher.Hash("homeroom-timing-equalizer")
	if err != nil {
		return nil, err
	}
	return &Credentials{repo: repo, hasher: hasher, cfg: cfg.withDefaults(), dummyHash: dummy}, nil
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func generateToken() (raw, digest string, err error) {
	raw, err = tokens.GenerateRawToken(rawTokenBytes)
	if err != nil {
		return "", "", fmt.Errorf("generate token: %w", err)
	}
	return raw, tokens.HashToken(raw), nil
}

func validatePassword(v *domainauth.ValidationError, field, password string) {
	switch {
	case utf8.RuneCountInString(password) < minPasswordRunes:
		v.Add(field, fmt.Sprintf("must be at least %d characters", minPasswordRunes))
	case len(password) > tokens.MaxPasswordBytes:
		v.Add(field, fmt.Sprintf("must be at most %d bytes", tokens.MaxPasswordBytes))
	}
}

func validateEmail(v *domainauth.ValidationError, email string) {
	if email == "" {
		v.Add("email", "is required")
		return
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || len(email) > maxEmailBytes {
		v.Add("email", "must be a valid email address")
	}
}

func validateName(v *domainauth.ValidationError, field, name string) {
	switch n := utf8.RuneCountInString(name); {
	case n == 0:
		v.Add(field, "is required")
	case n > maxNameRunes:
		v.Add(field, fmt.Sprintf("must be at most %d characters", maxNameRunes))
	}
}

func (c *Credentials) hashPassword(field, password string) (string, error) {
	v := domainauth.NewValidationError()
	validatePassword(v, field, password)
	if err := v.OrNil(); err != nil {
		return "", err
	}
	return c.hasher.Hash(password)
}

// prepare validates registration input and builds an unsaved principal.
func (c *Credentials) prepare(email, password, firstName, lastName string) (*principal.Principal, string, error) {
	email = normalizeEmail(email)
	firstName, lastName = strings.TrimSpace(firstName), strings.TrimSpace(lastName)

	v := domainauth.NewValidationError()
	validateEmail(v, email)
	validatePassword(v, "password", password)
	validateName(v, "first_name", firstName)
	validateName(v, "last_name", lastName)
	if err := v.OrNil(); err != nil {
		return nil, "", err
	}

	hash, err := c.hasher.Hash(password)
	if err != nil {
		return nil, "", err
	}
	raw, digest, err := generateToken()
	if err != nil {
		return nil, "", err
	}
	return &principal.Principal{
		ID:                     uuid.New(),
		Email:                  email,
		PasswordHash:           hash,
		FirstName:              firstName,
		LastName:               lastName,
		IsActive:               true,
		EmailVerificationToken: &digest,
	}, raw, nil
}

func (c *Credentials) insert(ctx context.Context, p *principal.Principal) error {
	if err := c.repo.Create(ctx, p); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			v := domainauth.NewValidationError()
			v.Add("email", "is already registered")
			return v
		}
		return fmt.Errorf("create principal: %w", err)
	}
	return nil
}

// Create registers a principal and returns the raw verification token.
func (c *Credentials) Create(ctx context.Context, email, password, firstName, lastName string) (*principal.Principal, string, error) {
	p, raw, err := c.prepare(email, password, firstName, lastName)
	if err != nil {
		return nil, "", err
	}
	if err := c.insert(ctx, p); err != nil {
		return nil, "", err
	}
	return p, raw, nil
}

func (c *Credentials) FindByEmail(ctx context.Context, email string) (*principal.Principal, error) {
	return c.repo.GetByEmail(ctx, normalizeEmail(email))
}

func (c *Credentials) FindByID(ctx context.Context, id uuid.UUID) (*principal.Principal, error) {
	return c.repo.GetByID(ctx, id)
}

func (c *Credentials) FindByPasswordResetToken(ctx context.Context, raw string) (*principal.Principal, error) {
	return c.repo.GetByPasswordResetToken(ctx, tokens.HashToken(raw))
}

func (c *Credentials) FindByVerificationToken(ctx context.Context, raw string) (*principal.Principal, error) {
	return c.repo.GetByVerificationToken(ctx, tokens.HashToken(raw))
}

func (c *Credentials) VerifyPassword(p *principal.Principal, candidate string) bool {
	return c.hasher.Matches(p.PasswordHash, candidate)
}

// burnCompare spends one bcrypt comparison so unknown emails cost the same as known ones.
func (c *Credentials) burnCompare(candidate string) {
	_ = c.hasher.Matches(c.dummyHash, candidate)
}

func (c *Credentials) VerifyEmail(ctx context.Context, p *principal.Principal) (*principal.Principal, error) {
	if p.EmailVerificationToken == nil {
		return nil, domainauth.ErrInvalidToken
	}
	out, err := c.repo.MarkEmailVerified(ctx, p.ID, *p.EmailVerificationToken, c.cfg.Now())
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domainauth.ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("mark email verified: %w", err)
	}
	return out, nil
}

func (c *Credentials) GeneratePasswordResetToken(ctx context.Context, p *principal.Principal) (*principal.Principal, string, error) {
	raw, digest, err := generateToken()
	if err != nil {
		return nil, "", err
	}
	out, err := c.repo.SetPasswordResetToken(ctx, p.ID, digest, c.cfg.Now())
	if err != nil {
		return nil, "", fmt.Errorf("set reset token: %w", err)
	}
	return out, raw, nil
}

func (c *Credentials) IsPasswordResetTokenValid(p *principal.Principal) bool {
	if p.PasswordResetToken == nil || p.PasswordResetRequestedAt == nil {
		return false
	}
	return c.cfg.Now().Sub(*p.PasswordResetRequestedAt) < c.cfg.ResetWindow
}

func (c *Credentials) resetExpiry(p *principal.Principal) time.Time {
	if p.PasswordResetRequestedAt == nil {
		return time.Time{}
	}
	return p.PasswordResetRequestedAt.Add(c.cfg.ResetWindow)
}

func (c *Credentials) ClearPasswordResetToken(ctx context.Context, p *principal.Principal) (*principal.Principal, error) {
	out, err := c.repo.ClearPasswordResetToken(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("clear reset token: %w", err)
	}
	return out, nil
}

// consumeReset swaps in passwordHash only while p's reset digest is still stored.
func (c *Credentials) consumeReset(ctx context.Context, p *principal.Principal, passwordHash string) (*principal.Principal, error) {
	if p.PasswordResetToken == nil {
		return nil, domainauth.ErrInvalidToken
	}
	out, err := c.repo.ConsumePasswordReset(ctx, p.ID, *p.PasswordResetToken, passwordHash)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domainauth.ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("consume reset token: %w", err)
	}
	return out, nil
}

func (c *Credentials) SetPassword(ctx context.Context, p *principal.Principal, newPassword string) (*principal.Principal, error) {
	hash, err := c.hashPassword("password", newPassword)
	if err != nil {
		return nil, err
	}
	return c.storePassword(ctx, p, hash)
}

func (c *Credentials) storePassword(ctx context.Context, p *principal.Principal, hash string) (*principal.Principal, error) {
	out, err := c.repo.SetPassword(ctx, p.ID, hash)
	if err != nil {
		return nil, fmt.Errorf("set password: %w", err)
	}
	return out, nil
}

func (c *Credentials) SetActive(ctx context.Context, p *principal.Principal, active bool) (*principal.Principal, error) {
	out, err := c.repo.SetActive(ctx, p.ID, active)
	if err != nil {
		return nil, fmt.Errorf("set active: %w", err)
	}
	return out, nil
}

func (c *Credentials) RegenerateVerificationToken(ctx context.Context, p *principal.Principal) (*principal.Principal, string, error) {
	raw, digest, err := generateToken()
	if err != nil {
		return nil, "", err
	}
	out, err := c.repo.SetVerificationToken(ctx, p.ID, digest)
	if err != nil {
		return nil, "", fmt.Errorf("set verification token: %w", err)
	}
	return out, raw, nil
}
