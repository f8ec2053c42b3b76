package auth

import (
	"context"
	"errors"
	"fmt"

	tokens "github.com/NordCoder/Homeroom/internal/auth"
	"github.com/NordCoder/Homeroom/internal/domain"
	domainauth "github.com/NordCoder/Homeroom/internal/domain/auth"
	"github.com/NordCoder/Homeroom/internal/obs"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

type AccessGrant struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

type Sessions struct {
	log   *zap.Logger
	creds *Credentials
	codec TokenCodec
	rt    domainauth.RefreshTokenRepo
	cfg   Config
}

func NewSessions(log *zap.Logger, creds *Credentials, codec TokenCodec, rt domainauth.RefreshTokenRepo, cfg Config) *Sessions {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sessions{log: log, creds: creds, codec: codec, rt: rt, cfg: cfg.withDefaults()}
}

func (s *Sessions) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	p, err := s.creds.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		s.creds.burnCompare(password)
		loginTotal.WithLabelValues("invalid_credentials").Inc()
		return nil, domainauth.ErrInvalidCredentials
	}
	if err != nil {
		loginTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("login lookup: %w", err)
	}
	if !p.IsActive {
		loginTotal.WithLabelValues("inactive").Inc()
		return nil, domainauth.ErrAccountInactive
	}
	if !s.creds.VerifyPassword(p, password) {
		loginTotal.WithLabelValues("invalid_credentials").Inc()
		return nil, domainauth.ErrInvalidCredentials
	}

	pair, err := s.issue(ctx, p.ID)
	if err != nil {
		loginTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	loginTotal.WithLabelValues("ok").Inc()
	obs.WithTrace(ctx, s.log).Info("auth.login", zap.String("principal_id", p.ID.String()))
	return pair, nil
}

func (s *Sessions) issue(ctx context.Context, principalID uuid.UUID) (*TokenPair, error) {
	access, err := s.codec.Encode(principalID, s.cfg.AccessTTL)
	if err != nil {
		return nil, fmt.Errorf("sign access: %w", err)
	}
	refresh, jti, err := s.codec.EncodeRefresh(principalID, s.cfg.RefreshTTL)
	if err != nil {
		return nil, fmt.Errorf("sign refresh: %w", err)
	}
	now := s.cfg.Now()
	rec := &domainauth.RefreshToken{
		ID:          uuid.New(),
		PrincipalID: principalID,
		TokenHash:   tokens.HashToken(refresh),
		JTI:         jti,
		IssuedAt:    now,
		ExpiresAt:   now.Add(s.cfg.RefreshTTL),
	}
	if err := s.rt.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("save refresh: %w", err)
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.cfg.AccessTTL.Seconds()),
		TokenType:    tokenTypeBearer,
	}, nil
}

// Refresh mints a new access token; the refresh token itself is not rotated.
func (s *Sessions) Refresh(ctx context.Context, raw string) (*AccessGrant, error) {
	claims, err := s.codec.DecodeRefresh(raw)
	if err != nil {
		refreshTotal.WithLabelValues("invalid").Inc()
		return nil, domainauth.ErrTokenInvalid
	}
	rec, err := s.rt.FindActive(ctx, tokens.HashToken(raw), s.cfg.Now())
	if errors.Is(err, domain.ErrNotFound) {
		refreshTotal.WithLabelValues("invalid").Inc()
		return nil, domainauth.ErrTokenInvalid
	}
	if err != nil {
		refreshTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("find active refresh: %w", err)
	}
	if rec.JTI != claims.ID || rec.PrincipalID != claims.Principal() {
		refreshTotal.WithLabelValues("invalid").Inc()
		return nil, domainauth.ErrTokenInvalid
	}

	p, err := s.creds.FindByID(ctx, rec.PrincipalID)
	if errors.Is(err, domain.ErrNotFound) || (err == nil && !p.IsActive) {
		refreshTotal.WithLabelValues("inactive").Inc()
		return nil, domainauth.ErrAccountInactive
	}
	if err != nil {
		refreshTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("refresh principal: %w", err)
	}

	access, err := s.codec.Encode(p.ID, s.cfg.AccessTTL)
	if err != nil {
		refreshTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("sign access: %w", err)
	}
	refreshTotal.WithLabelValues("ok").Inc()
	return &AccessGrant{
		AccessToken: access,
		ExpiresIn:   int64(s.cfg.AccessTTL.Seconds()),
		TokenType:   tokenTypeBearer,
	}, nil
}

// Logout revokes raw if it names an active record. Beyond rejecting a blank
// token it always succeeds; store failures are logged.
func (s *Sessions) Logout(ctx context.Context, raw string) error {
	if raw == "" {
		return domainauth.ErrTokenInvalid
	}
	log := obs.WithTrace(ctx, s.log)

	rec, err := s.rt.FindActive(ctx, tokens.HashToken(raw), s.cfg.Now())
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			log.Warn("logout lookup failed", zap.Error(err))
		}
		return nil
	}
	if err := s.rt.Revoke(ctx, rec.ID, s.cfg.Now()); err != nil {
		log.Warn("logout revoke failed", zap.Error(err))
		return nil
	}
	revokedTotal.WithLabelValues("logout").Inc()
	log.Info("auth.logout", zap.String("principal_id", rec.PrincipalID.String()))
	return nil
}

func (s *Sessions) LogoutAll(ctx context.Context, principalID uuid.UUID) (int64, error) {
	n, err := s.rt.RevokeAllForPrincipal(ctx, principalID, s.cfg.Now())
	if err != nil {
		return 0, fmt.Errorf("revoke all: %w", err)
	}
	revokedTotal.WithLabelValues("logout_all").Add(float64(n))
	obs.WithTrace(ctx, s.log).Info("auth.logout_all",
		zap.String("principal_id", principalID.String()), zap.Int64("revoked", n))
	return n, nil
}
