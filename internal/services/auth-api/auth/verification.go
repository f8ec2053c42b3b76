package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/NordCoder/Homeroom/internal/domain"
	domainauth "github.com/NordCoder/Homeroom/internal/domain/auth"
	"github.com/NordCoder/Homeroom/internal/domain/notification"
	"github.com/NordCoder/Homeroom/internal/domain/principal"
	"github.com/NordCoder/Homeroom/internal/obs"

	"go.uber.org/zap"
)

type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

type EmailVerification struct {
	log   *zap.Logger
	creds *Credentials
	tx    Transactor
	mail  notification.MailQueue
	cfg   Config
}

func NewEmailVerification(log *zap.Logger, creds *Credentials, tx Transactor, mail notification.MailQueue, cfg Config) *EmailVerification {
	if log == nil {
		log = zap.NewNop()
	}
	return &EmailVerification{log: log, creds: creds, tx: tx, mail: mail, cfg: cfg.withDefaults()}
}

// Register creates the principal and queues its verification mail atomically.
func (e *EmailVerification) Register(ctx context.Context, in RegisterInput) (*principal.Principal, error) {
	p, raw, err := e.creds.prepare(in.Email, in.Password, in.FirstName, in.LastName)
	if err != nil {
		return nil, err
	}
	err = e.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := e.creds.insert(ctx, p); err != nil {
			return err
		}
		return e.enqueue(ctx, p, raw)
	})
	if err != nil {
		return nil, err
	}
	obs.WithTrace(ctx, e.log).Info("auth.registered", zap.String("principal_id", p.ID.String()))
	return p, nil
}

func (e *EmailVerification) VerifyEmail(ctx context.Context, raw string) (*principal.Principal, error) {
	if raw == "" {
		return nil, domainauth.ErrInvalidToken
	}
	p, err := e.creds.FindByVerificationToken(ctx, raw)
	if errors.Is(err, domain.ErrNotFound) {
		oneShotTotal.WithLabelValues("verify_email", "invalid").Inc()
		return nil, domainauth.ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("verification lookup: %w", err)
	}
	out, err := e.creds.VerifyEmail(ctx, p)
	if err != nil {
		if errors.Is(err, domainauth.ErrInvalidToken) {
			oneShotTotal.WithLabelValues("verify_email", "invalid").Inc()
		}
		return nil, err
	}
	oneShotTotal.WithLabelValues("verify_email", "ok").Inc()
	obs.WithTrace(ctx, e.log).Info("auth.email_verified", zap.String("principal_id", out.ID.String()))
	return out, nil
}

// ResendVerification replaces any outstanding verification token and mails the new one.
func (e *EmailVerification) ResendVerification(ctx context.Context, p *principal.Principal) error {
	return e.tx.WithTx(ctx, func(ctx context.Context) error {
		updated, raw, err := e.creds.RegenerateVerificationToken(ctx, p)
		if err != nil {
			return err
		}
		return e.enqueue(ctx, updated, raw)
	})
}

func (e *EmailVerification) enqueue(ctx context.Context, p *principal.Principal, raw string) error {
	err := e.mail.EnqueueMail(ctx, notification.MailEvent{
		Kind:        notification.KindVerification,
		PrincipalID: p.ID,
		Email:       p.Email,
		FirstName:   p.FirstName,
		Token:       raw,
		RequestedAt: e.cfg.Now(),
	})
	if err != nil {
		return fmt.Errorf("enqueue verification mail: %w", err)
	}
	return nil
}
