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

type PasswordReset struct {
	log   *zap.Logger
	creds *Credentials
	rt    domainauth.RefreshTokenRepo
	tx    Transactor
	mail  notification.MailQueue
	cfg   Config
}

func NewPasswordReset(log *zap.Logger, creds *Credentials, rt domainauth.RefreshTokenRepo, tx Transactor, mail notification.MailQueue, cfg Config) *PasswordReset {
	if log == nil {
		log = zap.NewNop()
	}
	return &PasswordReset{log: log, creds: creds, rt: rt, tx: tx, mail: mail, cfg: cfg.withDefaults()}
}

// RequestReset never reports failure, so callers cannot probe which emails exist.
func (r *PasswordReset) RequestReset(ctx context.Context, email string) {
	log := obs.WithTrace(ctx, r.log)

	p, err := r.creds.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			log.Error("reset request lookup", zap.Error(err))
		}
		oneShotTotal.WithLabelValues("reset_request", "ignored").Inc()
		return
	}
	if !p.IsActive {
		oneShotTotal.WithLabelValues("reset_request", "ignored").Inc()
		return
	}

	err = r.tx.WithTx(ctx, func(ctx context.Context) error {
		updated, raw, err := r.creds.GeneratePasswordResetToken(ctx, p)
		if err != nil {
			return err
		}
		return r.mail.EnqueueMail(ctx, notification.MailEvent{
			Kind:        notification.KindPasswordReset,
			PrincipalID: updated.ID,
			Email:       updated.Email,
			FirstName:   updated.FirstName,
			Token:       raw,
			RequestedAt: *updated.PasswordResetRequestedAt,
			ExpiresAt:   r.creds.resetExpiry(updated),
		})
	})
	if err != nil {
		oneShotTotal.WithLabelValues("reset_request", "error").Inc()
		log.Error("reset request", zap.String("principal_id", p.ID.String()), zap.Error(err))
		return
	}
	oneShotTotal.WithLabelValues("reset_request", "ok").Inc()
	log.Info("auth.reset_requested", zap.String("principal_id", p.ID.String()))
}

// PerformReset consumes the reset token, sets the new password and revokes every
// refresh record of the principal in one transaction.
func (r *PasswordReset) PerformReset(ctx context.Context, raw, newPassword string) error {
	if raw == "" {
		return domainauth.ErrInvalidToken
	}
	p, err := r.creds.FindByPasswordResetToken(ctx, raw)
	if errors.Is(err, domain.ErrNotFound) {
		oneShotTotal.WithLabelValues("reset", "invalid").Inc()
		return domainauth.ErrInvalidToken
	}
	if err != nil {
		return fmt.Errorf("reset lookup: %w", err)
	}
	if !r.creds.IsPasswordResetTokenValid(p) {
		oneShotTotal.WithLabelValues("reset", "expired").Inc()
		// a dead token is dropped right away instead of waiting for the sweeper
		if _, err := r.creds.ClearPasswordResetToken(ctx, p); err != nil {
			obs.WithTrace(ctx, r.log).Warn("clear expired reset token",
				zap.String("principal_id", p.ID.String()), zap.Error(err))
		}
		return domainauth.ErrInvalidToken
	}

	hash, err := r.creds.hashPassword("new_password", newPassword)
	if err != nil {
		return err
	}

	var revoked int64
	err = r.tx.WithTx(ctx, func(ctx context.Context) error {
		if _, err := r.creds.consumeReset(ctx, p, hash); err != nil {
			return err
		}
		n, err := r.rt.RevokeAllForPrincipal(ctx, p.ID, r.cfg.Now())
		if err != nil {
			return fmt.Errorf("revoke sessions: %w", err)
		}
		revoked = n
		return nil
	})
	if err != nil {
		if errors.Is(err, domainauth.ErrInvalidToken) {
			oneShotTotal.WithLabelValues("reset", "invalid").Inc()
		}
		return err
	}

	oneShotTotal.WithLabelValues("reset", "ok").Inc()
	revokedTotal.WithLabelValues("password_reset").Add(float64(revoked))
	obs.WithTrace(ctx, r.log).Info("auth.password_reset",
		zap.String("principal_id", p.ID.String()), zap.Int64("revoked", revoked))
	return nil
}

func (r *PasswordReset) ChangePassword(ctx context.Context, p *principal.Principal, current, newPassword string) error {
	if !r.creds.VerifyPassword(p, current) {
		return domainauth.ErrInvalidCredentials
	}
	hash, err := r.creds.hashPassword("new_password", newPassword)
	if err != nil {
		return err
	}

	var revoked int64
	err = r.tx.WithTx(ctx, func(ctx context.Context) error {
		if _, err := r.creds.storePassword(ctx, p, hash); err != nil {
			return err
		}
		n, err := r.rt.RevokeAllForPrincipal(ctx, p.ID, r.cfg.Now())
		if err != nil {
			return fmt.Errorf("revoke sessions: %w", err)
		}
		revoked = n
		return nil
	})
	if err != nil {
		return err
	}

	revokedTotal.WithLabelValues("password_change").Add(float64(revoked))
	obs.WithTrace(ctx, r.log).Info("auth.password_changed",
		zap.String("principal_id", p.ID.String()), zap.Int64("revoked", revoked))
	return nil
}
