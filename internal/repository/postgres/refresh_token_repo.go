package postgres

import (
	"context"
	"time"

	"github.com/NordCoder/Homeroom/internal/domain/auth"

	"github.com/google/uuid"
)

var _ auth.RefreshTokenRepo = (*RefreshTokenRepo)(nil)

type RefreshTokenRepo struct{ db *DB }

func NewRefreshTokenRepo(db *DB) *RefreshTokenRepo { return &RefreshTokenRepo{db: db} }

const (
	qRTCreate = `
INSERT INTO refresh_tokens (id, principal_id, token_hash, jti, issued_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6);`

	qRTFindActive = `
SELECT id, principal_id, token_hash, jti, issued_at, expires_at, revoked_at
FROM refresh_tokens
WHERE token_hash = $1 AND revoked_at IS NULL AND expires_at > $2;`

	qRTRevoke = `
UPDATE refresh_tokens SET revoked_at = $2
WHERE id = $1 AND revoked_at IS NULL;`

	qRTRevokeAll = `
UPDATE refresh_tokens SET revoked_at = $2
WHERE principal_id = $1 AND revoked_at IS NULL;`

	qRTDeleteStale = `
DELETE FROM refresh_tokens
WHERE id IN (
   SELECT id FROM refresh_tokens
   WHERE expires_at < $1 OR revoked_at < $1
   LIMIT $2
);`
)

func (r *RefreshTokenRepo) Create(ctx context.Context, t *auth.RefreshToken) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	_, err := r.db.execQueryer(ctx).Exec(ctx, qRTCreate, t.ID, t.PrincipalID, t.TokenHash, t.JTI, t.IssuedAt, t.ExpiresAt)
	return mapErr("create refresh", err)
}

func (r *RefreshTokenRepo) FindActive(ctx context.Context, tokenHash string, now time.Time) (*auth.RefreshToken, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var t auth.RefreshToken
	if err := r.db.execQueryer(ctx).QueryRow(ctx, qRTFindActive, tokenHash, now).
		Scan(&t.ID, &t.PrincipalID, &t.TokenHash, &t.JTI, &t.IssuedAt, &t.ExpiresAt, &t.RevokedAt); err != nil {
		return nil, mapErr("find active refresh", err)
	}
	return &t, nil
}

func (r *RefreshTokenRepo) Revoke(ctx context.Context, id uuid.UUID, at time.Time) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	_, err := r.db.execQueryer(ctx).Exec(ctx, qRTRevoke, id, at)
	return mapErr("revoke refresh", err)
}

func (r *RefreshTokenRepo) RevokeAllForPrincipal(ctx context.Context, principalID uuid.UUID, at time.Time) (int64, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.execQueryer(ctx).Exec(ctx, qRTRevokeAll, principalID, at)
	if err != nil {
		return 0, mapErr("revoke all refresh", err)
	}
	return tag.RowsAffected(), nil
}

func (r *RefreshTokenRepo) DeleteStale(ctx context.Context, before time.Time, limit int) (int64, error) {
	if limit <= 0 {
		limit = 1000
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.execQueryer(ctx).Exec(ctx, qRTDeleteStale, before, limit)
	if err != nil {
		return 0, mapErr("delete stale refresh", err)
	}
	return tag.RowsAffected(), nil
}
