package postgres

import (
	"context"
	"time"

	"github.com/NordCoder/Homeroom/internal/domain/principal"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var _ principal.Repo = (*PrincipalRepo)(nil)

type PrincipalRepo struct {
	db *DB
}

func NewPrincipalRepo(db *DB) *PrincipalRepo { return &PrincipalRepo{db: db} }

const principalCols = `
id, email, password_hash, first_name, last_name, is_active,
email_verified_at, email_verification_token,
password_reset_token, password_reset_requested_at,
created_at, updated_at`

const (
	qPrincipalInsert = `
INSERT INTO teachers (id, email, password_hash, first_name, last_name, is_active, email_verification_token)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING` + principalCols + `;`

	qPrincipalByID = `
SELECT` + principalCols + `
FROM teachers
WHERE id = $1;`

	qPrincipalByEmail = `
SELECT` + principalCols + `
FROM teachers
WHERE lower(email) = lower($1);`

	qPrincipalByResetToken = `
SELECT` + principalCols + `
FROM teachers
WHERE password_reset_token = $1;`

	qPrincipalByVerificationToken = `
SELECT` + principalCols + `
FROM teachers
WHERE email_verification_token = $1;`

	qPrincipalSetPassword = `
UPDATE teachers
SET password_hash = $2,
    updated_at    = now()
WHERE id = $1
RETURNING` + principalCols + `;`

	qPrincipalSetActive = `
UPDATE teachers
SET is_active  = $2,
    updated_at = now()
WHERE id = $1
RETURNING` + principalCols + `;`

	qPrincipalSetReset = `
UPDATE teachers
SET password_reset_token        = $2,
    password_reset_requested_at = $3,
    updated_at                  = now()
WHERE id = $1
RETURNING` + principalCols + `;`

	qPrincipalClearReset = `
UPDATE teachers
SET password_reset_token        = NULL,
    password_reset_requested_at = NULL,
    updated_at                  = now()
WHERE id = $1
RETURNING` + principalCols + `;`

	qPrincipalSetVerification = `
UPDATE teachers
SET email_verification_token = $2,
    updated_at               = now()
WHERE id = $1
RETURNING` + principalCols + `;`

	qPrincipalConsumeReset = `
UPDATE teachers
SET password_hash               = $3,
    password_reset_token        = NULL,
    password_reset_requested_at = NULL,
    updated_at                  = now()
WHERE id = $1 AND password_reset_token = $2
RETURNING` + principalCols + `;`

	qPrincipalMarkVerified = `
UPDATE teachers
SET email_verified_at        = $3,
    email_verification_token = NULL,
    updated_at               = now()
WHERE id = $1 AND email_verification_token = $2
RETURNING` + principalCols + `;`

	qPrincipalClearStaleResets = `
UPDATE teachers
SET password_reset_token        = NULL,
    password_reset_requested_at = NULL,
    updated_at                  = now()
WHERE password_reset_requested_at < $1;`
)

func (r *PrincipalRepo) Create(ctx context.Context, p *principal.Principal) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	row := r.db.execQueryer(ctx).QueryRow(ctx, qPrincipalInsert,
		p.ID, p.Email, p.PasswordHash, p.FirstName, p.LastName, p.IsActive, p.EmailVerificationToken)
	return mapErr("principal insert", scanPrincipal(row, p))
}

func (r *PrincipalRepo) GetByID(ctx context.Context, id uuid.UUID) (*principal.Principal, error) {
	return r.one(ctx, "principal by id", qPrincipalByID, id)
}

func (r *PrincipalRepo) GetByEmail(ctx context.Context, email string) (*principal.Principal, error) {
	return r.one(ctx, "principal by email", qPrincipalByEmail, email)
}

func (r *PrincipalRepo) GetByPasswordResetToken(ctx context.Context, tokenHash string) (*principal.Principal, error) {
	return r.one(ctx, "principal by reset token", qPrincipalByResetToken, tokenHash)
}

func (r *PrincipalRepo) GetByVerificationToken(ctx context.Context, tokenHash string) (*principal.Principal, error) {
	return r.one(ctx, "principal by verification token", qPrincipalByVerificationToken, tokenHash)
}

func (r *PrincipalRepo) SetPassword(ctx context.Context, id uuid.UUID, passwordHash string) (*principal.Principal, error) {
	return r.one(ctx, "principal set password", qPrincipalSetPassword, id, passwordHash)
}

func (r *PrincipalRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) (*principal.Principal, error) {
	return r.one(ctx, "principal set active", qPrincipalSetActive, id, active)
}

func (r *PrincipalRepo) SetPasswordResetToken(ctx context.Context, id uuid.UUID, tokenHash string, requestedAt time.Time) (*principal.Principal, error) {
	return r.one(ctx, "principal set reset token", qPrincipalSetReset, id, tokenHash, requestedAt)
}

func (r *PrincipalRepo) ClearPasswordResetToken(ctx context.Context, id uuid.UUID) (*principal.Principal, error) {
	return r.one(ctx, "principal clear reset token", qPrincipalClearReset, id)
}

func (r *PrincipalRepo) SetVerificationToken(ctx context.Context, id uuid.UUID, tokenHash string) (*principal.Principal, error) {
	return r.one(ctx, "principal set verification token", qPrincipalSetVerification, id, tokenHash)
}

func (r *PrincipalRepo) ConsumePasswordReset(ctx context.Context, id uuid.UUID, tokenHash, passwordHash string) (*principal.Principal, error) {
	return r.one(ctx, "principal consume reset", qPrincipalConsumeReset, id, tokenHash, passwordHash)
}

func (r *PrincipalRepo) MarkEmailVerified(ctx context.Context, id uuid.UUID, tokenHash string, at time.Time) (*principal.Principal, error) {
	return r.one(ctx, "principal mark verified", qPrincipalMarkVerified, id, tokenHash, at)
}

func (r *PrincipalRepo) ClearStalePasswordResets(ctx context.Context, requestedBefore time.Time) (int64, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.execQueryer(ctx).Exec(ctx, qPrincipalClearStaleResets, requestedBefore)
	if err != nil {
		return 0, mapErr("principal clear stale resets", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PrincipalRepo) one(ctx context.Context, op, q string, args ...any) (*principal.Principal, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var p principal.Principal
	if err := scanPrincipal(r.db.execQueryer(ctx).QueryRow(ctx, q, args...), &p); err != nil {
		return nil, mapErr(op, err)
	}
	return &p, nil
}

func scanPrincipal(row pgx.Row, out *principal.Principal) error {
	return row.Scan(
		&out.ID, &out.Email, &out.PasswordHash, &out.FirstName, &out.LastName, &out.IsActive,
		&out.EmailVerifiedAt, &out.EmailVerificationToken,
		&out.PasswordResetToken, &out.PasswordResetRequestedAt,
		&out.CreatedAt, &out.UpdatedAt,
	)
}
