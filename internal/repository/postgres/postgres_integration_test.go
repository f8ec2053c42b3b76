//go:build integration

package postgres

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/NordCoder/Homeroom/internal/domain"
	"github.com/NordCoder/Homeroom/internal/domain/auth"
	"github.com/NordCoder/Homeroom/internal/domain/outbox"
	"github.com/NordCoder/Homeroom/internal/domain/principal"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupDB(t *testing.T) *DB {
	t.Helper()
	dsn := os.Getenv("HOMEROOM_TEST_DB")
	if dsn == "" {
		t.Skip("HOMEROOM_TEST_DB not set")
	}
	ctx := context.Background()

	sqlDB, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	defer sqlDB.Close()
	require.NoError(t, Migrate(ctx, sqlDB, "up"))
	_, err = sqlDB.ExecContext(ctx, `TRUNCATE notifications, outbox, refresh_tokens, teachers CASCADE`)
	require.NoError(t, err)

	db, err := New(ctx, Config{URL: dsn, MaxConns: 10, QueryTimeout: 5 * time.Second})
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

func newPrincipal(email string) *principal.Principal {
	tok := uuid.NewString()
	return &principal.Principal{
		Email:                  email,
		PasswordHash:           "hash",
		FirstName:              "Ada",
		LastName:               "Lovelace",
		IsActive:               true,
		EmailVerificationToken: &tok,
	}
}

func TestPrincipalRepo_CreateAndLookup(t *testing.T) {
	db := setupDB(t)
	repo := NewPrincipalRepo(db)
	ctx := context.Background()

	p := newPrincipal("teacher@example.com")
	require.NoError(t, repo.Create(ctx, p))
	require.NotEqual(t, uuid.Nil, p.ID)

	got, err := repo.GetByEmail(ctx, "Teacher@Example.com")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	err = repo.Create(ctx, newPrincipal("TEACHER@example.com"))
	require.ErrorIs(t, err, domain.ErrConflict)

	_, err = repo.GetByID(ctx, uuid.New())
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPrincipalRepo_ConsumeResetOnce(t *testing.T) {
	db := setupDB(t)
	repo := NewPrincipalRepo(db)
	ctx := context.Background()

	p := newPrincipal("reset@example.com")
	require.NoError(t, repo.Create(ctx, p))
	_, err := repo.SetPasswordResetToken(ctx, p.ID, "digest", time.Now())
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.ConsumePasswordReset(ctx, p.ID, "digest", "new-hash")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, lost int
	for err := range results {
		if err == nil {
			ok++
		} else if assert.ErrorIs(t, err, domain.ErrNotFound) {
			lost++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, lost)

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, got.PasswordResetToken)
	assert.Nil(t, got.PasswordResetRequestedAt)
	assert.Equal(t, "new-hash", got.PasswordHash)
}

func TestRefreshTokenRepo_Lifecycle(t *testing.T) {
	db := setupDB(t)
	users := NewPrincipalRepo(db)
	repo := NewRefreshTokenRepo(db)
	ctx := context.Background()

	p := newPrincipal("rt@example.com")
	require.NoError(t, users.Create(ctx, p))

	now := time.Now().UTC().Truncate(time.Microsecond)
	rt := &auth.RefreshToken{PrincipalID: p.ID, TokenHash: "h1", JTI: "j1", IssuedAt: now, ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, repo.Create(ctx, rt))

	dup := &auth.RefreshToken{PrincipalID: p.ID, TokenHash: "h1", JTI: "j2", IssuedAt: now, ExpiresAt: now.Add(time.Hour)}
	require.ErrorIs(t, repo.Create(ctx, dup), domain.ErrConflict)

	got, err := repo.FindActive(ctx, "h1", now)
	require.NoError(t, err)
	assert.Equal(t, rt.ID, got.ID)

	_, err = repo.FindActive(ctx, "h1", now.Add(2*time.Hour))
	require.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, repo.Revoke(ctx, rt.ID, now))
	require.NoError(t, repo.Revoke(ctx, rt.ID, now.Add(time.Minute)))
	_, err = repo.FindActive(ctx, "h1", now)
	require.ErrorIs(t, err, domain.ErrNotFound)

	n, err := repo.DeleteStale(ctx, now.Add(time.Second), 100)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRefreshTokenRepo_RevokeAllInTx(t *testing.T) {
	db := setupDB(t)
	users := NewPrincipalRepo(db)
	repo := NewRefreshTokenRepo(db)
	tx := NewTransactor(db, zap.NewNop())
	ctx := context.Background()

	p := newPrincipal("all@example.com")
	require.NoError(t, users.Create(ctx, p))
	now := time.Now().UTC()
	for i, h := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Create(ctx, &auth.RefreshToken{
			PrincipalID: p.ID, TokenHash: h, JTI: h + string(rune('0'+i)), IssuedAt: now, ExpiresAt: now.Add(time.Hour),
		}))
	}

	var revoked int64
	err := tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		revoked, err = repo.RevokeAllForPrincipal(ctx, p.ID, now)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), revoked)

	again, err := repo.RevokeAllForPrincipal(ctx, p.ID, now)
	require.NoError(t, err)
	assert.Zero(t, again)
}

func TestOutboxRepo_EnqueuePickPurge(t *testing.T) {
	db := setupDB(t)
	repo := NewOutboxRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Enqueue(ctx, "k1", outbox.KindVerificationEmail, []byte(`{}`)))
	require.NoError(t, repo.Enqueue(ctx, "k1", outbox.KindVerificationEmail, []byte(`{}`)))

	msgs, err := repo.PickBatch(ctx, 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, outbox.KindVerificationEmail, msgs[0].Kind)

	again, err := repo.PickBatch(ctx, 10, time.Minute)
	require.NoError(t, err)
	assert.Empty(t, again)

	require.NoError(t, repo.MarkSuccess(ctx, []string{"k1"}))
	var left int
	require.NoError(t, db.Pool.QueryRow(ctx, `SELECT length(data) FROM outbox WHERE idempotency_key = 'k1'`).Scan(&left))
	assert.Zero(t, left)

	n, err := repo.PurgeSucceeded(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, repo.Enqueue(ctx, "k2", outbox.KindPasswordResetEmail, []byte(`{"token":"raw"}`)))
	n, err = repo.PurgeUndelivered(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
