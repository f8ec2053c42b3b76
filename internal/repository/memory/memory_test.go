package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/NordCoder/Homeroom/internal/domain"
	"github.com/NordCoder/Homeroom/internal/domain/auth"
	"github.com/NordCoder/Homeroom/internal/domain/outbox"
	"github.com/NordCoder/Homeroom/internal/domain/principal"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestPrincipalRepo_EmailIsCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	repo := NewPrincipalRepo(nil)

	p := &principal.Principal{Email: "teacher@example.com", IsActive: true}
	require.NoError(t, repo.Create(ctx, p))

	got, err := repo.GetByEmail(ctx, "Teacher@Example.com")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	err = repo.Create(ctx, &principal.Principal{Email: "TEACHER@EXAMPLE.COM"})
	require.ErrorIs(t, err, domain.ErrConflict)
}

func TestPrincipalRepo_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewPrincipalRepo(nil)
	p := &principal.Principal{Email: "a@example.com", PasswordHash: "h"}
	require.NoError(t, repo.Create(ctx, p))

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	got.PasswordHash = "mutated"

	again, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "h", again.PasswordHash)
}

func TestPrincipalRepo_ConsumePasswordResetOnce(t *testing.T) {
	ctx := context.Background()
	repo := NewPrincipalRepo(nil)
	p := &principal.Principal{Email: "r@example.com"}
	require.NoError(t, repo.Create(ctx, p))
	_, err := repo.SetPasswordResetToken(ctx, p.ID, "digest", time.Now())
	require.NoError(t, err)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.ConsumePasswordReset(ctx, p.ID, "digest", "new"); err == nil {
				wins.Add(1)
			} else {
				assert.ErrorIs(t, err, domain.ErrNotFound)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())

	_, err = repo.GetByPasswordResetToken(ctx, "digest")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPrincipalRepo_ResetTokenOverwrite(t *testing.T) {
	ctx := context.Background()
	repo := NewPrincipalRepo(nil)
	p := &principal.Principal{Email: "o@example.com"}
	require.NoError(t, repo.Create(ctx, p))

	_, err := repo.SetPasswordResetToken(ctx, p.ID, "first", time.Now())
	require.NoError(t, err)
	_, err = repo.SetPasswordResetToken(ctx, p.ID, "second", time.Now())
	require.NoError(t, err)

	_, err = repo.GetByPasswordResetToken(ctx, "first")
	require.ErrorIs(t, err, domain.ErrNotFound)
	got, err := repo.GetByPasswordResetToken(ctx, "second")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
}

func TestPrincipalRepo_ClearStalePasswordResets(t *testing.T) {
	ctx := context.Background()
	repo := NewPrincipalRepo(nil)
	now := time.Now()

	old := &principal.Principal{Email: "old@example.com"}
	fresh := &principal.Principal{Email: "fresh@example.com"}
	require.NoError(t, repo.Create(ctx, old))
	require.NoError(t, repo.Create(ctx, fresh))
	_, err := repo.SetPasswordResetToken(ctx, old.ID, "old", now.Add(-3*time.Hour))
	require.NoError(t, err)
	_, err = repo.SetPasswordResetToken(ctx, fresh.ID, "fresh", now.Add(-time.Minute))
	require.NoError(t, err)

	n, err := repo.ClearStalePasswordResets(ctx, now.Add(-2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.GetByPasswordResetToken(ctx, "old")
	require.ErrorIs(t, err, domain.ErrNotFound)
	_, err = repo.GetByPasswordResetToken(ctx, "fresh")
	require.NoError(t, err)
}

func TestRefreshTokenRepo_RevokedIsNeverActive(t *testing.T) {
	ctx := context.Background()
	repo := NewRefreshTokenRepo()
	now := time.Now()
	rt := &auth.RefreshToken{PrincipalID: uuid.New(), TokenHash: "h", JTI: "j", IssuedAt: now, ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, repo.Create(ctx, rt))

	var revoked atomic.Bool
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		assert.NoError(t, repo.Revoke(ctx, rt.ID, now))
		revoked.Store(true)
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			wasRevoked := revoked.Load()
			_, err := repo.FindActive(ctx, "h", now)
			if wasRevoked {
				assert.ErrorIs(t, err, domain.ErrNotFound)
			}
		}
	}()
	wg.Wait()

	_, err := repo.FindActive(ctx, "h", now)
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.NoError(t, repo.Revoke(ctx, rt.ID, now.Add(time.Minute)))

	list := repo.ListForPrincipal(rt.PrincipalID)
	require.Len(t, list, 1)
	assert.True(t, list[0].RevokedAt.Equal(now))
}

func TestRefreshTokenRepo_ConflictsAndSweep(t *testing.T) {
	ctx := context.Background()
	repo := NewRefreshTokenRepo()
	now := time.Now()
	pid := uuid.New()

	require.NoError(t, repo.Create(ctx, &auth.RefreshToken{PrincipalID: pid, TokenHash: "a", JTI: "1", ExpiresAt: now.Add(-time.Hour)}))
	require.ErrorIs(t, repo.Create(ctx, &auth.RefreshToken{PrincipalID: pid, TokenHash: "a", JTI: "2"}), domain.ErrConflict)
	require.ErrorIs(t, repo.Create(ctx, &auth.RefreshToken{PrincipalID: pid, TokenHash: "b", JTI: "1"}), domain.ErrConflict)
	require.NoError(t, repo.Create(ctx, &auth.RefreshToken{PrincipalID: pid, TokenHash: "c", JTI: "3", ExpiresAt: now.Add(time.Hour)}))

	n, err := repo.RevokeAllForPrincipal(ctx, pid, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = repo.DeleteStale(ctx, now.Add(-time.Minute), 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Len(t, repo.ListForPrincipal(pid), 1)
}

func TestOutboxRepo_PickIsExclusive(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	clock := func() time.Time { return now }
	repo := NewOutboxRepo(clock)

	require.NoError(t, repo.Enqueue(ctx, "k", outbox.KindPasswordResetEmail, []byte("x")))
	require.NoError(t, repo.Enqueue(ctx, "k", outbox.KindPasswordResetEmail, []byte("y")))

	first, err := repo.PickBatch(ctx, 5, time.Minute)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, []byte("x"), first[0].Data)

	second, err := repo.PickBatch(ctx, 5, time.Minute)
	require.NoError(t, err)
	assert.Empty(t, second)

	require.NoError(t, repo.MarkSuccess(ctx, []string{"k"}))
	assert.Empty(t, repo.Messages()[0].Data)
	n, err := repo.PurgeSucceeded(ctx, now.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestOutboxRepo_PurgeUndelivered(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	clock := func() time.Time { return now }
	repo := NewOutboxRepo(clock)

	require.NoError(t, repo.Enqueue(ctx, "stuck", outbox.KindPasswordResetEmail, []byte("secret")))
	require.NoError(t, repo.Enqueue(ctx, "sent", outbox.KindPasswordResetEmail, []byte("secret")))
	_, err := repo.PickBatch(ctx, 5, time.Minute)
	require.NoError(t, err)
	require.NoError(t, repo.MarkSuccess(ctx, []string{"sent"}))

	n, err := repo.PurgeUndelivered(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = repo.PurgeUndelivered(ctx, now.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	msgs := repo.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "sent", msgs[0].IdempotencyKey)
}

func TestOutboxRepo_KeepsTraceContext(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0xa},
		SpanID:     trace.SpanID{0xb},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	r := NewOutboxRepo(time.Now)
	require.NoError(t, r.Enqueue(ctx, "k1", outbox.KindPasswordResetEmail, []byte(`{}`)))

	msgs, err := r.PickBatch(context.Background(), 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Traceparent, sc.TraceID().String())
	assert.Equal(t, "password_reset_email", msgs[0].Kind.String())
}
