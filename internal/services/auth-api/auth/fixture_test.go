package auth

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tokens "github.com/NordCoder/Homeroom/internal/auth"
	"github.com/NordCoder/Homeroom/internal/domain/notification"
	"github.com/NordCoder/Homeroom/internal/domain/principal"
	"github.com/NordCoder/Homeroom/internal/outbox"
	"github.com/NordCoder/Homeroom/internal/repository/memory"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "correct-horse-battery"

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// recordingQueue forwards to the real outbox queue and remembers what it saw.
type recordingQueue struct {
	inner  notification.MailQueue
	mu     sync.Mutex
	events []notification.MailEvent
}

func (q *recordingQueue) EnqueueMail(ctx context.Context, ev notification.MailEvent) error {
	if err := q.inner.EnqueueMail(ctx, ev); err != nil {
		return err
	}
	q.mu.Lock()
	q.events = append(q.events, ev)
	q.mu.Unlock()
	return nil
}

func (q *recordingQueue) last(t *testing.T, kind notification.Kind) notification.MailEvent {
	t.Helper()
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := len(q.events) - 1; i >= 0; i-- {
		if q.events[i].Kind == kind {
			return q.events[i]
		}
	}
	t.Fatalf("no %s mail queued", kind)
	return notification.MailEvent{}
}

func (q *recordingQueue) count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

type fixture struct {
	clock      *testClock
	principals *memory.PrincipalRepo
	refresh    *memory.RefreshTokenRepo
	outbox     *memory.OutboxRepo
	mail       *recordingQueue
	codec      *tokens.Codec

	creds    *Credentials
	sessions *Sessions
	resets   *PasswordReset
	verify   *EmailVerification
	gw       *Gateway
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clk := &testClock{t: time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)}
	cfg := Config{Now: clk.Now}

	f := &fixture{
		clock:      clk,
		principals: memory.NewPrincipalRepo(clk.Now),
		refresh:    memory.NewRefreshTokenRepo(),
		outbox:     memory.NewOutboxRepo(clk.Now),
	}
	f.mail = &recordingQueue{inner: outbox.NewMailQueue(f.outbox)}

	codec, err := tokens.NewCodec([]byte(strings.Repeat("s", tokens.MinSecretLen)), clk.Now)
	require.NoError(t, err)
	f.codec = codec

	creds, err := NewCredentials(f.principals, tokens.NewPasswordHasher(bcrypt.MinCost), cfg)
	require.NoError(t, err)
	f.creds = creds

	tx := memory.Transactor{}
	f.sessions = NewSessions(nil, creds, codec, f.refresh, cfg)
	f.resets = NewPasswordReset(nil, creds, f.refresh, tx, f.mail, cfg)
	f.verify = NewEmailVerification(nil, creds, tx, f.mail, cfg)
	f.gw = NewGateway(nil, codec, creds)
	return f
}

func (f *fixture) register(t *testing.T, email string) *principal.Principal {
	t.Helper()
	p, err := f.verify.Register(context.Background(), RegisterInput{
		Email:     email,
		Password:  testPassword,
		FirstName: "Ada",
		LastName:  "Lovelace",
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) login(t *testing.T, email, password string) *TokenPair {
	t.Helper()
	pair, err := f.sessions.Login(context.Background(), email, password)
	require.NoError(t, err)
	return pair
}
