package notifier

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	config "github.com/NordCoder/Homeroom/internal/config/email-notifier"
	"github.com/NordCoder/Homeroom/internal/domain/notification"
	kafkax "github.com/NordCoder/Homeroom/internal/repository/kafka"
	"github.com/NordCoder/Homeroom/internal/repository/memory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testLinks = config.Links{
	VerifyURL: "https://homeroom.app/verify-email?token={token}",
	ResetURL:  "https://homeroom.app/reset-password?token={token}",
}

type sent struct{ to, subject, body string }

type fakeSender struct {
	out []sent
	err error
}

func (s *fakeSender) Send(_ context.Context, to, subject, body string) error {
	if s.err != nil {
		return s.err
	}
	s.out = append(s.out, sent{to, subject, body})
	return nil
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func newHandler(s notification.EmailSender) (*Handler, *memory.NotificationRepo) {
	store := memory.NewNotificationRepo()
	return &Handler{
		Log:   zap.NewNop(),
		Store: store,
		Out:   s,
		Clock: fixedClock{time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)},
		Links: testLinks,
	}, store
}

func event(kind notification.Kind) notification.MailEvent {
	return notification.MailEvent{
		Kind:        kind,
		PrincipalID: uuid.New(),
		Email:       "ada@example.com",
		FirstName:   "Ada",
		Token:       "tok_123-abc",
		RequestedAt: time.Date(2026, 5, 4, 7, 0, 0, 0, time.UTC),
		ExpiresAt:   time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC),
	}
}

func TestRender(t *testing.T) {
	msg, ok := Render(testLinks, event(notification.KindVerification))
	require.True(t, ok)
	assert.Contains(t, msg.Body, "https://homeroom.app/verify-email?token=tok_123-abc")
	assert.Contains(t, msg.Body, "Hello Ada,")

	msg, ok = Render(testLinks, event(notification.KindPasswordReset))
	require.True(t, ok)
	assert.Equal(t, "Reset your password", msg.Subject)
	assert.Contains(t, msg.Body, "https://homeroom.app/reset-password?token=tok_123-abc")
	assert.Contains(t, msg.Body, "Mon, 04 May 2026 09:00:00 UTC")

	_, ok = Render(testLinks, event("newsletter"))
	assert.False(t, ok)
}

func TestHandleMail_SendsAndRecords(t *testing.T) {
	s := &fakeSender{}
	h, store := newHandler(s)
	ev := event(notification.KindPasswordReset)

	require.NoError(t, h.HandleMail(context.Background(), ev))
	require.Len(t, s.out, 1)
	assert.Equal(t, "ada@example.com", s.out[0].to)

	recs, err := store.ListByPrincipal(context.Background(), ev.PrincipalID, 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, notification.KindPasswordReset, recs[0].Kind)
	assert.Equal(t, "Reset your password", recs[0].Subject)
	assert.NotContains(t, recs[0].Subject, ev.Token)
}

func TestHandleMail_DropsMalformed(t *testing.T) {
	s := &fakeSender{}
	h, _ := newHandler(s)

	bad := event(notification.KindVerification)
	bad.Token = ""
	require.NoError(t, h.HandleMail(context.Background(), bad))
	require.NoError(t, h.HandleMail(context.Background(), event("newsletter")))
	assert.Empty(t, s.out)
}

func TestHandleMail_SendFailureIsReturned(t *testing.T) {
	s := &fakeSender{err: errors.New("smtp down")}
	h, store := newHandler(s)
	ev := event(notification.KindVerification)

	require.Error(t, h.HandleMail(context.Background(), ev))
	recs, err := store.ListByPrincipal(context.Background(), ev.PrincipalID, 10)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

type fakeSubscriber struct{ payloads [][]byte }

func (f fakeSubscriber) Consume(ctx context.Context, h kafkax.Handler) error {
	for _, p := range f.payloads {
		_ = h(ctx, nil, p)
	}
	return context.Canceled
}

func TestRunner_DecodesEvents(t *testing.T) {
	s := &fakeSender{}
	h, _ := newHandler(s)
	sub := fakeSubscriber{payloads: [][]byte{
		[]byte(`{"kind":"email_verification","principal_id":"` + uuid.NewString() + `","email":"a@example.com","token":"t1"}`),
		[]byte(`not json`),
	}}

	err := NewRunner(zap.NewNop(), sub, h).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, s.out, 1)
	assert.Equal(t, "a@example.com", s.out[0].to)
}

func TestMailer_BuildMessage(t *testing.T) {
	m := NewMailer(config.SMTP{Addr: "smtp.example.com:587", From: "noreply@homeroom.app", SubjPrefix: "[Homeroom]"}, zap.NewNop())
	m.now = func() time.Time { return time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC) }

	raw := string(m.buildMessage("ada@example.com\r\nBcc: evil@example.com", "Hi\nthere", "line1\nline2"))
	assert.Contains(t, raw, "Subject: [Homeroom] Hithere\r\n")
	assert.Contains(t, raw, "To: ada@example.comBcc: evil@example.com\r\n")
	assert.NotContains(t, raw, "\r\nBcc:")
	assert.Contains(t, raw, "Date: Mon, 04 May 2026 08:00:00 +0000\r\n")
	assert.True(t, strings.HasSuffix(raw, "\r\n\r\nline1\r\nline2\r\n"))
	assert.Equal(t, "smtp.example.com", host("smtp.example.com:587"))
}
