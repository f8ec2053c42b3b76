package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/NordCoder/Homeroom/internal/domain/notification"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type captureWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *captureWriter) Close() error { return nil }

func TestMailEventsKafka_PublishMail(t *testing.T) {
	w := &captureWriter{}
	p := &Producer{w: w, topic: MailTopic, log: zap.NewNop()}
	events := NewMailEventsKafka(p)

	ev := notification.MailEvent{
		Kind:        notification.KindVerification,
		PrincipalID: uuid.New(),
		Email:       "teacher@example.com",
		FirstName:   "Ada",
		Token:       "raw",
		RequestedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, events.PublishMail(context.Background(), ev))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, ev.PrincipalID.String(), string(msg.Key))
	assert.Equal(t, string(notification.KindVerification), header(msg.Headers, HeaderMailKind))

	var got notification.MailEvent
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, ev.Kind, got.Kind)
	assert.Equal(t, ev.Email, got.Email)
	assert.Equal(t, ev.Token, got.Token)
}

func TestProducer_PropagatesWriteError(t *testing.T) {
	boom := errors.New("broker down")
	p := &Producer{w: &captureWriter{err: boom}, topic: MailTopic, log: zap.NewNop()}
	err := p.PublishJSON(context.Background(), []byte("k"), map[string]string{"a": "b"})
	require.ErrorIs(t, err, boom)
}

func TestHeaderCarrier_SetReplaces(t *testing.T) {
	var hs []kafka.Header
	c := headerCarrier{hs: &hs}
	c.Set("traceparent", "a")
	c.Set("traceparent", "b")
	c.Set("baggage", "x=1")

	require.Len(t, hs, 2)
	assert.Equal(t, "b", c.Get("traceparent"))
	assert.ElementsMatch(t, []string{"traceparent", "baggage"}, c.Keys())
	assert.Empty(t, c.Get("missing"))
}

func TestJSONHandler(t *testing.T) {
	var seen *notification.MailEvent
	h := JSONHandler(func(_ context.Context, _ []byte, ev *notification.MailEvent) error {
		seen = ev
		return nil
	})

	require.NoError(t, h(context.Background(), nil, []byte(`{"kind":"password_reset","email":"a@b.c"}`)))
	require.NotNil(t, seen)
	assert.Equal(t, notification.KindPasswordReset, seen.Kind)

	require.Error(t, h(context.Background(), nil, []byte(`not json`)))
}

type fakeReader struct {
	msgs      chan kafka.Message
	committed []int64
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case m := <-r.msgs:
		return m, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func TestConsumer_CommitsOnlyHandled(t *testing.T) {
	r := &fakeReader{msgs: make(chan kafka.Message, 3)}
	r.msgs <- kafka.Message{Offset: 1, Value: []byte(`{"kind":"email_verification"}`)}
	r.msgs <- kafka.Message{Offset: 2, Value: []byte(`garbage`)}
	r.msgs <- kafka.Message{Offset: 3, Value: []byte(`{"kind":"password_reset"}`)}

	c := &Consumer{reader: r, log: zap.NewNop(), cfg: ConsumerConfig{Topic: MailTopic}}
	ctx, cancel := context.WithCancel(context.Background())

	var kinds []notification.Kind
	err := c.Consume(ctx, JSONHandler(func(_ context.Context, _ []byte, ev *notification.MailEvent) error {
		kinds = append(kinds, ev.Kind)
		if len(kinds) == 2 {
			cancel()
		}
		return nil
	}))

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []notification.Kind{notification.KindVerification, notification.KindPasswordReset}, kinds)
	assert.Equal(t, []int64{1, 3}, r.committed)
}

func TestEnsureTopic_RejectsBadInput(t *testing.T) {
	ctx := context.Background()
	require.Error(t, EnsureTopic(ctx, nil, TopicSpec{Name: MailTopic}, nil))
	require.Error(t, EnsureTopic(ctx, []string{"localhost:9092"}, TopicSpec{}, nil))
}

func TestTopicSpec_Defaults(t *testing.T) {
	s := TopicSpec{Name: MailTopic}.withDefaults()
	assert.Equal(t, 1, s.NumPartitions)
	assert.Equal(t, 1, s.ReplicationFactor)
	assert.Equal(t, 5*time.Second, s.MaxWait)
	assert.Empty(t, s.configEntries())

	s = TopicSpec{Name: MailTopic, Retention: 24 * time.Hour}
	require.Len(t, s.configEntries(), 1)
	assert.Equal(t, "retention.ms", s.configEntries()[0].ConfigName)
	assert.Equal(t, "86400000", s.configEntries()[0].ConfigValue)
}
