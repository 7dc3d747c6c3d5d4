package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaNotifier_Send(t *testing.T) {
	w := &fakeWriter{}
	n := NewKafkaNotifier(w)

	err := n.Send(context.Background(), Message{
		Kind:        KindGiftReceived,
		Destination: "user-b",
		Body:        "you received a Rose",
		Data:        map[string]string{"amount": "100"},
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "user-b", string(w.msgs[0].Key))
	assert.Equal(t, "kind", w.msgs[0].Headers[0].Key)

	var decoded Message
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, KindGiftReceived, decoded.Kind)
	assert.Equal(t, "100", decoded.Data["amount"])
}

func TestKafkaNotifier_WriteError(t *testing.T) {
	n := NewKafkaNotifier(&fakeWriter{err: errors.New("broker down")})
	err := n.Send(context.Background(), Message{Kind: KindDepositCredited, Destination: "u"})
	assert.ErrorContains(t, err, "broker down")
}

func TestSendDetached_OutlivesCancelButHonoursTimeout(t *testing.T) {
	var seen context.Context
	n := notifierFunc(func(ctx context.Context, _ Message) error {
		seen = ctx
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, SendDetached(ctx, n, Message{Kind: KindDepositCredited}, 0))

	deadline, ok := seen.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(DefaultSendTimeout), deadline, time.Second)
}

type notifierFunc func(ctx context.Context, m Message) error

func (f notifierFunc) Send(ctx context.Context, m Message) error { return f(ctx, m) }
