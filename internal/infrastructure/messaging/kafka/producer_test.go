package kafka

import (
	"context"
	"fmt"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jurisflow/prazo/internal/domain/notify"
	"github.com/jurisflow/prazo/internal/infrastructure/monitoring/logging"
	"github.com/jurisflow/prazo/pkg/types/common"
)

type fakeWriter struct {
	messages []kafka.Message
	fail     bool
	closed   bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.fail {
		return fmt.Errorf("broker unavailable")
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestProducerPublish(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, logging.NewNopLogger())

	envelope, err := NewEventEnvelope("deadline.alert", "test", map[string]string{"k": "v"})
	require.NoError(t, err)

	require.NoError(t, p.Publish(context.Background(), TopicDeadlineAlert, []byte("key"), envelope))
	require.Len(t, w.messages, 1)
	assert.Equal(t, TopicDeadlineAlert, w.messages[0].Topic)
	assert.Equal(t, []byte("key"), w.messages[0].Key)

	decoded, err := DecodeEnvelope(w.messages[0].Value)
	require.NoError(t, err)
	assert.Equal(t, "deadline.alert", decoded.Type)

	sent, failed, _ := p.Metrics()
	assert.Equal(t, int64(1), sent)
	assert.Equal(t, int64(0), failed)
}

func TestProducerPublishFailureCounts(t *testing.T) {
	w := &fakeWriter{fail: true}
	p := NewProducerWithWriter(w, logging.NewNopLogger())

	envelope, err := NewEventEnvelope("deadline.alert", "test", struct{}{})
	require.NoError(t, err)
	require.Error(t, p.Publish(context.Background(), TopicDeadlineAlert, nil, envelope))

	_, failed, _ := p.Metrics()
	assert.Equal(t, int64(1), failed)
}

func TestProducerClosedRejectsPublish(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, logging.NewNopLogger())
	require.NoError(t, p.Close())
	assert.True(t, w.closed)

	envelope, _ := NewEventEnvelope("deadline.alert", "test", struct{}{})
	assert.ErrorIs(t, p.Publish(context.Background(), TopicDeadlineAlert, nil, envelope), ErrProducerClosed)
}

func TestAlertPublisherRoundTrip(t *testing.T) {
	w := &fakeWriter{}
	sink := NewAlertPublisher(NewProducerWithWriter(w, logging.NewNopLogger()))

	signal := notify.AlertSignal{
		DeadlineID:   common.NewID(),
		DueDate:      common.MustParseDate("2025-01-23"),
		LeadTimeDays: 3,
	}
	require.NoError(t, sink.Publish(context.Background(), signal))
	require.Len(t, w.messages, 1)
	assert.Equal(t, []byte(signal.DeadlineID), w.messages[0].Key)

	envelope, err := DecodeEnvelope(w.messages[0].Value)
	require.NoError(t, err)
	var got notify.AlertSignal
	require.NoError(t, envelope.DecodePayload(&got))
	assert.Equal(t, signal, got)
}
