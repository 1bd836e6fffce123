package kafka

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jurisflow/prazo/internal/infrastructure/monitoring/logging"
)

type fakeReader struct {
	queue     []kafka.Message
	committed []kafka.Message
	closed    bool
}

func (f *fakeReader) FetchMessage(context.Context) (kafka.Message, error) {
	if len(f.queue) == 0 {
		return kafka.Message{}, io.EOF
	}
	msg := f.queue[0]
	f.queue = f.queue[1:]
	return msg, nil
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	f.committed = append(f.committed, msgs...)
	return nil
}

func (f *fakeReader) Close() error {
	f.closed = true
	return nil
}

func recomputeMessage(t *testing.T, version int) kafka.Message {
	t.Helper()
	envelope, err := NewEventEnvelope("deadline.recompute", "test", RecomputeRequest{RuleVersion: version})
	require.NoError(t, err)
	value, err := envelope.Encode()
	require.NoError(t, err)
	return kafka.Message{Topic: TopicDeadlineRecompute, Value: value}
}

func TestRecomputeConsumerDispatches(t *testing.T) {
	r := &fakeReader{queue: []kafka.Message{recomputeMessage(t, 3), recomputeMessage(t, 0)}}

	var handled []int
	c := NewRecomputeConsumerWithReader(r, func(_ context.Context, req RecomputeRequest) error {
		handled = append(handled, req.RuleVersion)
		return nil
	}, logging.NewNopLogger())

	require.NoError(t, c.Run(context.Background()))
	assert.Equal(t, []int{3, 0}, handled)
	assert.Len(t, r.committed, 2)
}

func TestRecomputeConsumerSkipsMalformed(t *testing.T) {
	r := &fakeReader{queue: []kafka.Message{
		{Topic: TopicDeadlineRecompute, Value: []byte("not json")},
		recomputeMessage(t, 1),
	}}

	var handled int
	c := NewRecomputeConsumerWithReader(r, func(context.Context, RecomputeRequest) error {
		handled++
		return nil
	}, logging.NewNopLogger())

	require.NoError(t, c.Run(context.Background()))
	assert.Equal(t, 1, handled)
	assert.Len(t, r.committed, 2, "malformed messages are committed, not redelivered")
}

func TestRecomputeConsumerLeavesFailedUncommitted(t *testing.T) {
	r := &fakeReader{queue: []kafka.Message{recomputeMessage(t, 2)}}

	c := NewRecomputeConsumerWithReader(r, func(context.Context, RecomputeRequest) error {
		return fmt.Errorf("db down")
	}, logging.NewNopLogger())

	require.NoError(t, c.Run(context.Background()))
	assert.Empty(t, r.committed)

	require.NoError(t, c.Close())
	assert.True(t, r.closed)
}
