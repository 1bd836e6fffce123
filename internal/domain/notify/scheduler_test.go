package notify

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jurisflow/prazo/internal/domain/deadline"
	"github.com/jurisflow/prazo/internal/domain/settings"
	"github.com/jurisflow/prazo/pkg/types/common"
)

func d(s string) common.Date { return common.MustParseDate(s) }

type fakeSink struct {
	published []AlertSignal
	fail      bool
}

func (f *fakeSink) Publish(_ context.Context, signal AlertSignal) error {
	if f.fail {
		return fmt.Errorf("broker down")
	}
	f.published = append(f.published, signal)
	return nil
}

type failingSettings struct{}

func (failingSettings) Get() (settings.ConfigurationSet, error) {
	return settings.ConfigurationSet{}, fmt.Errorf("store unreachable")
}

func deadlineDue(due string) deadline.ComputedDeadline {
	return deadline.ComputedDeadline{
		ID:      common.NewID(),
		DueDate: d(due),
	}
}

func newStore(t *testing.T, deadlines ...deadline.ComputedDeadline) *deadline.MemoryStore {
	t.Helper()
	store := deadline.NewMemoryStore()
	for _, dl := range deadlines {
		require.NoError(t, store.Save(dl))
	}
	return store
}

func setLead(t *testing.T, store *settings.MemoryStore, days int) {
	t.Helper()
	_, err := store.Update(settings.Patch{LeadTimeDays: &days})
	require.NoError(t, err)
}

func TestAlertFiresInsideLeadWindow(t *testing.T) {
	dl := deadlineDue("2025-01-23")
	sink := &fakeSink{}
	cfg := settings.NewMemoryStore()
	setLead(t, cfg, 3)

	s := NewScheduler(newStore(t, dl), sink, cfg, nil)

	// One day before the window opens: nothing fires.
	s.WithToday(func() common.Date { return d("2025-01-19") })
	require.NoError(t, s.EvaluateAll(context.Background()))
	assert.Empty(t, sink.published)
	assert.Equal(t, StateScheduled, s.State(dl.ID))

	// today == dueDate − leadTime: the alert fires.
	s.WithToday(func() common.Date { return d("2025-01-20") })
	require.NoError(t, s.EvaluateAll(context.Background()))
	require.Len(t, sink.published, 1)
	assert.Equal(t, dl.ID, sink.published[0].DeadlineID)
	assert.Equal(t, d("2025-01-23"), sink.published[0].DueDate)
	assert.Equal(t, 3, sink.published[0].LeadTimeDays)
	assert.Equal(t, StateAlerted, s.State(dl.ID))
}

func TestEvaluationIsIdempotent(t *testing.T) {
	dl := deadlineDue("2025-01-23")
	sink := &fakeSink{}
	s := NewScheduler(newStore(t, dl), sink, settings.NewMemoryStore(), nil)
	s.WithToday(func() common.Date { return d("2025-01-22") })

	for i := 0; i < 3; i++ {
		require.NoError(t, s.EvaluateAll(context.Background()))
	}
	assert.Len(t, sink.published, 1, "re-evaluation never re-fires")
}

func TestSinkFailureRetriesNextPass(t *testing.T) {
	dl := deadlineDue("2025-01-23")
	sink := &fakeSink{fail: true}
	s := NewScheduler(newStore(t, dl), sink, settings.NewMemoryStore(), nil)
	s.WithToday(func() common.Date { return d("2025-01-22") })

	err := s.EvaluateAll(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateScheduled, s.State(dl.ID), "failed delivery stays scheduled")

	sink.fail = false
	require.NoError(t, s.EvaluateAll(context.Background()))
	assert.Len(t, sink.published, 1)
	assert.Equal(t, StateAlerted, s.State(dl.ID))
}

func TestAckFlow(t *testing.T) {
	dl := deadlineDue("2025-01-23")
	sink := &fakeSink{}
	s := NewScheduler(newStore(t, dl), sink, settings.NewMemoryStore(), nil)

	// Ack before alert is a conflict.
	require.Error(t, s.Ack(dl.ID))

	s.WithToday(func() common.Date { return d("2025-01-22") })
	require.NoError(t, s.EvaluateAll(context.Background()))
	require.NoError(t, s.Ack(dl.ID))
	assert.Equal(t, StateAcknowledged, s.State(dl.ID))

	// Double-ack is harmless; acknowledged deadlines never expire.
	require.NoError(t, s.Ack(dl.ID))
	s.WithToday(func() common.Date { return d("2025-02-10") })
	require.NoError(t, s.EvaluateAll(context.Background()))
	assert.Equal(t, StateAcknowledged, s.State(dl.ID))
}

func TestExpiration(t *testing.T) {
	unalerted := deadlineDue("2025-01-23")
	alerted := deadlineDue("2025-01-24")
	sink := &fakeSink{}
	s := NewScheduler(newStore(t, unalerted, alerted), sink, settings.NewMemoryStore(), nil)

	// Alert only the second deadline, then jump past both due dates.
	s.WithToday(func() common.Date { return d("2025-01-24") })
	require.NoError(t, s.EvaluateAll(context.Background()))
	assert.Equal(t, StateExpired, s.State(unalerted.ID), "due date passed before any alert")
	assert.Equal(t, StateAlerted, s.State(alerted.ID))

	s.WithToday(func() common.Date { return d("2025-01-25") })
	require.NoError(t, s.EvaluateAll(context.Background()))
	assert.Equal(t, StateExpired, s.State(alerted.ID), "unacknowledged alert expires")

	// Expired deadlines reject acknowledgment and never fire again.
	require.Error(t, s.Ack(alerted.ID))
	assert.Len(t, sink.published, 1)
}

func TestDegradedModeUsesLastKnownLeadTime(t *testing.T) {
	dl := deadlineDue("2025-01-23")
	sink := &fakeSink{}
	s := NewScheduler(newStore(t, dl), sink, failingSettings{}, nil)
	s.WithToday(func() common.Date { return d("2025-01-20") })

	// Defaults carry a 3-day lead, so the window is already open even with
	// the configuration store down.
	require.NoError(t, s.EvaluateAll(context.Background()))
	assert.True(t, s.Degraded())
	require.Len(t, sink.published, 1)
	assert.Equal(t, 3, sink.published[0].LeadTimeDays)
}

func TestDegradedModeClearsOnRecovery(t *testing.T) {
	cfg := settings.NewMemoryStore()
	setLead(t, cfg, 5)

	dl := deadlineDue("2025-02-10")
	s := NewScheduler(newStore(t, dl), &fakeSink{}, cfg, nil)
	s.WithToday(func() common.Date { return d("2025-01-20") })

	require.NoError(t, s.EvaluateAll(context.Background()))
	assert.False(t, s.Degraded())
}
