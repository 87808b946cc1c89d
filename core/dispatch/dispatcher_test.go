package dispatch

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/motorpanel/core/dispatch/logging"
	"github.com/kilianp07/motorpanel/core/metrics"
	"github.com/kilianp07/motorpanel/core/model"
	"github.com/kilianp07/motorpanel/core/mqtt"
	"github.com/kilianp07/motorpanel/infra/logger"
)

type published struct {
	topic   string
	payload string
}

// fakePublisher mimics a session: it only accepts publishes while connected.
type fakePublisher struct {
	mu        sync.Mutex
	connected bool
	err       error
	msgs      []published
}

func (f *fakePublisher) Publish(topic, payload string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return mqtt.ErrNotConnected
	}
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, published{topic, payload})
	return nil
}

type sinkRecorder struct {
	commands []metrics.CommandEvent
	feedback []metrics.FeedbackEvent
}

func (s *sinkRecorder) RecordCommand(ev metrics.CommandEvent) error {
	s.commands = append(s.commands, ev)
	return nil
}

func (s *sinkRecorder) RecordFeedback(ev metrics.FeedbackEvent) error {
	s.feedback = append(s.feedback, ev)
	return nil
}

type memStore struct{ recs []logging.CommandRecord }

func (m *memStore) Append(_ context.Context, r logging.CommandRecord) error {
	m.recs = append(m.recs, r)
	return nil
}
func (m *memStore) Query(context.Context, logging.CommandQuery) ([]logging.CommandRecord, error) {
	return m.recs, nil
}
func (m *memStore) Close() error { return nil }

func newTestDispatcher(t *testing.T, pub mqtt.Publisher, opts ...Option) *CommandDispatcher {
	t.Helper()
	d, err := NewCommandDispatcher(pub, logger.NopLogger{}, opts...)
	require.NoError(t, err)
	return d
}

func TestCustomPublishesCanonicalValue(t *testing.T) {
	for v := model.MinValue; v <= model.MaxValue; v++ {
		pub := &fakePublisher{connected: true}
		d := newTestDispatcher(t, pub)
		require.NoError(t, d.Custom(v))
		require.Len(t, pub.msgs, 1)
		assert.Equal(t, model.CommandTopic, pub.msgs[0].topic)
		assert.Equal(t, strconv.Itoa(v), pub.msgs[0].payload)
	}
}

func TestCustomRejectsOutOfRange(t *testing.T) {
	pub := &fakePublisher{connected: true}
	d := newTestDispatcher(t, pub)
	for _, v := range []int{-1, 101, -1000, 1 << 20} {
		err := d.Custom(v)
		if !errors.Is(err, model.ErrInvalidInput) {
			t.Fatalf("value %d: expected ErrInvalidInput got %v", v, err)
		}
	}
	assert.Empty(t, pub.msgs)
}

func TestButtonPayloads(t *testing.T) {
	tests := []struct {
		name string
		fn   func(*CommandDispatcher) error
		want string
	}{
		{"off", (*CommandDispatcher).Off, "0"},
		{"left", (*CommandDispatcher).Left, "0"},
		{"middle", (*CommandDispatcher).Middle, "45"},
		{"right", (*CommandDispatcher).Right, "90"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &fakePublisher{connected: true}
			d := newTestDispatcher(t, pub)
			require.NoError(t, tt.fn(d))
			require.Len(t, pub.msgs, 1)
			assert.Equal(t, published{model.CommandTopic, tt.want}, pub.msgs[0])
		})
	}
}

func TestOffAndLeftIdentical(t *testing.T) {
	p1 := &fakePublisher{connected: true}
	p2 := &fakePublisher{connected: true}
	require.NoError(t, newTestDispatcher(t, p1).Off())
	require.NoError(t, newTestDispatcher(t, p2).Left())
	assert.Equal(t, p1.msgs, p2.msgs)
}

func TestNotConnectedProducesNoPublish(t *testing.T) {
	pub := &fakePublisher{}
	sink := &sinkRecorder{}
	d := newTestDispatcher(t, pub, WithMetrics(sink))
	calls := []func() error{d.Off, d.Left, d.Middle, d.Right, func() error { return d.Custom(10) }}
	for _, c := range calls {
		if err := c(); !errors.Is(err, mqtt.ErrNotConnected) {
			t.Fatalf("expected ErrNotConnected got %v", err)
		}
	}
	assert.Empty(t, pub.msgs)
	require.Len(t, sink.commands, len(calls))
	for _, ev := range sink.commands {
		assert.Equal(t, metrics.OutcomeNotConnected, ev.Outcome)
	}
}

func TestInvalidInputCheckedBeforeConnection(t *testing.T) {
	d := newTestDispatcher(t, &fakePublisher{})
	if err := d.Custom(150); !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput got %v", err)
	}
}

func TestDispatchRoutesIntents(t *testing.T) {
	pub := &fakePublisher{connected: true}
	d := newTestDispatcher(t, pub)
	require.NoError(t, d.Dispatch(model.IntentRight, 12))
	require.NoError(t, d.Dispatch(model.IntentCustom, 12))
	assert.Equal(t, []published{{model.CommandTopic, "90"}, {model.CommandTopic, "12"}}, pub.msgs)
	assert.ErrorIs(t, d.Dispatch(model.Intent(42), 0), model.ErrInvalidInput)
}

func TestAttemptsAreRecorded(t *testing.T) {
	pub := &fakePublisher{connected: true}
	sink := &sinkRecorder{}
	store := &memStore{}
	d := newTestDispatcher(t, pub, WithMetrics(sink), WithCommandStore(store))
	require.NoError(t, d.Middle())
	require.Error(t, d.Custom(101))
	pub.err = errors.New("broker gone")
	require.Error(t, d.Right())

	require.Len(t, store.recs, 3)
	assert.Equal(t, "middle", store.recs[0].Intent)
	assert.Equal(t, "sent", store.recs[0].Outcome)
	assert.Empty(t, store.recs[0].Error)
	assert.Equal(t, "invalid_input", store.recs[1].Outcome)
	assert.Equal(t, 101, store.recs[1].Value)
	assert.Equal(t, "error", store.recs[2].Outcome)
	assert.NotEmpty(t, store.recs[2].ID)

	outcomes := []metrics.Outcome{sink.commands[0].Outcome, sink.commands[1].Outcome, sink.commands[2].Outcome}
	assert.Equal(t, []metrics.Outcome{metrics.OutcomeSent, metrics.OutcomeInvalidInput, metrics.OutcomeError}, outcomes)
}

func TestNewCommandDispatcherRequiresDeps(t *testing.T) {
	_, err := NewCommandDispatcher(nil, logger.NopLogger{})
	assert.Error(t, err)
	_, err = NewCommandDispatcher(&fakePublisher{}, nil)
	assert.Error(t, err)
}

type stalledSink struct{ delay time.Duration }

func (s stalledSink) RecordCommand(metrics.CommandEvent) error {
	time.Sleep(s.delay)
	return nil
}

type stalledStore struct {
	logging.NopStore
	delay time.Duration
}

func (s stalledStore) Append(context.Context, logging.CommandRecord) error {
	time.Sleep(s.delay)
	return nil
}

func TestSlowBackendsDoNotDelayCustom(t *testing.T) {
	sink := metrics.NewAsyncSink(stalledSink{delay: 500 * time.Millisecond}, 4, logger.NopLogger{})
	store := logging.NewAsyncStore(stalledStore{delay: 500 * time.Millisecond}, 4, logger.NopLogger{})
	defer func() {
		sink.Close()
		_ = store.Close()
	}()
	pub := &fakePublisher{connected: true}
	d := newTestDispatcher(t, pub, WithMetrics(sink), WithCommandStore(store))

	start := time.Now()
	require.NoError(t, d.Custom(42))
	assert.ErrorIs(t, d.Custom(101), model.ErrInvalidInput)
	assert.Less(t, time.Since(start), 200*time.Millisecond)
	assert.Len(t, pub.msgs, 1)
}
