package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/motorpanel/core/dispatch/logging"
	"github.com/kilianp07/motorpanel/core/logger"
	"github.com/kilianp07/motorpanel/core/metrics"
	"github.com/kilianp07/motorpanel/core/model"
	"github.com/kilianp07/motorpanel/core/monitoring"
	"github.com/kilianp07/motorpanel/core/mqtt"
)

// CommandDispatcher translates operator intents into validated commands and
// hands them to a publisher. It keeps no state between calls: every call is
// validated and published independently, without retries or debouncing.
type CommandDispatcher struct {
	publisher   mqtt.Publisher
	logger      logger.Logger
	metrics     metrics.MetricsSink
	store       logging.CommandStore
	statusTopic string
	onFeedback  func(Feedback)
	now         func() time.Time
}

// Option configures a CommandDispatcher.
type Option func(*CommandDispatcher)

// WithMetrics records every attempt on sink.
func WithMetrics(sink metrics.MetricsSink) Option {
	return func(d *CommandDispatcher) {
		if sink != nil {
			d.metrics = sink
		}
	}
}

// WithCommandStore appends every attempt to store.
func WithCommandStore(store logging.CommandStore) Option {
	return func(d *CommandDispatcher) {
		if store != nil {
			d.store = store
		}
	}
}

// WithStatusTopic overrides the topic parsed as device feedback.
func WithStatusTopic(topic string) Option {
	return func(d *CommandDispatcher) { d.statusTopic = topic }
}

// WithFeedbackObserver registers the callback receiving device feedback.
func WithFeedbackObserver(fn func(Feedback)) Option {
	return func(d *CommandDispatcher) { d.onFeedback = fn }
}

// NewCommandDispatcher creates a dispatcher publishing through pub.
func NewCommandDispatcher(pub mqtt.Publisher, log logger.Logger, opts ...Option) (*CommandDispatcher, error) {
	if pub == nil {
		return nil, errors.New("publisher is required")
	}
	if log == nil {
		return nil, errors.New("logger is required")
	}
	d := &CommandDispatcher{
		publisher:   pub,
		logger:      log,
		metrics:     metrics.NopSink{},
		store:       logging.NopStore{},
		statusTopic: model.StatusTopic,
		now:         time.Now,
	}
	for _, o := range opts {
		o(d)
	}
	return d, nil
}

// Off stops the motor (value 0).
func (d *CommandDispatcher) Off() error { return d.dispatchPreset(model.IntentOff) }

// Left sends value 0, the same as Off.
func (d *CommandDispatcher) Left() error { return d.dispatchPreset(model.IntentLeft) }

// Middle sends value 45.
func (d *CommandDispatcher) Middle() error { return d.dispatchPreset(model.IntentMiddle) }

// Right sends value 90.
func (d *CommandDispatcher) Right() error { return d.dispatchPreset(model.IntentRight) }

// Custom sends value after checking it lies in [model.MinValue, model.MaxValue].
func (d *CommandDispatcher) Custom(value int) error {
	return d.send(model.IntentCustom, value)
}

// Dispatch sends intent. value is only used for model.IntentCustom.
func (d *CommandDispatcher) Dispatch(intent model.Intent, value int) error {
	if intent == model.IntentCustom {
		return d.Custom(value)
	}
	return d.dispatchPreset(intent)
}

func (d *CommandDispatcher) dispatchPreset(intent model.Intent) error {
	v, ok := intent.Preset()
	if !ok {
		d.record(intent, 0, model.ErrInvalidInput)
		return model.ErrInvalidInput
	}
	return d.send(intent, v)
}

func (d *CommandDispatcher) send(intent model.Intent, value int) error {
	cmd, err := model.NewCommand(value)
	if err != nil {
		d.logger.Warnf("rejected %s command: %v", intent, err)
		d.record(intent, value, err)
		return err
	}
	err = d.publisher.Publish(cmd.Topic(), cmd.Payload())
	d.record(intent, value, err)
	if err != nil {
		d.logger.Errorf("publish %s=%s failed: %v", cmd.Topic(), cmd.Payload(), err)
		return err
	}
	d.logger.Infow("command sent", map[string]any{"intent": intent.String(), "topic": cmd.Topic(), "payload": cmd.Payload()})
	return nil
}

func (d *CommandDispatcher) record(intent model.Intent, value int, err error) {
	outcome := Classify(err)
	now := d.now()
	if outcome == metrics.OutcomeError {
		monitoring.CaptureException(err, map[string]string{"module": "dispatch", "intent": intent.String()})
	}
	if merr := d.metrics.RecordCommand(metrics.CommandEvent{
		Intent:  intent,
		Value:   value,
		Topic:   model.CommandTopic,
		Outcome: outcome,
		Time:    now,
	}); merr != nil {
		d.logger.Errorf("metrics error: %v", merr)
	}
	rec := logging.CommandRecord{
		ID:        uuid.NewString(),
		Timestamp: now,
		Intent:    intent.String(),
		Value:     value,
		Topic:     model.CommandTopic,
		Outcome:   string(outcome),
	}
	if err != nil {
		rec.Error = err.Error()
	}
	if serr := d.store.Append(context.Background(), rec); serr != nil {
		d.logger.Errorf("command log error: %v", serr)
	}
}

// Classify maps a dispatch error to its metrics outcome.
func Classify(err error) metrics.Outcome {
	switch {
	case err == nil:
		return metrics.OutcomeSent
	case errors.Is(err, model.ErrInvalidInput):
		return metrics.OutcomeInvalidInput
	case errors.Is(err, mqtt.ErrNotConnected):
		return metrics.OutcomeNotConnected
	default:
		return metrics.OutcomeError
	}
}
