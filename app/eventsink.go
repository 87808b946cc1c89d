package app

import (
	"github.com/kilianp07/motorpanel/core/events"
	coremetrics "github.com/kilianp07/motorpanel/core/metrics"
	"github.com/kilianp07/motorpanel/internal/eventbus"
)

// EventSink publishes every recorded event on the panel event bus. It sits
// next to the configured metrics sinks so that dispatch attempts, device
// feedback and state transitions reach the console and the websocket stream.
type EventSink struct {
	bus *eventbus.Bus[events.Event]
}

var (
	_ coremetrics.MetricsSink        = (*EventSink)(nil)
	_ coremetrics.ConnectionRecorder = (*EventSink)(nil)
	_ coremetrics.FeedbackRecorder   = (*EventSink)(nil)
)

func NewEventSink(bus *eventbus.Bus[events.Event]) *EventSink {
	return &EventSink{bus: bus}
}

func (s *EventSink) RecordCommand(ev coremetrics.CommandEvent) error {
	s.bus.Publish(events.FromCommand(ev))
	return nil
}

func (s *EventSink) RecordConnection(ev coremetrics.ConnectionEvent) error {
	s.bus.Publish(events.FromConnection(ev))
	return nil
}

func (s *EventSink) RecordFeedback(ev coremetrics.FeedbackEvent) error {
	s.bus.Publish(events.FromFeedback(ev))
	return nil
}
