package metrics

import (
	"time"

	"github.com/kilianp07/motorpanel/core/model"
)

// Outcome classifies a dispatch attempt.
type Outcome string

const (
	OutcomeSent         Outcome = "sent"
	OutcomeInvalidInput Outcome = "invalid_input"
	OutcomeNotConnected Outcome = "not_connected"
	OutcomeError        Outcome = "error"
)

// CommandEvent describes one dispatch attempt.
type CommandEvent struct {
	Intent  model.Intent
	Value   int
	Topic   string
	Outcome Outcome
	Time    time.Time
}

// MetricsSink records command attempts for observability purposes.
type MetricsSink interface {
	RecordCommand(ev CommandEvent) error
}

// ConnectionEvent is emitted on session state transitions and connect
// failures. LinkLost is set only when an established connection dropped.
type ConnectionEvent struct {
	State    model.ConnectionState
	Reason   string
	LinkLost bool
	Time     time.Time
}

// ConnectionRecorder records session state transitions.
type ConnectionRecorder interface {
	RecordConnection(ev ConnectionEvent) error
}

// FeedbackEvent carries a status report published by the device.
type FeedbackEvent struct {
	Online   bool
	Position int
	Time     time.Time
}

// FeedbackRecorder records device feedback.
type FeedbackRecorder interface {
	RecordFeedback(ev FeedbackEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordCommand(CommandEvent) error       { return nil }
func (NopSink) RecordConnection(ConnectionEvent) error { return nil }
func (NopSink) RecordFeedback(FeedbackEvent) error     { return nil }
