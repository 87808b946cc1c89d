package events

import (
	"time"

	"github.com/kilianp07/motorpanel/core/metrics"
)

// Kind identifies the payload carried by an Event.
type Kind string

const (
	KindState    Kind = "state"
	KindFeedback Kind = "feedback"
	KindCommand  Kind = "command"
)

// Event is a single entry of the panel event stream. Exactly one of the
// payload groups is set, according to Kind.
type Event struct {
	Kind Kind      `json:"kind"`
	Time time.Time `json:"time"`

	State    string `json:"state,omitempty"`
	Reason   string `json:"reason,omitempty"`
	LinkLost bool   `json:"link_lost,omitempty"`

	Feedback *Feedback `json:"feedback,omitempty"`
	Command  *Command  `json:"command,omitempty"`
}

// Feedback mirrors a device status report.
type Feedback struct {
	Online   bool `json:"online"`
	Position int  `json:"position"`
}

// Command mirrors a dispatch attempt.
type Command struct {
	Intent  string `json:"intent"`
	Value   int    `json:"value"`
	Outcome string `json:"outcome"`
}

// FromConnection converts a connection event.
func FromConnection(ev metrics.ConnectionEvent) Event {
	return Event{
		Kind:     KindState,
		Time:     ev.Time,
		State:    ev.State.String(),
		Reason:   ev.Reason,
		LinkLost: ev.LinkLost,
	}
}

// FromFeedback converts a device report.
func FromFeedback(ev metrics.FeedbackEvent) Event {
	return Event{
		Kind:     KindFeedback,
		Time:     ev.Time,
		Feedback: &Feedback{Online: ev.Online, Position: ev.Position},
	}
}

// FromCommand converts a dispatch attempt.
func FromCommand(ev metrics.CommandEvent) Event {
	return Event{
		Kind:    KindCommand,
		Time:    ev.Time,
		Command: &Command{Intent: ev.Intent.String(), Value: ev.Value, Outcome: string(ev.Outcome)},
	}
}
