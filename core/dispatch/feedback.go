package dispatch

import (
	"strconv"
	"strings"

	"github.com/kilianp07/motorpanel/core/metrics"
	"github.com/kilianp07/motorpanel/core/model"
)

// Feedback is a status report from the motor firmware. The firmware
// publishes "online" when it connects and the applied position after every
// command it handles.
type Feedback struct {
	Online bool `json:"online"`
	// Position is the last applied value, -1 when the report carried none.
	Position int `json:"position"`
}

// ParseFeedback decodes a status payload.
func ParseFeedback(payload string) (Feedback, bool) {
	p := strings.TrimSpace(payload)
	switch strings.ToLower(p) {
	case "online":
		return Feedback{Online: true, Position: -1}, true
	case "offline":
		return Feedback{Online: false, Position: -1}, true
	}
	v, err := strconv.Atoi(p)
	if err != nil {
		return Feedback{}, false
	}
	return Feedback{Online: true, Position: v}, true
}

// HandleMessage processes an inbound message from the session. Device
// reports on the status topic are forwarded to the feedback observer and the
// metrics sink; echoes of our own commands are only logged.
func (d *CommandDispatcher) HandleMessage(msg model.InboundMessage) {
	switch msg.Topic {
	case d.statusTopic:
		fb, ok := ParseFeedback(msg.Payload)
		if !ok {
			d.logger.Warnf("unparsable status payload %q", msg.Payload)
			return
		}
		if rec, ok := d.metrics.(metrics.FeedbackRecorder); ok {
			if err := rec.RecordFeedback(metrics.FeedbackEvent{Online: fb.Online, Position: fb.Position, Time: d.now()}); err != nil {
				d.logger.Errorf("metrics error: %v", err)
			}
		}
		if d.onFeedback != nil {
			d.onFeedback(fb)
		}
	case model.CommandTopic:
		d.logger.Debugf("echo %s=%s", msg.Topic, msg.Payload)
	default:
		d.logger.Debugf("unhandled topic %s", msg.Topic)
	}
}
