package mqtt

import (
	"context"

	"github.com/kilianp07/motorpanel/core/model"
)

// Publisher sends a payload on a topic.
type Publisher interface {
	Publish(topic, payload string) error
}

// Session owns a single logical connection to an MQTT broker.
type Session interface {
	Publisher

	// Connect opens the connection. It is a no-op when the session is
	// already connecting or connected. The call is bounded by ctx and by the
	// session's connect timeout.
	Connect(ctx context.Context, ep model.Endpoint) error

	// Disconnect closes the connection. It is safe to call in any state,
	// including while Connect is in flight.
	Disconnect()

	// State returns the current connection state.
	State() model.ConnectionState
}

// Listener holds the event slots fired by a Session. Nil slots are skipped.
// Callbacks run on transport goroutines and must not block.
type Listener struct {
	OnConnected      func()
	OnConnectionLost func(reason error)
	OnMessage        func(msg model.InboundMessage)
	OnStateChange    func(state model.ConnectionState)
}

// Merge returns a Listener invoking l then o for every event.
func (l Listener) Merge(o Listener) Listener {
	return Listener{
		OnConnected: func() {
			if l.OnConnected != nil {
				l.OnConnected()
			}
			if o.OnConnected != nil {
				o.OnConnected()
			}
		},
		OnConnectionLost: func(reason error) {
			if l.OnConnectionLost != nil {
				l.OnConnectionLost(reason)
			}
			if o.OnConnectionLost != nil {
				o.OnConnectionLost(reason)
			}
		},
		OnMessage: func(msg model.InboundMessage) {
			if l.OnMessage != nil {
				l.OnMessage(msg)
			}
			if o.OnMessage != nil {
				o.OnMessage(msg)
			}
		},
		OnStateChange: func(s model.ConnectionState) {
			if l.OnStateChange != nil {
				l.OnStateChange(s)
			}
			if o.OnStateChange != nil {
				o.OnStateChange(s)
			}
		},
	}
}
