package mqtt

import (
	"errors"
	"testing"

	"github.com/kilianp07/motorpanel/core/model"
)

func TestListenerMergeCallsBoth(t *testing.T) {
	var a, b []string
	l := Listener{
		OnConnected: func() { a = append(a, "connected") },
		OnMessage:   func(m model.InboundMessage) { a = append(a, m.Payload) },
	}
	o := Listener{
		OnConnected:      func() { b = append(b, "connected") },
		OnConnectionLost: func(err error) { b = append(b, err.Error()) },
	}
	m := l.Merge(o)
	m.OnConnected()
	m.OnMessage(model.InboundMessage{Topic: "t", Payload: "42"})
	m.OnConnectionLost(ErrConnectionLost)
	m.OnStateChange(model.StateLost)
	if len(a) != 2 || a[1] != "42" {
		t.Fatalf("unexpected first listener calls %v", a)
	}
	if len(b) != 2 || b[1] != ErrConnectionLost.Error() {
		t.Fatalf("unexpected second listener calls %v", b)
	}
}

func TestSentinelErrorsDistinct(t *testing.T) {
	errs := []error{ErrNotConnected, ErrConnectTimeout, ErrConnectionLost, ErrConnectAborted}
	for i, e := range errs {
		for j, o := range errs {
			if i != j && errors.Is(e, o) {
				t.Fatalf("%v matches %v", e, o)
			}
		}
	}
}
