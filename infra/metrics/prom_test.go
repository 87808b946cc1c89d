package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	coremetrics "github.com/kilianp07/motorpanel/core/metrics"
	"github.com/kilianp07/motorpanel/core/model"
)

func TestPromSink_RecordCommand(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	_ = sink.RecordCommand(coremetrics.CommandEvent{Intent: model.IntentMiddle, Value: 45, Outcome: coremetrics.OutcomeSent})
	_ = sink.RecordCommand(coremetrics.CommandEvent{Intent: model.IntentMiddle, Value: 45, Outcome: coremetrics.OutcomeSent})
	_ = sink.RecordCommand(coremetrics.CommandEvent{Intent: model.IntentCustom, Value: 101, Outcome: coremetrics.OutcomeInvalidInput})

	if v := testutil.ToFloat64(sink.commands.WithLabelValues("middle", "sent")); v != 2 {
		t.Errorf("middle/sent = %v, want 2", v)
	}
	if v := testutil.ToFloat64(sink.commands.WithLabelValues("custom", "invalid_input")); v != 1 {
		t.Errorf("custom/invalid_input = %v, want 1", v)
	}
}

func TestPromSink_RecordConnection(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	_ = sink.RecordConnection(coremetrics.ConnectionEvent{State: model.StateConnected})
	if v := testutil.ToFloat64(sink.state.WithLabelValues("connected")); v != 1 {
		t.Fatalf("connected gauge = %v", v)
	}
	_ = sink.RecordConnection(coremetrics.ConnectionEvent{State: model.StateLost, Reason: "EOF", LinkLost: true})
	// a failed reconnect keeps the session lost without a new drop
	_ = sink.RecordConnection(coremetrics.ConnectionEvent{State: model.StateLost, Reason: "refused"})
	if v := testutil.ToFloat64(sink.state.WithLabelValues("connected")); v != 0 {
		t.Errorf("connected gauge after loss = %v", v)
	}
	if v := testutil.ToFloat64(sink.state.WithLabelValues("lost")); v != 1 {
		t.Errorf("lost gauge = %v", v)
	}
	if v := testutil.ToFloat64(sink.lost); v != 1 {
		t.Errorf("lost counter = %v", v)
	}
}

func TestPromSink_RecordFeedback(t *testing.T) {
	sink, err := NewPromSinkWithRegistry(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	_ = sink.RecordFeedback(coremetrics.FeedbackEvent{Online: true, Position: 90})
	_ = sink.RecordFeedback(coremetrics.FeedbackEvent{Online: true, Position: -1})
	if v := testutil.ToFloat64(sink.position); v != 90 {
		t.Errorf("position = %v, want 90", v)
	}
	if v := testutil.ToFloat64(sink.online); v != 1 {
		t.Errorf("online = %v", v)
	}
	_ = sink.RecordFeedback(coremetrics.FeedbackEvent{Online: false, Position: -1})
	if v := testutil.ToFloat64(sink.online); v != 0 {
		t.Errorf("online after offline report = %v", v)
	}
}

func TestPromSink_SharedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("first sink: %v", err)
	}
	b, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("second sink: %v", err)
	}
	_ = a.RecordCommand(coremetrics.CommandEvent{Intent: model.IntentOff, Outcome: coremetrics.OutcomeSent})
	_ = b.RecordCommand(coremetrics.CommandEvent{Intent: model.IntentOff, Outcome: coremetrics.OutcomeSent})
	if v := testutil.ToFloat64(b.commands.WithLabelValues("off", "sent")); v != 2 {
		t.Errorf("shared counter = %v, want 2", v)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	_ = sink.RecordCommand(coremetrics.CommandEvent{Intent: model.IntentRight, Outcome: coremetrics.OutcomeNotConnected})

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	want := `motor_commands_total{intent="right",outcome="not_connected"} 1`
	if !strings.Contains(string(body), want) {
		t.Errorf("metrics output missing %q", want)
	}
	if !strings.Contains(string(body), `mqtt_connection_state{state="disconnected"} 0`) {
		t.Error("state gauge not initialised")
	}
}
