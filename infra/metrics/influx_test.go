package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/motorpanel/core/metrics"
	"github.com/kilianp07/motorpanel/core/model"
)

type bodyRecorder struct {
	mu     sync.Mutex
	bodies []string
}

func (b *bodyRecorder) server(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		b.mu.Lock()
		b.bodies = append(b.bodies, strings.TrimSpace(string(data)))
		b.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func (b *bodyRecorder) all() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.bodies...)
}

func TestInfluxSink_RecordCommand(t *testing.T) {
	rec := &bodyRecorder{}
	srv := rec.server(t)
	sink := NewInfluxSink(InfluxConfig{URL: srv.URL, Token: "token", Org: "org", Bucket: "bucket"})
	defer sink.Close()

	now := time.Now()
	ev := coremetrics.CommandEvent{Intent: model.IntentMiddle, Value: 45, Topic: model.CommandTopic, Outcome: coremetrics.OutcomeSent, Time: now}
	if err := sink.RecordCommand(ev); err != nil {
		t.Fatalf("record error: %v", err)
	}
	p := write.NewPointWithMeasurement("motor_command").
		AddTag("intent", "middle").
		AddTag("outcome", "sent").
		AddTag("topic", model.CommandTopic).
		AddField("value", 45).
		SetTime(now)
	expected := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
	bodies := rec.all()
	if len(bodies) != 1 || bodies[0] != expected {
		t.Errorf("unexpected body: %v", bodies)
	}
}

func TestInfluxSink_RecordConnectionAndFeedback(t *testing.T) {
	rec := &bodyRecorder{}
	srv := rec.server(t)
	sink := NewInfluxSink(InfluxConfig{URL: srv.URL + "/api/v2/write", Token: "token", Org: "org", Bucket: "bucket"})
	defer sink.Close()

	now := time.Now()
	if err := sink.RecordConnection(coremetrics.ConnectionEvent{State: model.StateLost, Reason: "EOF", LinkLost: true, Time: now}); err != nil {
		t.Fatalf("connection: %v", err)
	}
	if err := sink.RecordFeedback(coremetrics.FeedbackEvent{Online: true, Position: 90, Time: now}); err != nil {
		t.Fatalf("feedback: %v", err)
	}
	if err := sink.RecordFeedback(coremetrics.FeedbackEvent{Online: true, Position: -1, Time: now}); err != nil {
		t.Fatalf("feedback: %v", err)
	}
	bodies := rec.all()
	if len(bodies) != 3 {
		t.Fatalf("expected 3 writes, got %d", len(bodies))
	}
	if !strings.HasPrefix(bodies[0], "mqtt_connection,state=lost ") || !strings.Contains(bodies[0], `reason="EOF"`) || !strings.Contains(bodies[0], "link_lost=true") {
		t.Errorf("connection point: %s", bodies[0])
	}
	if !strings.Contains(bodies[1], "position=90i") {
		t.Errorf("feedback point: %s", bodies[1])
	}
	if strings.Contains(bodies[2], "position") {
		t.Errorf("online-only report must not carry a position: %s", bodies[2])
	}
}

func TestInfluxSink_WriteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()
	sink := NewInfluxSink(InfluxConfig{URL: srv.URL, Token: "t", Org: "o", Bucket: "b"})
	defer sink.Close()
	if err := sink.RecordCommand(coremetrics.CommandEvent{Intent: model.IntentOff, Time: time.Now()}); err == nil {
		t.Fatal("expected write error")
	}
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(InfluxConfig{URL: srv.URL + "/api/v2/write", Token: "tok", Org: "org", Bucket: "bucket"})
	if _, ok := sink.(*InfluxSink); ok {
		t.Fatalf("expected NopSink on failing health check")
	}
	if !called {
		t.Fatalf("health endpoint not called")
	}
}
