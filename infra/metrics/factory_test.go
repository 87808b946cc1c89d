package metrics

import (
	"testing"

	"github.com/kilianp07/motorpanel/core/factory"
	coremetrics "github.com/kilianp07/motorpanel/core/metrics"
)

func TestFactory_InfluxFallsBackWhenUnreachable(t *testing.T) {
	s, err := coremetrics.NewMetricsSink([]factory.ModuleConfig{{
		Type: "influx",
		Conf: map[string]any{"url": "http://127.0.0.1:1", "token": "t", "org": "o", "bucket": "b"},
	}})
	if err != nil {
		t.Fatalf("create influx: %v", err)
	}
	if _, ok := s.(coremetrics.NopSink); !ok {
		t.Fatalf("expected NopSink, got %T", s)
	}
}

func TestFactory_Prometheus(t *testing.T) {
	s, err := coremetrics.NewMetricsSink([]factory.ModuleConfig{{Type: "prometheus"}, {Type: "nop"}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	m, ok := s.(*coremetrics.MultiSink)
	if !ok {
		t.Fatalf("expected MultiSink, got %T", s)
	}
	if _, ok := m.Sinks[0].(*PromSink); !ok {
		t.Fatalf("expected PromSink first, got %T", m.Sinks[0])
	}
}
