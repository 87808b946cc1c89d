package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/motorpanel/core/metrics"
	"github.com/kilianp07/motorpanel/core/model"
)

var connectionStates = []model.ConnectionState{
	model.StateDisconnected,
	model.StateConnecting,
	model.StateConnected,
	model.StateLost,
}

// PromSink records command and session events in Prometheus metrics.
type PromSink struct {
	commands *prometheus.CounterVec
	state    *prometheus.GaugeVec
	lost     prometheus.Counter
	position prometheus.Gauge
	online   prometheus.Gauge
}

var (
	_ coremetrics.MetricsSink        = (*PromSink)(nil)
	_ coremetrics.ConnectionRecorder = (*PromSink)(nil)
	_ coremetrics.FeedbackRecorder   = (*PromSink)(nil)
)

// NewPromSink registers the panel metrics on the default Prometheus registerer.
// The /metrics endpoint is served separately by StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "motor_commands_total",
			Help: "Total number of motor command attempts",
		}, []string{"intent", "outcome"}),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mqtt_connection_state",
			Help: "Current MQTT session state (1 for the active state)",
		}, []string{"state"}),
		lost: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mqtt_connection_lost_total",
			Help: "Number of times the broker connection was lost",
		}),
		position: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "motor_reported_position",
			Help: "Last position reported by the device",
		}),
		online: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "motor_device_online",
			Help: "Whether the device last reported itself online",
		}),
	}
	var err error
	if s.commands, err = register(reg, s.commands); err != nil {
		return nil, err
	}
	if s.state, err = register(reg, s.state); err != nil {
		return nil, err
	}
	if s.lost, err = register(reg, s.lost); err != nil {
		return nil, err
	}
	if s.position, err = register(reg, s.position); err != nil {
		return nil, err
	}
	if s.online, err = register(reg, s.online); err != nil {
		return nil, err
	}
	for _, st := range connectionStates {
		s.state.WithLabelValues(st.String()).Set(0)
	}
	return s, nil
}

// register reuses an already registered collector of the same shape so that
// several sinks can share the default registry.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordCommand increments the command counter.
func (s *PromSink) RecordCommand(ev coremetrics.CommandEvent) error {
	s.commands.WithLabelValues(ev.Intent.String(), string(ev.Outcome)).Inc()
	return nil
}

// RecordConnection flags the active state and counts losses.
func (s *PromSink) RecordConnection(ev coremetrics.ConnectionEvent) error {
	for _, st := range connectionStates {
		v := 0.0
		if st == ev.State {
			v = 1
		}
		s.state.WithLabelValues(st.String()).Set(v)
	}
	if ev.LinkLost {
		s.lost.Inc()
	}
	return nil
}

// RecordFeedback stores the last device report.
func (s *PromSink) RecordFeedback(ev coremetrics.FeedbackEvent) error {
	online := 0.0
	if ev.Online {
		online = 1
	}
	s.online.Set(online)
	if ev.Position >= 0 {
		s.position.Set(float64(ev.Position))
	}
	return nil
}
