package metrics

import (
	"context"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/motorpanel/core/metrics"
	"github.com/kilianp07/motorpanel/core/model"
	"github.com/kilianp07/motorpanel/infra/logger"
)

const influxWriteTimeout = 5 * time.Second

// InfluxConfig locates the InfluxDB bucket receiving panel events.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// InfluxSink writes panel events to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

var (
	_ coremetrics.MetricsSink        = (*InfluxSink)(nil)
	_ coremetrics.ConnectionRecorder = (*InfluxSink)(nil)
	_ coremetrics.FeedbackRecorder   = (*InfluxSink)(nil)
)

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: influxWriteTimeout}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a NopSink
// if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), influxWriteTimeout)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordCommand writes one motor_command point per attempt.
func (s *InfluxSink) RecordCommand(ev coremetrics.CommandEvent) error {
	p := write.NewPointWithMeasurement("motor_command").
		AddTag("intent", ev.Intent.String()).
		AddTag("outcome", string(ev.Outcome)).
		AddTag("topic", ev.Topic).
		AddField("value", ev.Value).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordConnection writes a mqtt_connection point per state transition.
func (s *InfluxSink) RecordConnection(ev coremetrics.ConnectionEvent) error {
	p := write.NewPointWithMeasurement("mqtt_connection").
		AddTag("state", ev.State.String()).
		AddField("connected", ev.State == model.StateConnected).
		AddField("link_lost", ev.LinkLost)
	if ev.Reason != "" {
		p = p.AddField("reason", ev.Reason)
	}
	return s.write(p.SetTime(ev.Time))
}

// RecordFeedback writes the device report.
func (s *InfluxSink) RecordFeedback(ev coremetrics.FeedbackEvent) error {
	p := write.NewPointWithMeasurement("motor_status").
		AddField("online", ev.Online)
	if ev.Position >= 0 {
		p = p.AddField("position", ev.Position)
	}
	return s.write(p.SetTime(ev.Time))
}

func (s *InfluxSink) write(p *write.Point) error {
	ctx, cancel := context.WithTimeout(context.Background(), influxWriteTimeout)
	defer cancel()
	if err := s.writeAPI.WritePoint(ctx, p); err != nil {
		s.log.Warnf("influx write %s: %v", p.Name(), err)
		return err
	}
	return nil
}

// Close releases the underlying client.
func (s *InfluxSink) Close() {
	s.client.Close()
}
