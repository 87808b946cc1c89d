// Command simulator stands in for the ESP32 motor controller so that the
// panel can be exercised without hardware.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	coremetrics "github.com/kilianp07/motorpanel/core/metrics"
	"github.com/kilianp07/motorpanel/infra/logger"
	"github.com/kilianp07/motorpanel/infra/metrics"
)

// Config holds parameters for the simulator.
type Config struct {
	Broker       string
	Count        int
	ReportDelay  time.Duration
	DropRate     float64
	InfluxURL    string
	InfluxToken  string
	InfluxOrg    string
	InfluxBucket string
}

func main() {
	cfg := parseFlags()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sink coremetrics.FeedbackRecorder
	if cfg.InfluxURL != "" {
		s := metrics.NewInfluxSinkWithFallback(metrics.InfluxConfig{
			URL:    cfg.InfluxURL,
			Token:  cfg.InfluxToken,
			Org:    cfg.InfluxOrg,
			Bucket: cfg.InfluxBucket,
		})
		async := coremetrics.NewAsyncSink(s, 0, logger.New("simulator_metrics"))
		defer async.Close()
		sink = async
	}
	log := logger.New("simulator")
	strat := RandomReport{Delay: cfg.ReportDelay, DropRate: cfg.DropRate}

	var wg sync.WaitGroup
	for i := 0; i < cfg.Count; i++ {
		id := "esp32-motor"
		if cfg.Count > 1 {
			id = id + "-" + string(rune('a'+i))
		}
		m := NewSimulatedMotor(cfg.Broker, id, strat)
		m.Metrics = sink
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := m.Run(ctx); err != nil {
				log.Errorf("%s: %v", m.ClientID, err)
			}
		}()
	}
	wg.Wait()
}

func parseFlags() Config {
	var cfg Config
	flag.StringVar(&cfg.Broker, "broker", "tcp://localhost:1883", "MQTT broker URL")
	flag.IntVar(&cfg.Count, "count", 1, "number of simulated controllers")
	flag.DurationVar(&cfg.ReportDelay, "report-delay", 0, "delay before reporting the applied position")
	flag.Float64Var(&cfg.DropRate, "drop-rate", 0, "probability of not reporting a position")
	flag.StringVar(&cfg.InfluxURL, "influx-url", "", "InfluxDB URL")
	flag.StringVar(&cfg.InfluxToken, "influx-token", "", "InfluxDB token")
	flag.StringVar(&cfg.InfluxOrg, "influx-org", "", "InfluxDB organization")
	flag.StringVar(&cfg.InfluxBucket, "influx-bucket", "", "InfluxDB bucket")
	flag.Parse()
	return cfg
}
