package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kilianp07/motorpanel/api/panel"
	"github.com/kilianp07/motorpanel/config"
	"github.com/kilianp07/motorpanel/core/dispatch"
	"github.com/kilianp07/motorpanel/core/dispatch/logging"
	"github.com/kilianp07/motorpanel/core/events"
	coremetrics "github.com/kilianp07/motorpanel/core/metrics"
	"github.com/kilianp07/motorpanel/core/model"
	coremon "github.com/kilianp07/motorpanel/core/monitoring"
	coremqtt "github.com/kilianp07/motorpanel/core/mqtt"
	"github.com/kilianp07/motorpanel/infra/logger"
	"github.com/kilianp07/motorpanel/infra/metrics"
	"github.com/kilianp07/motorpanel/infra/monitoring"
	"github.com/kilianp07/motorpanel/infra/mqtt"
	"github.com/kilianp07/motorpanel/internal/eventbus"
)

// Service owns the MQTT session and wires the dispatcher, the command log,
// the metrics sinks and the operator surfaces around it.
type Service struct {
	Session    *mqtt.PahoSession
	Dispatcher *dispatch.CommandDispatcher
	Events     *eventbus.Bus[events.Event]
	Store      logging.CommandStore

	// In and Out back the operator console.
	In  io.Reader
	Out io.Writer

	cfg       *config.Config
	sink      coremetrics.MetricsSink
	backends  *coremetrics.AsyncSink
	reconnect *Reconnector
	log       logger.Logger
}

// New creates a Service from the configuration. Nothing is connected yet.
func New(cfg *config.Config) (*Service, error) {
	log := logger.New("service")

	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)

	configured, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	fileStore, err := logging.NewStore(cfg.CommandLog)
	if err != nil {
		return nil, fmt.Errorf("command log: %w", err)
	}

	// The bus feeds the reconnector and the operator surfaces, so it is
	// served first and never waits on the configured backends.
	bus := eventbus.New[events.Event](0)
	async := coremetrics.NewAsyncSink(configured, 0, logger.New("metrics"))
	sink := coremetrics.NewMultiSink(NewEventSink(bus), async)
	store := logging.NewAsyncStore(fileStore, 0, logger.New("command_log"))

	s := &Service{Events: bus, Store: store, cfg: cfg, sink: sink, backends: async, log: log}
	session, err := mqtt.NewPahoSession(cfg.MQTT, s.listener(), logger.New("mqtt"))
	if err != nil {
		async.Close()
		_ = store.Close()
		return nil, fmt.Errorf("mqtt session: %w", err)
	}
	d, err := dispatch.NewCommandDispatcher(session, logger.New("dispatcher"),
		dispatch.WithMetrics(sink),
		dispatch.WithCommandStore(store),
		dispatch.WithStatusTopic(cfg.MQTT.StatusTopic),
	)
	if err != nil {
		async.Close()
		_ = store.Close()
		return nil, fmt.Errorf("dispatcher: %w", err)
	}
	s.Session = session
	s.Dispatcher = d
	s.reconnect = NewReconnector(session, cfg.MQTT.Endpoint, cfg.Reconnect, logger.New("reconnect"))
	return s, nil
}

// listener turns session callbacks into connection events and routes inbound
// messages to the dispatcher. A Lost transition is reported through
// OnConnectionLost, which carries the reason.
func (s *Service) listener() coremqtt.Listener {
	return coremqtt.Listener{
		OnStateChange: func(st model.ConnectionState) {
			if st == model.StateLost {
				return
			}
			s.recordConnection(coremetrics.ConnectionEvent{State: st})
		},
		OnConnectionLost: func(reason error) {
			ev := coremetrics.ConnectionEvent{State: s.Session.State(), Reason: reason.Error()}
			if errors.Is(reason, coremqtt.ErrConnectionLost) {
				ev.State = model.StateLost
				ev.LinkLost = true
			}
			s.recordConnection(ev)
		},
		OnMessage: func(m model.InboundMessage) {
			s.Dispatcher.HandleMessage(m)
		},
	}
}

func (s *Service) recordConnection(ev coremetrics.ConnectionEvent) {
	ev.Time = time.Now()
	rec, ok := s.sink.(coremetrics.ConnectionRecorder)
	if !ok {
		return
	}
	if err := rec.RecordConnection(ev); err != nil {
		s.log.Errorf("metrics error: %v", err)
	}
}

// Connect opens the session with the configured endpoint.
func (s *Service) Connect(ctx context.Context) error {
	return s.Session.Connect(ctx, s.cfg.MQTT.Endpoint())
}

// Run connects and serves the configured surfaces until ctx is cancelled or
// the console operator quits. A failed first connect is not fatal: the panel
// keeps reporting the state and, when enabled, the reconnect policy retries.
func (s *Service) Run(ctx context.Context) error {
	defer coremon.Recover()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if s.cfg.Metrics.PrometheusAddr != "" && s.cfg.Metrics.HasSink("prometheus") {
		go func() {
			if err := metrics.StartPromServer(ctx, s.cfg.Metrics.PrometheusAddr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	if s.cfg.Reconnect.Enabled {
		go s.reconnect.Run(ctx, s.Events.Subscribe())
	}
	if s.cfg.HTTP.Addr != "" {
		go func() {
			if err := s.serveHTTP(ctx); err != nil {
				s.log.Errorf("http server: %v", err)
				cancel()
			}
		}()
	}

	if err := s.Connect(ctx); err != nil {
		s.log.Warnf("initial connect failed: %v", err)
		if s.cfg.Reconnect.Enabled {
			s.reconnect.Trigger()
		}
	}

	if s.cfg.Console && s.In != nil && s.Out != nil {
		c := NewConsole(s.In, s.Out, s.Dispatcher, s.Session)
		if err := c.Run(ctx, s.Events.Subscribe()); err != nil {
			s.log.Errorf("console: %v", err)
		}
		cancel()
	}

	<-ctx.Done()
	s.Session.Disconnect()
	return nil
}

// Handler returns the panel HTTP API bound to this service.
func (s *Service) Handler() http.Handler {
	return panel.NewRouter(panel.Deps{
		Commander:      s.Dispatcher,
		State:          s.Session,
		Store:          s.Store,
		Events:         s.Events,
		Logger:         logger.New("http"),
		Token:          s.cfg.HTTP.Token,
		AllowedOrigins: s.cfg.HTTP.AllowedOrigins,
	})
}

func (s *Service) serveHTTP(ctx context.Context) error {
	srv := &http.Server{Addr: s.cfg.HTTP.Addr, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Warnf("http shutdown: %v", err)
		}
	}()
	s.log.Infof("panel API on %s", s.cfg.HTTP.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Send connects, dispatches a single intent and disconnects. The disconnect
// quiesce period lets Paho flush the publish.
func (s *Service) Send(ctx context.Context, intent model.Intent, value int) error {
	if intent == model.IntentCustom {
		if err := model.ValidateValue(value); err != nil {
			return err
		}
	}
	if err := s.Connect(ctx); err != nil {
		return err
	}
	defer s.Session.Disconnect()
	return s.Dispatcher.Dispatch(intent, value)
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.Session.Disconnect()
	s.backends.Close()
	s.Events.Close()
	coremon.Flush(2 * time.Second)
	return s.Store.Close()
}
