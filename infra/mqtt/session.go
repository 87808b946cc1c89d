package mqtt

import (
	"context"
	"errors"
	"fmt"
	"sync"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/motorpanel/core/model"
	"github.com/kilianp07/motorpanel/core/monitoring"
	coremqtt "github.com/kilianp07/motorpanel/core/mqtt"
	"github.com/kilianp07/motorpanel/infra/logger"
)

// pahoClient is the subset of paho.Client used by the session.
type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// PahoSession implements core/mqtt.Session on top of Eclipse Paho.
//
// Every Connect attempt gets a new generation number. Disconnect bumps the
// generation, so completions and callbacks belonging to an older attempt are
// discarded.
type PahoSession struct {
	cfg      Config
	listener coremqtt.Listener
	logger   logger.Logger

	mu    sync.Mutex
	state model.ConnectionState
	cli   pahoClient
	gen   uint64
	abort chan struct{}
}

var _ coremqtt.Session = (*PahoSession)(nil)

// NewPahoSession creates a disconnected session. cfg must already carry its
// defaults.
func NewPahoSession(cfg Config, l coremqtt.Listener, log logger.Logger) (*PahoSession, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.New("mqtt_session")
	}
	return &PahoSession{cfg: cfg, listener: l, logger: log, state: model.StateDisconnected}, nil
}

// State returns the current connection state.
func (s *PahoSession) State() model.ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Connect dials the broker at ep and blocks until the broker accepts the
// connection, the connect timeout expires, ctx is done or Disconnect is
// called. It is a no-op while connecting or connected.
func (s *PahoSession) Connect(ctx context.Context, ep model.Endpoint) error {
	if err := ep.Validate(); err != nil {
		return err
	}
	opts, err := NewClientOptions(s.cfg, ep)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if st := s.state; st == model.StateConnecting || st == model.StateConnected {
		s.mu.Unlock()
		s.logger.Debugf("connect ignored, session is %s", st)
		return nil
	}
	prev := s.state
	s.gen++
	gen := s.gen
	abort := make(chan struct{})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) { s.handleLost(gen, err) })
	cli := newMQTTClient(opts)
	s.cli = cli
	s.abort = abort
	s.state = model.StateConnecting
	s.mu.Unlock()
	s.notifyState(model.StateConnecting)
	s.logger.Infof("connecting to %s as %s", s.cfg.BrokerURL(ep), ep.ClientID)

	timeout := s.cfg.ConnectTimeout()
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	token := cli.Connect()
	var cerr error
	select {
	case <-token.Done():
		cerr = token.Error()
	case <-abort:
		cerr = coremqtt.ErrConnectAborted
	case <-cctx.Done():
		if errors.Is(cctx.Err(), context.DeadlineExceeded) {
			cerr = fmt.Errorf("%w after %s", coremqtt.ErrConnectTimeout, timeout)
		} else {
			cerr = cctx.Err()
		}
	}

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		s.logger.Infof("connect to %s aborted by disconnect", ep.Address())
		return coremqtt.ErrConnectAborted
	}
	s.abort = nil
	if cerr != nil {
		next := model.StateDisconnected
		if prev == model.StateLost {
			next = model.StateLost
		}
		s.state = next
		s.cli = nil
		s.mu.Unlock()
		cli.Disconnect(0)
		reason := fmt.Errorf("connect %s: %w", ep.Address(), cerr)
		s.logger.Errorf("%v", reason)
		monitoring.CaptureException(reason, map[string]string{"module": "mqtt", "op": "connect"})
		s.notifyState(next)
		if s.listener.OnConnectionLost != nil {
			s.listener.OnConnectionLost(reason)
		}
		return reason
	}
	s.state = model.StateConnected
	s.mu.Unlock()

	s.logger.Infof("MQTT connected")
	s.notifyState(model.StateConnected)
	// Disconnect may have run since the unlock; its generation bump wins.
	if !s.current(gen) {
		return coremqtt.ErrConnectAborted
	}
	if s.listener.OnConnected != nil {
		s.listener.OnConnected()
	}
	s.subscribe(gen, cli)
	return nil
}

func (s *PahoSession) subscribe(gen uint64, cli pahoClient) {
	for _, topic := range s.cfg.SubscriptionTopics() {
		token := cli.Subscribe(topic, s.cfg.QoS, s.messageHandler(gen))
		if !token.WaitTimeout(s.cfg.ConnectTimeout()) {
			s.logger.Warnf("subscribe %s: no suback before timeout", topic)
			continue
		}
		if err := token.Error(); err != nil {
			s.logger.Errorf("subscribe error: %v", err)
			continue
		}
		s.logger.Debugf("subscribed to %s", topic)
	}
}

func (s *PahoSession) messageHandler(gen uint64) paho.MessageHandler {
	return func(_ paho.Client, m paho.Message) {
		if !s.current(gen) {
			return
		}
		if s.listener.OnMessage != nil {
			s.listener.OnMessage(model.InboundMessage{Topic: m.Topic(), Payload: string(m.Payload())})
		}
	}
}

func (s *PahoSession) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen == gen && s.state == model.StateConnected
}

func (s *PahoSession) handleLost(gen uint64, err error) {
	s.mu.Lock()
	if s.gen != gen || s.state != model.StateConnected {
		s.mu.Unlock()
		return
	}
	s.state = model.StateLost
	s.cli = nil
	s.mu.Unlock()

	if err == nil {
		err = errors.New("broker closed the connection")
	}
	reason := fmt.Errorf("%w: %v", coremqtt.ErrConnectionLost, err)
	s.logger.Errorf("%v", reason)
	monitoring.CaptureException(reason, map[string]string{"module": "mqtt", "op": "connection"})
	s.notifyState(model.StateLost)
	if s.listener.OnConnectionLost != nil {
		s.listener.OnConnectionLost(reason)
	}
}

// Publish hands payload to the transport. It does not wait for the broker:
// with QoS 0 delivery is at most once.
func (s *PahoSession) Publish(topic, payload string) error {
	s.mu.Lock()
	state, cli := s.state, s.cli
	s.mu.Unlock()
	if state != model.StateConnected || cli == nil {
		return coremqtt.ErrNotConnected
	}
	token := cli.Publish(topic, s.cfg.QoS, false, payload)
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			if errors.Is(err, paho.ErrNotConnected) {
				return fmt.Errorf("publish %s: %w", topic, coremqtt.ErrNotConnected)
			}
			monitoring.CaptureException(err, map[string]string{"module": "mqtt", "topic": topic})
			return fmt.Errorf("publish %s: %w", topic, err)
		}
	default:
	}
	s.logger.Debugf("published %s=%s", topic, payload)
	return nil
}

// Disconnect closes the connection and aborts an in-flight Connect. The
// state is Disconnected when it returns.
func (s *PahoSession) Disconnect() {
	s.mu.Lock()
	s.gen++
	cli := s.cli
	s.cli = nil
	if s.abort != nil {
		close(s.abort)
		s.abort = nil
	}
	changed := s.state != model.StateDisconnected
	s.state = model.StateDisconnected
	s.mu.Unlock()

	if cli != nil {
		cli.Disconnect(s.cfg.quiesce())
	}
	if changed {
		s.logger.Infof("MQTT disconnected")
		s.notifyState(model.StateDisconnected)
	}
}

func (s *PahoSession) notifyState(st model.ConnectionState) {
	if s.listener.OnStateChange != nil {
		s.listener.OnStateChange(st)
	}
}
