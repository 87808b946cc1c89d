package main

import (
	"context"
	"strconv"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	coremetrics "github.com/kilianp07/motorpanel/core/metrics"
	"github.com/kilianp07/motorpanel/core/model"
	"github.com/kilianp07/motorpanel/infra/logger"
)

const publishTimeout = 5 * time.Second

// publisher is the part of paho.Client used to send status reports.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

// SimulatedMotor behaves like the motor firmware: it announces itself with a
// retained "online" on the status topic, applies every value received on the
// command topic and reports the applied value back.
type SimulatedMotor struct {
	Broker   string
	ClientID string
	Strategy ReportStrategy
	Metrics  coremetrics.FeedbackRecorder

	log logger.Logger

	mu       sync.Mutex
	position int
	pulseUS  int
	applied  int
}

// NewSimulatedMotor creates a motor resting at position 0.
func NewSimulatedMotor(broker, clientID string, strat ReportStrategy) *SimulatedMotor {
	if strat == nil {
		strat = AutoReport{}
	}
	return &SimulatedMotor{
		Broker:   broker,
		ClientID: clientID,
		Strategy: strat,
		log:      logger.New("motor-sim"),
		pulseUS:  pulseWidthUS(0),
	}
}

// Position returns the last applied position and its pulse width.
func (m *SimulatedMotor) Position() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position, m.pulseUS
}

// Applied returns how many commands were applied.
func (m *SimulatedMotor) Applied() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applied
}

// Run connects to the broker and serves commands until ctx is done.
func (m *SimulatedMotor) Run(ctx context.Context) error {
	opts := paho.NewClientOptions().
		AddBroker(m.Broker).
		SetClientID(m.ClientID).
		SetAutoReconnect(true).
		SetWill(model.StatusTopic, "offline", 1, true)
	opts.SetOnConnectHandler(func(cli paho.Client) {
		m.announce(cli)
		if token := cli.Subscribe(model.CommandTopic, 0, m.onCommand(ctx, cli)); token.WaitTimeout(publishTimeout) && token.Error() != nil {
			m.log.Errorf("subscribe %s: %v", model.CommandTopic, token.Error())
		}
	})
	cli := paho.NewClient(opts)
	if token := cli.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	m.log.Infof("motor simulator %s connected to %s", m.ClientID, m.Broker)
	<-ctx.Done()
	m.publish(cli, model.StatusTopic, true, "offline")
	cli.Disconnect(250)
	return nil
}

func (m *SimulatedMotor) announce(cli publisher) {
	m.publish(cli, model.StatusTopic, true, "online")
	m.record(metricsOnline(true))
}

func (m *SimulatedMotor) onCommand(ctx context.Context, cli publisher) paho.MessageHandler {
	return func(_ paho.Client, msg paho.Message) {
		m.handle(ctx, cli, msg.Payload())
	}
}

// handle applies a command payload and reports the applied value.
func (m *SimulatedMotor) handle(ctx context.Context, cli publisher, payload []byte) {
	val := parsePosition(payload)
	m.mu.Lock()
	m.position = val
	m.pulseUS = pulseWidthUS(val)
	m.applied++
	pulse := m.pulseUS
	m.mu.Unlock()
	m.log.Debugf("position %d, pulse width %dus", val, pulse)

	m.Strategy.Report(ctx, func() {
		m.publish(cli, model.StatusTopic, false, strconv.Itoa(val))
		m.record(coremetrics.FeedbackEvent{Online: true, Position: val, Time: time.Now()})
	})
}

func (m *SimulatedMotor) publish(cli publisher, topic string, retained bool, payload string) {
	token := cli.Publish(topic, 1, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		m.log.Warnf("publish %s timed out", topic)
		return
	}
	if err := token.Error(); err != nil {
		m.log.Errorf("publish %s: %v", topic, err)
	}
}

func (m *SimulatedMotor) record(ev coremetrics.FeedbackEvent) {
	if m.Metrics == nil {
		return
	}
	if err := m.Metrics.RecordFeedback(ev); err != nil {
		m.log.Warnf("metrics error: %v", err)
	}
}

func metricsOnline(online bool) coremetrics.FeedbackEvent {
	return coremetrics.FeedbackEvent{Online: online, Position: -1, Time: time.Now()}
}
