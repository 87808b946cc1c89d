package app

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/kilianp07/motorpanel/config"
	"github.com/kilianp07/motorpanel/core/events"
	"github.com/kilianp07/motorpanel/core/logger"
	"github.com/kilianp07/motorpanel/core/model"
	coremqtt "github.com/kilianp07/motorpanel/core/mqtt"
)

// Connector is the part of the session driven by the reconnect policy.
type Connector interface {
	Connect(ctx context.Context, ep model.Endpoint) error
	State() model.ConnectionState
}

// Reconnector re-establishes the session with exponential backoff after the
// link dropped or the first connect failed. The session never reconnects on
// its own.
type Reconnector struct {
	session    Connector
	endpoint   func() model.Endpoint
	log        logger.Logger
	trigger    chan struct{}
	newBackOff func() backoff.BackOff
}

// NewReconnector creates a policy connecting s to the endpoint returned by
// endpoint. endpoint is called before every attempt.
func NewReconnector(s Connector, endpoint func() model.Endpoint, cfg config.ReconnectConfig, log logger.Logger) *Reconnector {
	return &Reconnector{
		session:  s,
		endpoint: endpoint,
		log:      log,
		trigger:  make(chan struct{}, 1),
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = cfg.InitialInterval()
			b.MaxInterval = cfg.MaxInterval()
			b.MaxElapsedTime = cfg.MaxElapsed()
			b.Reset()
			return b
		},
	}
}

// Trigger requests a reconnect episode. Pending requests coalesce.
func (r *Reconnector) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// Run starts an episode on every Trigger and on every state event reporting
// a dropped link, until ctx is done.
func (r *Reconnector) Run(ctx context.Context, evs <-chan events.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.trigger:
		case ev, ok := <-evs:
			if !ok {
				evs = nil
				continue
			}
			if ev.Kind != events.KindState || !ev.LinkLost {
				continue
			}
		}
		if err := r.Reconnect(ctx); err != nil && ctx.Err() == nil {
			r.log.Errorf("reconnect gave up: %v", err)
		}
	}
}

// Reconnect retries Connect until the session is connected, the backoff
// gives up, ctx is done or a Disconnect aborts an attempt.
func (r *Reconnector) Reconnect(ctx context.Context) error {
	attempts := 0
	op := func() error {
		switch r.session.State() {
		case model.StateConnected, model.StateConnecting:
			return nil
		}
		attempts++
		err := r.session.Connect(ctx, r.endpoint())
		if errors.Is(err, coremqtt.ErrConnectAborted) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, next time.Duration) {
		r.log.Warnf("reconnect attempt %d failed: %v; retrying in %s", attempts, err, next)
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(r.newBackOff(), ctx), notify); err != nil {
		return err
	}
	if attempts > 0 {
		r.log.Infof("reconnected after %d attempt(s)", attempts)
	}
	return nil
}
