package config

import (
	"fmt"
	"time"
)

// ReconnectConfig drives the caller-side reconnect policy. The session itself
// never reconnects.
type ReconnectConfig struct {
	Enabled           bool `json:"enabled"`
	InitialIntervalMS int  `json:"initial_interval_ms"`
	MaxIntervalMS     int  `json:"max_interval_ms"`
	// MaxElapsedS bounds one reconnect episode; 0 retries forever.
	MaxElapsedS int `json:"max_elapsed_s"`
}

// SetDefaults applies sane defaults.
func (c *ReconnectConfig) SetDefaults() {
	if c.InitialIntervalMS == 0 {
		c.InitialIntervalMS = 500
	}
	if c.MaxIntervalMS == 0 {
		c.MaxIntervalMS = 30000
	}
}

// Validate checks interval consistency.
func (c ReconnectConfig) Validate() error {
	if c.InitialIntervalMS < 0 || c.MaxIntervalMS < 0 || c.MaxElapsedS < 0 {
		return fmt.Errorf("intervals must not be negative")
	}
	if c.MaxIntervalMS < c.InitialIntervalMS {
		return fmt.Errorf("max_interval_ms %d below initial_interval_ms %d", c.MaxIntervalMS, c.InitialIntervalMS)
	}
	return nil
}

func (c ReconnectConfig) InitialInterval() time.Duration {
	return time.Duration(c.InitialIntervalMS) * time.Millisecond
}

func (c ReconnectConfig) MaxInterval() time.Duration {
	return time.Duration(c.MaxIntervalMS) * time.Millisecond
}

func (c ReconnectConfig) MaxElapsed() time.Duration {
	return time.Duration(c.MaxElapsedS) * time.Second
}
