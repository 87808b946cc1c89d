package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/motorpanel/core/dispatch/logging"
	"github.com/kilianp07/motorpanel/core/metrics"
	"github.com/kilianp07/motorpanel/infra/mqtt"
)

type Config struct {
	MQTT       mqtt.Config     `json:"mqtt"`
	Reconnect  ReconnectConfig `json:"reconnect"`
	Metrics    metrics.Config  `json:"metrics"`
	CommandLog logging.Config  `json:"command_log"`
	HTTP       HTTPConfig      `json:"http"`
	Sentry     SentryConfig    `json:"sentry"`
	// Console enables the line-oriented operator console on stdin.
	Console bool `json:"console"`
}

// Default returns a configuration with every default applied, used when no
// file is given.
func Default() *Config {
	var cfg Config
	cfg.SetDefaults()
	return &cfg
}

// SetDefaults applies the defaults of every section.
func (c *Config) SetDefaults() {
	c.MQTT.SetDefaults()
	c.Reconnect.SetDefaults()
	c.CommandLog.SetDefaults()
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.MQTT.Validate(); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	if err := c.Reconnect.Validate(); err != nil {
		return fmt.Errorf("reconnect: %w", err)
	}
	if err := c.CommandLog.Validate(); err != nil {
		return fmt.Errorf("command_log: %w", err)
	}
	for i, s := range c.Metrics.Sinks {
		if s.Type == "" {
			return fmt.Errorf("metrics: sink %d has no type", i)
		}
	}
	return nil
}

// Load reads the YAML or JSON file at path, applies K_ environment overrides
// (K_MQTT__HOST overrides mqtt.host), then defaults and validation. An empty
// path loads the environment only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
