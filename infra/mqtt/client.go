package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/kilianp07/motorpanel/core/model"
)

// NoStatusTopic disables the device status subscription.
const NoStatusTopic = "none"

// Config defines the broker endpoint and the Paho client options.
type Config struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	ClientID string `json:"client_id"`
	// UniqueClientID appends a random suffix so that two panels sharing a
	// configuration do not kick each other off the broker.
	UniqueClientID bool `json:"unique_client_id"`
	// Scheme is one of tcp, ssl, ws or wss.
	Scheme string `json:"scheme"`
	// Path is the websocket path, used with ws and wss only.
	Path       string `json:"path"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	UseTLS     bool   `json:"use_tls"`
	ClientCert string `json:"client_cert"`
	ClientKey  string `json:"client_key"`
	CABundle   string `json:"ca_bundle"`
	AuthMethod string `json:"auth_method"`
	QoS        byte   `json:"qos"`
	// StatusTopic is subscribed for device feedback; "none" disables it.
	StatusTopic string `json:"status_topic"`
	// SubscribeEcho also subscribes to the command topic.
	SubscribeEcho       bool        `json:"subscribe_echo"`
	LWTTopic            string      `json:"lwt_topic"`
	LWTPayload          string      `json:"lwt_payload"`
	LWTQoS              byte        `json:"lwt_qos"`
	LWTRetain           bool        `json:"lwt_retain"`
	KeepAliveSeconds    int         `json:"keep_alive_seconds"`
	ConnectTimeoutMS    int         `json:"connect_timeout_ms"`
	DisconnectQuiesceMS int         `json:"disconnect_quiesce_ms"`
	TLSConfig           *tls.Config `json:"-"`
}

// SetDefaults applies the values used by the web panel.
func (c *Config) SetDefaults() {
	if c.Host == "" {
		c.Host = "10.0.0.42"
	}
	if c.Port == 0 {
		c.Port = 1884
	}
	if c.ClientID == "" {
		c.ClientID = "motor_webapp"
	}
	if c.Scheme == "" {
		c.Scheme = "tcp"
		if c.UseTLS {
			c.Scheme = "ssl"
		}
	}
	if c.StatusTopic == "" {
		c.StatusTopic = model.StatusTopic
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if err := (model.Endpoint{Host: c.Host, Port: c.Port, ClientID: c.ClientID}).Validate(); err != nil {
		return err
	}
	switch c.Scheme {
	case "tcp", "ssl", "ws", "wss":
	default:
		return fmt.Errorf("unsupported mqtt scheme %q", c.Scheme)
	}
	if c.QoS > 2 || c.LWTQoS > 2 {
		return fmt.Errorf("qos must be 0, 1 or 2")
	}
	if c.ConnectTimeoutMS < 0 || c.KeepAliveSeconds < 0 || c.DisconnectQuiesceMS < 0 {
		return fmt.Errorf("mqtt durations must not be negative")
	}
	return nil
}

// Endpoint returns the endpoint described by the configuration. With
// UniqueClientID every call yields a fresh client id.
func (c Config) Endpoint() model.Endpoint {
	id := c.ClientID
	if c.UniqueClientID {
		id = fmt.Sprintf("%s-%s", id, uuid.NewString()[:8])
	}
	return model.Endpoint{Host: c.Host, Port: c.Port, ClientID: id}
}

// ConnectTimeout bounds Connect. Defaults to 5s.
func (c Config) ConnectTimeout() time.Duration {
	if c.ConnectTimeoutMS <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.ConnectTimeoutMS) * time.Millisecond
}

func (c Config) quiesce() uint {
	if c.DisconnectQuiesceMS <= 0 {
		return 250
	}
	return uint(c.DisconnectQuiesceMS)
}

// SubscriptionTopics lists the topics observed once connected.
func (c Config) SubscriptionTopics() []string {
	var topics []string
	if c.StatusTopic != "" && c.StatusTopic != NoStatusTopic {
		topics = append(topics, c.StatusTopic)
	}
	if c.SubscribeEcho {
		topics = append(topics, model.CommandTopic)
	}
	return topics
}

// BrokerURL formats the Paho broker URL for ep.
func (c Config) BrokerURL(ep model.Endpoint) string {
	scheme := c.Scheme
	if scheme == "" {
		scheme = "tcp"
	}
	url := fmt.Sprintf("%s://%s", scheme, ep.Address())
	if (scheme == "ws" || scheme == "wss") && c.Path != "" {
		if c.Path[0] != '/' {
			url += "/"
		}
		url += c.Path
	}
	return url
}

// NewClientOptions builds mqtt client options from Config for ep.
// Automatic reconnection is disabled: reconnecting is the caller's policy.
func NewClientOptions(cfg Config, ep model.Endpoint) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.BrokerURL(ep)).SetClientID(ep.ClientID)
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)
	opts.SetCleanSession(true)
	opts.SetConnectTimeout(cfg.ConnectTimeout())
	if cfg.KeepAliveSeconds > 0 {
		opts.SetKeepAlive(time.Duration(cfg.KeepAliveSeconds) * time.Second)
	}
	if cfg.AuthMethod == "username_password" || cfg.AuthMethod == "both" || cfg.AuthMethod == "" {
		if cfg.Username != "" {
			opts.SetUsername(cfg.Username)
		}
		if cfg.Password != "" {
			opts.SetPassword(cfg.Password)
		}
	}
	if cfg.UseTLS || cfg.Scheme == "ssl" || cfg.Scheme == "wss" {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	if cfg.LWTTopic != "" {
		opts.SetWill(cfg.LWTTopic, cfg.LWTPayload, cfg.LWTQoS, cfg.LWTRetain)
	}
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
// Without client certificates only the CA bundle (or the system pool) is used.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if c.CABundle != "" {
		caBytes, err := os.ReadFile(c.CABundle)
		if err != nil {
			return nil, fmt.Errorf("read ca: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caBytes) {
			return nil, fmt.Errorf("ca bundle %s contains no certificates", c.CABundle)
		}
		cfg.RootCAs = pool
	}
	if c.ClientCert != "" || c.ClientKey != "" {
		if c.ClientCert == "" || c.ClientKey == "" {
			return nil, fmt.Errorf("tls config requires both client_cert and client_key")
		}
		cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
		if err != nil {
			return nil, fmt.Errorf("load cert: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}
	return cfg, nil
}
