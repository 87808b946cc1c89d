package config

import (
	"os"
	"path/filepath"
	"testing"
)

//nolint:gocyclo
func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `mqtt:
  host: "broker.local"
  port: 1884
  client_id: "panel"
  scheme: "ws"
  path: "/mqtt"
  username: "user"
  password: "pass"
reconnect:
  enabled: true
  initial_interval_ms: 200
metrics:
  prometheus_addr: ":9100"
  sinks:
    - type: "nop"
command_log:
  backend: "jsonl"
http:
  addr: ":8080"
console: true
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"host", cfg.MQTT.Host, "broker.local"},
		{"port", cfg.MQTT.Port, 1884},
		{"client_id", cfg.MQTT.ClientID, "panel"},
		{"scheme", cfg.MQTT.Scheme, "ws"},
		{"path", cfg.MQTT.Path, "/mqtt"},
		{"username", cfg.MQTT.Username, "user"},
		{"password", cfg.MQTT.Password, "pass"},
		{"reconnect.enabled", cfg.Reconnect.Enabled, true},
		{"reconnect.initial", cfg.Reconnect.InitialIntervalMS, 200},
		{"reconnect.max default", cfg.Reconnect.MaxIntervalMS, 30000},
		{"metrics_sink", len(cfg.Metrics.Sinks) == 1 && cfg.Metrics.Sinks[0].Type == "nop", true},
		{"prometheus_addr", cfg.Metrics.PrometheusAddr, ":9100"},
		{"command_log.backend", cfg.CommandLog.Backend, "jsonl"},
		{"command_log.path default", cfg.CommandLog.Path, "commands.jsonl"},
		{"http.addr", cfg.HTTP.Addr, ":8080"},
		{"console", cfg.Console, true},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s mismatch: %v", c.name, c.got)
		}
	}
}

func TestLoadJSONWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{"mqtt":{"host":"a","client_id":"c"}}`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("K_MQTT__HOST", "b")
	t.Setenv("K_MQTT__PORT", "1999")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.MQTT.Host != "b" || cfg.MQTT.Port != 1999 {
		t.Fatalf("env override not applied: %s:%d", cfg.MQTT.Host, cfg.MQTT.Port)
	}
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.MQTT.Host != "10.0.0.42" || cfg.MQTT.Port != 1884 || cfg.MQTT.ClientID != "motor_webapp" {
		t.Errorf("unexpected mqtt defaults: %+v", cfg.MQTT)
	}
	if cfg.CommandLog.Backend != "none" {
		t.Errorf("command log should default to none, got %s", cfg.CommandLog.Backend)
	}
	if cfg.Reconnect.Enabled {
		t.Error("reconnect must be opt-in")
	}
}

func TestLoadRejects(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"bad.toml":     "mqtt: {}",
		"scheme.yaml":  "mqtt:\n  scheme: quic\n",
		"backend.yaml": "command_log:\n  backend: redis\n",
		"backoff.yaml": "reconnect:\n  initial_interval_ms: 5000\n  max_interval_ms: 100\n",
		"sink.yaml":    "metrics:\n  sinks:\n    - conf: {}\n",
	}
	for name, data := range cases {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		if _, err := Load(path); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
