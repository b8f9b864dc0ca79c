// Package config loads and validates the tank-monitor YAML configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/tank-monitor/internal/gpio"
)

type Config struct {
	Monitor MonitorConfig `yaml:"monitor"`
}

type MonitorConfig struct {
	Channels  []ChannelConfig `yaml:"channels"`
	Poll      PollConfig      `yaml:"poll"`
	Clock     ClockConfig     `yaml:"clock"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	HTTP      HTTPConfig      `yaml:"http"`
	Update    UpdateConfig    `yaml:"update"`
	Heartbeat HeartbeatConfig `yaml:"heartbeat"`
}

// ---- CHANNELS ----

type ChannelConfig struct {
	Pin    int  `yaml:"pin"`    // BCM pin number
	Invert bool `yaml:"invert"` // electrical sense opposite to "asserted = wet"
}

// ---- POLL ----

type PollConfig struct {
	IntervalMs int `yaml:"interval_ms"`
}

// ---- CLOCK ----

type ClockConfig struct {
	NTPServer     string `yaml:"ntp_server"`
	ResyncShortMs int    `yaml:"resync_short_ms"` // while untrusted
	ResyncLongMs  int    `yaml:"resync_long_ms"`  // once trusted
	MinValidEpoch int64  `yaml:"min_valid_epoch"` // 0 = built-in default
}

// ---- MQTT ----

type MQTTConfig struct {
	Broker string `yaml:"broker"` // empty = MQTT disabled
}

// ---- HTTP ----

type HTTPConfig struct {
	Addr string `yaml:"addr"` // empty = HTTP disabled
}

// ---- UPDATE ----

type UpdateConfig struct {
	ManifestURL string `yaml:"manifest_url"` // empty = updates disabled
	TimeoutMs   int    `yaml:"timeout_ms"`
	// InsecureTLS disables certificate validation on the update
	// transport. Defaults to true: the update source is trusted by
	// address, not by certificate chain. Set to false to require
	// valid certificates.
	InsecureTLS *bool  `yaml:"insecure_tls"`
	StagingPath string `yaml:"staging_path"`
}

// ---- HEARTBEAT ----

type HeartbeatConfig struct {
	IntervalMs int `yaml:"interval_ms"` // 0 = disabled
}

// Load reads and decodes the YAML file at path, then applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// Default returns the built-in configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	m := &cfg.Monitor
	if len(m.Channels) == 0 {
		for _, pin := range gpio.DefaultPins {
			m.Channels = append(m.Channels, ChannelConfig{Pin: pin})
		}
	}
	if m.Poll.IntervalMs == 0 {
		m.Poll.IntervalMs = 1000
	}
	if m.Clock.ResyncShortMs == 0 {
		m.Clock.ResyncShortMs = 30_000
	}
	if m.Clock.ResyncLongMs == 0 {
		m.Clock.ResyncLongMs = 6 * 3600 * 1000
	}
	if m.Update.TimeoutMs == 0 {
		m.Update.TimeoutMs = 15_000
	}
	if m.Update.InsecureTLS == nil {
		v := true
		m.Update.InsecureTLS = &v
	}
	if m.Update.StagingPath == "" {
		m.Update.StagingPath = "/var/lib/tank-monitor/firmware.bin"
	}
	if m.HTTP.Addr == "" {
		m.HTTP.Addr = ":8080"
	}
}
