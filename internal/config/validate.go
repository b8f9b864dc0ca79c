package config

import (
	"fmt"
	"net/url"

	"github.com/sweeney/tank-monitor/internal/gpio"
)

// Validate checks configuration correctness.
// It performs declarative validation only and MUST NOT mutate the
// configuration.
func Validate(cfg *Config) error {
	m := cfg.Monitor

	if len(m.Channels) != gpio.NumChannels {
		return fmt.Errorf("exactly %d channels required, got %d", gpio.NumChannels, len(m.Channels))
	}

	seen := make(map[int]int)
	for i, ch := range m.Channels {
		if ch.Pin < 0 {
			return fmt.Errorf("channel %d: negative pin %d", i, ch.Pin)
		}
		if prev, dup := seen[ch.Pin]; dup {
			return fmt.Errorf("pin %d used by channels %d and %d", ch.Pin, prev, i)
		}
		seen[ch.Pin] = i
	}

	if m.Poll.IntervalMs <= 0 {
		return fmt.Errorf("poll interval_ms must be positive, got %d", m.Poll.IntervalMs)
	}
	if m.Clock.ResyncShortMs <= 0 {
		return fmt.Errorf("clock resync_short_ms must be positive, got %d", m.Clock.ResyncShortMs)
	}
	if m.Clock.ResyncLongMs < m.Clock.ResyncShortMs {
		return fmt.Errorf("clock resync_long_ms (%d) must not be shorter than resync_short_ms (%d)",
			m.Clock.ResyncLongMs, m.Clock.ResyncShortMs)
	}
	if m.Clock.MinValidEpoch < 0 {
		return fmt.Errorf("clock min_valid_epoch must not be negative, got %d", m.Clock.MinValidEpoch)
	}
	if m.Heartbeat.IntervalMs < 0 {
		return fmt.Errorf("heartbeat interval_ms must not be negative, got %d", m.Heartbeat.IntervalMs)
	}

	if m.Update.ManifestURL != "" {
		u, err := url.Parse(m.Update.ManifestURL)
		if err != nil {
			return fmt.Errorf("update manifest_url: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("update manifest_url: unsupported scheme %q", u.Scheme)
		}
		if m.Update.TimeoutMs <= 0 {
			return fmt.Errorf("update timeout_ms must be positive, got %d", m.Update.TimeoutMs)
		}
		if m.Update.StagingPath == "" {
			return fmt.Errorf("update staging_path required when manifest_url is set")
		}
	}

	return nil
}
