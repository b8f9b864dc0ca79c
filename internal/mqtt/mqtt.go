// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sweeney/tank-monitor/internal/tank"
)

// Topic is the MQTT topic for tank level events.
const Topic = "home/tank/level/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "home/tank/level/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a level transition event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event LevelEvent) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// LevelEvent represents one channel transition plus the resulting fill.
type LevelEvent struct {
	Transition  tank.Transition
	FillPercent int
}

// SystemEvent represents a system lifecycle event (startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g. "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g. "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Tank TankPayload `json:"tank"`
}

// TankPayload contains the level event details.
type TankPayload struct {
	Event       string `json:"event"` // CHANNEL_WET / CHANNEL_DRY
	Channel     int    `json:"channel"`
	Initial     bool   `json:"initial,omitempty"`
	FillPercent int    `json:"fill_percent"`
	UptimeMs    uint32 `json:"uptime_ms"`
	Epoch       int64  `json:"epoch,omitempty"` // 0 = wall clock untrusted at event time
}

// FormatPayload creates the JSON payload for a level event.
func FormatPayload(event LevelEvent) ([]byte, error) {
	name := "CHANNEL_DRY"
	if event.Transition.Wet {
		name = "CHANNEL_WET"
	}
	payload := Payload{
		Tank: TankPayload{
			Event:       name,
			Channel:     event.Transition.Channel,
			Initial:     event.Transition.Initial,
			FillPercent: event.FillPercent,
			UptimeMs:    event.Transition.AtUptimeMs,
			Epoch:       event.Transition.AtEpoch,
		},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal level event: %w", err)
	}
	return data, nil
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
