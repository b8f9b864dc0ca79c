package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string        `json:"event,omitempty"`
	Reason        string        `json:"reason,omitempty"`
	FillPercent   int           `json:"fill_percent"`
	WetCount      int           `json:"wet_count"`
	Channels      []ChannelJSON `json:"channels"`
	ClockTrusted  bool          `json:"clock_trusted"`
	Epoch         int64         `json:"epoch,omitempty"`
	UptimeSeconds int64         `json:"uptime_seconds"`
	StartTime     string        `json:"start_time"`
	Timestamp     string        `json:"timestamp"`
	Firmware      FirmwareJSON  `json:"firmware"`
	Update        UpdateJSON    `json:"update"`
	MQTT          MQTTStatus    `json:"mqtt"`
	Config        ConfigJSON    `json:"config"`
}

// ChannelJSON is the JSON representation of one probe channel.
type ChannelJSON struct {
	Index     int    `json:"index"`
	Wet       bool   `json:"wet"`
	ChangedAt string `json:"changed_at"`
}

// FirmwareJSON identifies the running firmware.
type FirmwareJSON struct {
	VersionCode int    `json:"version_code"`
	VersionName string `json:"version_name"`
}

// UpdateJSON is the JSON representation of the update session.
type UpdateJSON struct {
	State              string `json:"state"`
	Available          bool   `json:"available"`
	StatusMessage      string `json:"status_message"`
	PendingVersionCode int    `json:"pending_version_code,omitempty"`
	PendingVersionName string `json:"pending_version_name,omitempty"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs        int64  `json:"poll_ms"`
	ResyncShortMs int64  `json:"resync_short_ms"`
	ResyncLongMs  int64  `json:"resync_long_ms"`
	HeartbeatMs   int64  `json:"heartbeat_ms"`
	Broker        string `json:"broker"`
	HTTPAddr      string `json:"http_addr"`
	ManifestURL   string `json:"manifest_url"`
	InsecureTLS   bool   `json:"insecure_tls"`
}

func buildInner(snap Snapshot) StatusInner {
	channels := make([]ChannelJSON, len(snap.Level.Wet))
	for i := range snap.Level.Wet {
		channels[i] = ChannelJSON{
			Index:     i,
			Wet:       snap.Level.Wet[i],
			ChangedAt: snap.Transitions[i],
		}
	}

	inner := StatusInner{
		FillPercent:   snap.Level.FillPercent,
		WetCount:      snap.Level.WetCount,
		Channels:      channels,
		ClockTrusted:  snap.ClockTrusted,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		Firmware: FirmwareJSON{
			VersionCode: snap.Update.RunningCode,
			VersionName: snap.Update.RunningName,
		},
		Update: UpdateJSON{
			State:         snap.Update.State.String(),
			Available:     snap.Update.Available,
			StatusMessage: snap.Update.StatusMessage,
		},
		MQTT: MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Config: ConfigJSON{
			PollMs:        snap.Config.PollMs,
			ResyncShortMs: snap.Config.ResyncShortMs,
			ResyncLongMs:  snap.Config.ResyncLongMs,
			HeartbeatMs:   snap.Config.HeartbeatMs,
			Broker:        snap.Config.Broker,
			HTTPAddr:      snap.Config.HTTPAddr,
			ManifestURL:   snap.Config.ManifestURL,
			InsecureTLS:   snap.Config.InsecureTLS,
		},
	}
	if snap.ClockTrusted {
		inner.Epoch = snap.Epoch
	}
	if snap.Update.Pending != nil {
		inner.Update.PendingVersionCode = snap.Update.Pending.VersionCode
		inner.Update.PendingVersionName = snap.Update.Pending.VersionName
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
