// Package status provides a thread-safe status tracker for the
// tank-monitor daemon. The driver loop writes it once per tick; HTTP
// handlers and MQTT system events read point-in-time snapshots.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/tank-monitor/internal/gpio"
	"github.com/sweeney/tank-monitor/internal/tank"
	"github.com/sweeney/tank-monitor/internal/update"
)

// Config contains daemon configuration for display.
type Config struct {
	PollMs        int64
	ResyncShortMs int64
	ResyncLongMs  int64
	HeartbeatMs   int64
	Broker        string
	HTTPAddr      string
	ManifestURL   string
	InsecureTLS   bool
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type — safe to use after the lock is released.
type Snapshot struct {
	Level         tank.Snapshot
	Transitions   [gpio.NumChannels]string
	ClockTrusted  bool
	Epoch         int64
	Update        update.Session
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// UpdateLevel sets the tank state, formatted transition times, and
// clock readings. Called from the driver loop on every tick.
func (t *Tracker) UpdateLevel(level tank.Snapshot, transitions [gpio.NumChannels]string, trusted bool, epoch int64) {
	t.mu.Lock()
	t.snap.Level = level
	t.snap.Transitions = transitions
	t.snap.ClockTrusted = trusted
	t.snap.Epoch = epoch
	t.mu.Unlock()
}

// SetUpdateSession sets the update session view.
func (t *Tracker) SetUpdateSession(s update.Session) {
	t.mu.Lock()
	t.snap.Update = s
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
