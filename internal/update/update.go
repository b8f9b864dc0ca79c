// Package update holds the firmware update session: the two-phase
// check-then-install flow, the pending-update decision, and the
// interpretation of the OTA transfer's three possible outcomes.
package update

import (
	"fmt"

	"github.com/sweeney/tank-monitor/internal/manifest"
)

// State is the update session state.
type State int

const (
	StateIdle State = iota
	StateNoUpdate
	StateUpdateAvailable
	StateInstalling
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateNoUpdate:
		return "NO_UPDATE"
	case StateUpdateAvailable:
		return "UPDATE_AVAILABLE"
	case StateInstalling:
		return "INSTALLING"
	}
	return "UNKNOWN"
}

// Outcome tags the result of an OTA transfer attempt.
type Outcome int

const (
	// OutcomeFailed means the transfer failed with a device-specific
	// error code and description.
	OutcomeFailed Outcome = iota

	// OutcomeNoUpdate means the transfer layer itself found nothing to
	// apply. For the session this counts as a failed install attempt.
	OutcomeNoUpdate

	// OutcomeSuccess means the image was transferred. The device does
	// not keep running past this point on real hardware; nothing after
	// it may be relied upon for cleanup.
	OutcomeSuccess
)

// Result is the tagged outcome of an OTA transfer.
type Result struct {
	Outcome Outcome
	Code    int    // set for OutcomeFailed
	Message string // set for OutcomeFailed
}

// Connectivity reports whether the network link is currently usable.
// Consumed before any check or install action.
type Connectivity interface {
	IsConnected() bool
}

// Applier performs the OTA transfer for a firmware image URL.
type Applier interface {
	Apply(url string) Result
}

// Session is a read-only view of the update session.
type Session struct {
	State         State
	Available     bool
	Pending       *manifest.Manifest
	StatusMessage string
	RunningCode   int
	RunningName   string
}

// Machine owns the update session. It is mutated only from the driver
// loop; Check and Install are invoked in response to external triggers.
type Machine struct {
	runningCode int
	runningName string
	manifestURL string
	transport   manifest.Transport
	net         Connectivity
	ota         Applier

	state     State
	pending   *manifest.Manifest
	available bool
	status    string
}

// NewMachine creates a Machine for the given running firmware version.
func NewMachine(runningCode int, runningName, manifestURL string, transport manifest.Transport, net Connectivity, ota Applier) *Machine {
	return &Machine{
		runningCode: runningCode,
		runningName: runningName,
		manifestURL: manifestURL,
		transport:   transport,
		net:         net,
		ota:         ota,
		state:       StateIdle,
		status:      "no update check performed",
	}
}

// Check fetches and parses the manifest and decides whether an update
// is pending. Every check supersedes the previous check's result. The
// returned string is the new status message.
func (m *Machine) Check() string {
	if !m.net.IsConnected() {
		// Precondition violation: refuse locally, no state change.
		m.status = "update check refused: no network connectivity"
		return m.status
	}

	man, err := manifest.Fetch(m.transport, m.manifestURL)
	if err != nil {
		m.state = StateNoUpdate
		m.pending = nil
		m.available = false
		m.status = fmt.Sprintf("update check failed: %v", err)
		return m.status
	}

	if man.VersionCode > m.runningCode {
		m.state = StateUpdateAvailable
		m.pending = &man
		m.available = true
		m.status = fmt.Sprintf("update available: %s (code %d)", man.VersionName, man.VersionCode)
	} else {
		m.state = StateNoUpdate
		m.pending = nil
		m.available = false
		m.status = fmt.Sprintf("no update: running code %d, remote code %d", m.runningCode, man.VersionCode)
	}
	return m.status
}

// Install applies the pending update. It is only meaningful in the
// update-available state; otherwise it refuses with a status message
// and changes nothing. The returned string is the new status message.
func (m *Machine) Install() string {
	if !m.available || m.pending == nil {
		m.status = "install refused: no pending update"
		return m.status
	}
	if !m.net.IsConnected() {
		// The pending update stays pending; install can be retried.
		m.status = "install refused: no network connectivity"
		return m.status
	}

	m.state = StateInstalling
	res := m.ota.Apply(m.pending.FirmwareURL)

	switch res.Outcome {
	case OutcomeFailed:
		m.status = fmt.Sprintf("install failed: code %d: %s", res.Code, res.Message)
		m.state = StateNoUpdate
		m.pending = nil
		m.available = false
	case OutcomeNoUpdate:
		m.status = "install failed: transfer reported no update to apply"
		m.state = StateNoUpdate
		m.pending = nil
		m.available = false
	case OutcomeSuccess:
		// On real hardware the device reboots into the new image
		// before this status is ever read.
		m.status = fmt.Sprintf("install succeeded: %s (code %d)", m.pending.VersionName, m.pending.VersionCode)
		m.state = StateIdle
		m.pending = nil
		m.available = false
	}
	return m.status
}

// Session returns a read-only view of the session. The pending manifest
// is copied so callers cannot mutate machine state.
func (m *Machine) Session() Session {
	s := Session{
		State:         m.state,
		Available:     m.available,
		StatusMessage: m.status,
		RunningCode:   m.runningCode,
		RunningName:   m.runningName,
	}
	if m.pending != nil {
		man := *m.pending
		s.Pending = &man
	}
	return s
}
