package clock

// FakeSource is a test double with directly settable readings.
type FakeSource struct {
	// UptimeMs is returned by UptimeMillis.
	UptimeMs uint32

	// EpochSec is returned by Epoch.
	EpochSec int64

	// SyncCalls counts Sync invocations.
	SyncCalls int

	// OnSync, if set, runs on every Sync call (e.g. to simulate a sync
	// that succeeds by raising EpochSec).
	OnSync func(*FakeSource)
}

// UptimeMillis returns the scripted uptime.
func (f *FakeSource) UptimeMillis() uint32 { return f.UptimeMs }

// Epoch returns the scripted epoch.
func (f *FakeSource) Epoch() int64 { return f.EpochSec }

// Sync records the attempt and runs OnSync if set.
func (f *FakeSource) Sync() {
	f.SyncCalls++
	if f.OnSync != nil {
		f.OnSync(f)
	}
}

// Advance moves the uptime counter forward and, if the clock is
// "synchronized" (EpochSec non-zero), the epoch along with it.
func (f *FakeSource) Advance(ms uint32) {
	f.UptimeMs += ms
	if f.EpochSec != 0 {
		f.EpochSec += int64(ms / 1000)
	}
}
