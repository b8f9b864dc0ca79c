// Package clock provides the hybrid time source for the tank monitor:
// a monotonic uptime millisecond counter that is always available, and a
// wall-clock epoch that is only meaningful after synchronization with an
// external time source.
//
// "Never synchronized" is detected without a dedicated flag: any epoch
// reading before MinValidEpoch cannot come from a synchronized clock.
package clock

// DefaultMinValidEpoch is 2020-09-01T00:00:00Z. Any wall-clock reading
// before this moment means the clock has never been synchronized.
const DefaultMinValidEpoch int64 = 1598918400

// Source supplies raw time readings. The real implementation is
// SystemSource; tests use FakeSource.
type Source interface {
	// UptimeMillis returns milliseconds since process start. The counter
	// wraps; callers must compare readings with Elapsed.
	UptimeMillis() uint32

	// Epoch returns wall-clock seconds since the Unix epoch, or a value
	// below the minimum valid epoch if the clock has never been
	// synchronized.
	Epoch() int64

	// Sync triggers a best-effort, non-blocking synchronization attempt.
	// Failure is silent; the next Epoch reading simply stays untrusted.
	Sync()
}

// Elapsed returns the milliseconds elapsed from since to now. Unsigned
// subtraction keeps the result correct across a wraparound of the
// uptime counter.
func Elapsed(now, since uint32) uint32 {
	return now - since
}

// Facade wraps a Source with the trust predicate and the resync
// schedule: sync attempts happen every short interval while the clock
// is untrusted (fast recovery once connectivity appears) and every long
// interval once trusted (drift correction).
type Facade struct {
	src             Source
	minValidEpoch   int64
	shortResyncMs   uint32
	longResyncMs    uint32
	lastSyncAttempt uint32
}

// NewFacade creates a Facade and fires an initial sync attempt.
func NewFacade(src Source, minValidEpoch int64, shortResyncMs, longResyncMs uint32) *Facade {
	f := &Facade{
		src:           src,
		minValidEpoch: minValidEpoch,
		shortResyncMs: shortResyncMs,
		longResyncMs:  longResyncMs,
	}
	f.lastSyncAttempt = src.UptimeMillis()
	src.Sync()
	return f
}

// UptimeMillis returns the current uptime counter reading.
func (f *Facade) UptimeMillis() uint32 {
	return f.src.UptimeMillis()
}

// Epoch returns the current wall-clock reading in seconds.
func (f *Facade) Epoch() int64 {
	return f.src.Epoch()
}

// Trusted reports whether the current wall-clock reading is usable.
// It is re-derived on every call, never cached.
func (f *Facade) Trusted() bool {
	return f.src.Epoch() >= f.minValidEpoch
}

// ValidEpoch reports whether a stored epoch value is at or after the
// minimum valid epoch. Used to tell backfilled transition timestamps
// apart from never-filled ones.
func (f *Facade) ValidEpoch(epoch int64) bool {
	return epoch >= f.minValidEpoch
}

// MaintainSync requests a sync attempt if the appropriate interval has
// elapsed since the last one. Returns true if an attempt was made.
// Called once per driver-loop tick.
func (f *Facade) MaintainSync() bool {
	interval := f.shortResyncMs
	if f.Trusted() {
		interval = f.longResyncMs
	}
	now := f.src.UptimeMillis()
	if Elapsed(now, f.lastSyncAttempt) < interval {
		return false
	}
	f.lastSyncAttempt = now
	f.src.Sync()
	return true
}
