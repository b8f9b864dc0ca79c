package clock

import "testing"

func TestElapsedWraparound(t *testing.T) {
	tests := []struct {
		name  string
		now   uint32
		since uint32
		want  uint32
	}{
		{"simple", 5000, 1000, 4000},
		{"zero", 1000, 1000, 0},
		{"wrapped", 500, 0xFFFFFE0C, 1000}, // since = max - 499
		{"full range", 0xFFFFFFFF, 0, 0xFFFFFFFF},
	}

	for _, tt := range tests {
		if got := Elapsed(tt.now, tt.since); got != tt.want {
			t.Errorf("%s: Elapsed(%d, %d) = %d, want %d", tt.name, tt.now, tt.since, got, tt.want)
		}
	}
}

func TestTrustedPredicate(t *testing.T) {
	src := &FakeSource{UptimeMs: 1000}
	f := NewFacade(src, DefaultMinValidEpoch, 30_000, 3_600_000)

	if f.Trusted() {
		t.Error("epoch 0 should not be trusted")
	}

	src.EpochSec = DefaultMinValidEpoch - 1
	if f.Trusted() {
		t.Error("epoch below minimum should not be trusted")
	}

	src.EpochSec = DefaultMinValidEpoch
	if !f.Trusted() {
		t.Error("epoch at minimum should be trusted")
	}

	// Trust is re-derived on every query, not latched.
	src.EpochSec = 0
	if f.Trusted() {
		t.Error("trust must not be latched once epoch drops below minimum")
	}
}

func TestValidEpoch(t *testing.T) {
	f := NewFacade(&FakeSource{}, DefaultMinValidEpoch, 30_000, 3_600_000)

	if f.ValidEpoch(0) {
		t.Error("0 should not be a valid epoch")
	}
	if f.ValidEpoch(DefaultMinValidEpoch - 1) {
		t.Error("below minimum should not be valid")
	}
	if !f.ValidEpoch(DefaultMinValidEpoch) {
		t.Error("minimum should be valid")
	}
}

func TestInitialSyncAttempt(t *testing.T) {
	src := &FakeSource{}
	NewFacade(src, DefaultMinValidEpoch, 30_000, 3_600_000)

	if src.SyncCalls != 1 {
		t.Errorf("expected 1 sync attempt at construction, got %d", src.SyncCalls)
	}
}

func TestMaintainSyncShortIntervalWhileUntrusted(t *testing.T) {
	src := &FakeSource{}
	f := NewFacade(src, DefaultMinValidEpoch, 30_000, 3_600_000)

	// Before the short interval elapses: no attempt.
	src.UptimeMs += 29_999
	if f.MaintainSync() {
		t.Error("should not sync before short interval elapses")
	}
	if src.SyncCalls != 1 {
		t.Errorf("expected 1 sync call, got %d", src.SyncCalls)
	}

	// At the short interval: attempt.
	src.UptimeMs += 1
	if !f.MaintainSync() {
		t.Error("should sync once short interval elapses")
	}
	if src.SyncCalls != 2 {
		t.Errorf("expected 2 sync calls, got %d", src.SyncCalls)
	}
}

func TestMaintainSyncLongIntervalOnceTrusted(t *testing.T) {
	src := &FakeSource{EpochSec: DefaultMinValidEpoch + 100}
	f := NewFacade(src, DefaultMinValidEpoch, 30_000, 3_600_000)

	// Untrusted interval would have elapsed, but the clock is trusted.
	src.UptimeMs += 30_000
	if f.MaintainSync() {
		t.Error("trusted clock should use the long interval")
	}

	src.UptimeMs += 3_600_000 - 30_000
	if !f.MaintainSync() {
		t.Error("should sync once long interval elapses")
	}
}

func TestMaintainSyncAcrossWraparound(t *testing.T) {
	// Start near the top of the counter range so the interval check
	// spans the wrap.
	src := &FakeSource{UptimeMs: 0xFFFFF000}
	f := NewFacade(src, DefaultMinValidEpoch, 30_000, 3_600_000)

	src.UptimeMs = 0x00006000 // ~28.7s after wrap point start
	if f.MaintainSync() {
		t.Error("should not sync before interval, even across wraparound")
	}

	src.UptimeMs = 0x00007000
	if !f.MaintainSync() {
		t.Error("should sync after interval elapses across wraparound")
	}
}

func TestSyncThatSucceedsRaisesTrust(t *testing.T) {
	src := &FakeSource{
		OnSync: func(f *FakeSource) { f.EpochSec = DefaultMinValidEpoch + 1000 },
	}
	f := NewFacade(src, DefaultMinValidEpoch, 30_000, 3_600_000)

	if !f.Trusted() {
		t.Error("facade should report trusted after successful sync")
	}
}
