// Package tank tracks the debounced fill state of the tank and the
// timestamps of level transitions. This package has no hardware or
// network dependencies: probes come in through the sensor debouncer and
// time through the clock facade, so all of it runs under test with fakes.
package tank

import "github.com/sweeney/tank-monitor/internal/gpio"

// Snapshot is the current belief of tank state. One instance lives in
// the Engine and is overwritten on every poll; no history is kept beyond
// the per-channel transition records.
type Snapshot struct {
	// Wet holds the debounced state per channel, index 0 = top probe.
	Wet [gpio.NumChannels]bool

	// WetCount is the number of wet channels.
	WetCount int

	// FillPercent is 0/25/50/75/100, derived with the contiguous-band
	// rule: only wet channels forming an unbroken run up from the
	// bottom probe count, since the tank fills from the bottom.
	FillPercent int

	// SampledAtUptimeMs is the uptime reading of the last poll.
	SampledAtUptimeMs uint32
}

// TransitionRecord remembers when a channel last flipped.
type TransitionRecord struct {
	// Initialized is set on the channel's first successful sample.
	Initialized bool

	// ChangedAtUptimeMs is the uptime reading at the last observed
	// flip. 0 means the channel has never flipped since start.
	ChangedAtUptimeMs uint32

	// ChangedAtEpoch is the wall-clock seconds at the last flip. Below
	// the minimum valid epoch it is a placeholder awaiting backfill;
	// the uptime value is then authoritative for display.
	ChangedAtEpoch int64
}

// FillPercent applies the contiguous-band rule: 25% per wet channel in
// the unbroken run starting at the bottom probe (index 3) going up,
// stopping at the first dry channel.
func FillPercent(wet [gpio.NumChannels]bool) int {
	n := 0
	for i := gpio.NumChannels - 1; i >= 0; i-- {
		if !wet[i] {
			break
		}
		n++
	}
	return n * 100 / gpio.NumChannels
}
