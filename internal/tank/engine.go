package tank

import (
	"fmt"
	"time"

	"github.com/sweeney/tank-monitor/internal/clock"
	"github.com/sweeney/tank-monitor/internal/gpio"
	"github.com/sweeney/tank-monitor/internal/sensor"
)

// Transition describes one observed channel flip, as reported by Poll.
type Transition struct {
	Channel    int
	Wet        bool
	Initial    bool // first-ever sample of the channel, not a real flip
	AtUptimeMs uint32
	AtEpoch    int64 // 0 if the wall clock was untrusted at the time
}

// Engine polls the debounced channels, maintains the process-wide
// Snapshot and the per-channel transition records, and backfills
// uptime-only timestamps once the wall clock becomes trustworthy.
// It is mutated only from the driver loop.
type Engine struct {
	deb     *sensor.Debouncer
	clk     *clock.Facade
	snap    Snapshot
	records [gpio.NumChannels]TransitionRecord
}

// NewEngine creates an Engine over the given debouncer and clock.
func NewEngine(deb *sensor.Debouncer, clk *clock.Facade) *Engine {
	return &Engine{deb: deb, clk: clk}
}

// Poll reads all channels and updates the snapshot and transition
// records. A channel's record is stamped iff this is its first-ever
// sample or the debounced value differs from the stored one; identical
// repeats never touch the record. Channels whose read fails keep their
// previous stored state for this poll and the first such error is
// returned after the remaining channels have been processed.
//
// Flips faster than the poll period collapse into one observed
// transition; sub-poll activity is invisible by design.
func (e *Engine) Poll() ([]Transition, error) {
	now := e.clk.UptimeMillis()
	trusted := e.clk.Trusted()
	epoch := int64(0)
	if trusted {
		epoch = e.clk.Epoch()
	}

	var transitions []Transition
	var firstErr error

	for i := 0; i < gpio.NumChannels; i++ {
		wet, err := e.deb.ReadChannel(i)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("poll: %w", err)
			}
			continue
		}

		rec := &e.records[i]
		if !rec.Initialized || wet != e.snap.Wet[i] {
			initial := !rec.Initialized
			rec.Initialized = true
			rec.ChangedAtUptimeMs = now
			rec.ChangedAtEpoch = epoch
			transitions = append(transitions, Transition{
				Channel:    i,
				Wet:        wet,
				Initial:    initial,
				AtUptimeMs: now,
				AtEpoch:    epoch,
			})
		}
		e.snap.Wet[i] = wet
	}

	count := 0
	for _, w := range e.snap.Wet {
		if w {
			count++
		}
	}
	e.snap.WetCount = count
	e.snap.FillPercent = FillPercent(e.snap.Wet)
	e.snap.SampledAtUptimeMs = now

	return transitions, firstErr
}

// Backfill converts uptime-only transition timestamps into epochs. It
// is a no-op while the wall clock is untrusted. Each eligible channel
// gets epoch = nowEpoch - elapsedSeconds, clamped so the result never
// exceeds nowEpoch (a rolled-over or skewed uptime reading must not
// produce a future timestamp). A channel already holding a valid epoch
// is never touched again, so the first computed value stays fixed even
// as the clock drifts afterward.
func (e *Engine) Backfill() {
	if !e.clk.Trusted() {
		return
	}
	nowEpoch := e.clk.Epoch()
	nowUptime := e.clk.UptimeMillis()

	for i := range e.records {
		rec := &e.records[i]
		if !rec.Initialized || rec.ChangedAtUptimeMs == 0 || e.clk.ValidEpoch(rec.ChangedAtEpoch) {
			continue
		}
		elapsedMs := int32(clock.Elapsed(nowUptime, rec.ChangedAtUptimeMs))
		epoch := nowEpoch - int64(elapsedMs/1000)
		if epoch > nowEpoch {
			epoch = nowEpoch
		}
		rec.ChangedAtEpoch = epoch
	}
}

// Snapshot returns a copy of the current snapshot.
func (e *Engine) Snapshot() Snapshot {
	return e.snap
}

// Records returns a copy of the per-channel transition records.
func (e *Engine) Records() [gpio.NumChannels]TransitionRecord {
	return e.records
}

// FormatTransition returns the display form of a channel's last
// transition time: an RFC3339 UTC timestamp when the epoch is valid and
// the clock currently trusted, otherwise an uptime-relative
// "t+<seconds>s", or "never" if the channel has not flipped.
func (e *Engine) FormatTransition(channel int) string {
	rec := e.records[channel]
	if !rec.Initialized || rec.ChangedAtUptimeMs == 0 {
		return "never"
	}
	if e.clk.Trusted() && e.clk.ValidEpoch(rec.ChangedAtEpoch) {
		return time.Unix(rec.ChangedAtEpoch, 0).UTC().Format(time.RFC3339)
	}
	return fmt.Sprintf("t+%ds", rec.ChangedAtUptimeMs/1000)
}

// FormatTransitions returns FormatTransition for every channel.
func (e *Engine) FormatTransitions() [gpio.NumChannels]string {
	var out [gpio.NumChannels]string
	for i := range out {
		out[i] = e.FormatTransition(i)
	}
	return out
}
