// Package sensor turns raw probe reads into debounced wet/dry values.
// This package holds pure sampling logic: hardware access goes through
// the gpio.Reader interface and the inter-sample delay is injectable,
// so tests run without hardware or real sleeps.
package sensor

import (
	"fmt"
	"time"

	"github.com/sweeney/tank-monitor/internal/gpio"
)

const (
	// SamplesPerRead is the number of raw samples taken per debounced
	// read. Odd, so a strict majority always exists.
	SamplesPerRead = 5

	// SampleDelay is the pause between consecutive raw samples. The
	// whole burst blocks for ~10 ms per channel, which is fine on the
	// cooperative driver loop.
	SampleDelay = 2 * time.Millisecond
)

// Debouncer reads channels through majority voting.
type Debouncer struct {
	reader gpio.Reader
	invert [gpio.NumChannels]bool
	sleep  func(time.Duration)
}

// NewDebouncer creates a Debouncer over the given reader. invert flags
// channels whose electrical sense is opposite to "asserted = wet".
func NewDebouncer(reader gpio.Reader, invert [gpio.NumChannels]bool) *Debouncer {
	return &Debouncer{
		reader: reader,
		invert: invert,
		sleep:  time.Sleep,
	}
}

// SetSleep replaces the inter-sample delay function. Tests use this to
// avoid real sleeps.
func (d *Debouncer) SetSleep(sleep func(time.Duration)) {
	d.sleep = sleep
}

// ReadChannel returns the debounced wet/dry state of a channel: it takes
// SamplesPerRead raw samples SampleDelay apart and reports wet iff a
// strict majority read asserted. Polarity inversion is applied to the
// vote's result, not to individual samples, so inversion cannot weaken
// the vote itself.
func (d *Debouncer) ReadChannel(channel int) (bool, error) {
	asserted := 0
	for i := 0; i < SamplesPerRead; i++ {
		if i > 0 {
			d.sleep(SampleDelay)
		}
		v, err := d.reader.Read(channel)
		if err != nil {
			return false, fmt.Errorf("debounce channel %d: %w", channel, err)
		}
		if v {
			asserted++
		}
	}

	wet := asserted > SamplesPerRead/2
	if d.invert[channel] {
		wet = !wet
	}
	return wet, nil
}
