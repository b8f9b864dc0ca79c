//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealReader reads level probes from actual hardware using the Linux GPIO
// character device.
type RealReader struct {
	chip  *gpiocdev.Chip
	lines [NumChannels]*gpiocdev.Line
}

// NewRealReader requests the four probe lines as inputs with pull-up.
// Float switches pull the line to ground when submerged, so the idle
// (dry) level is high.
func NewRealReader(pins [NumChannels]int) (*RealReader, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	r := &RealReader{chip: chip}
	for i, pin := range pins {
		line, err := chip.RequestLine(pin, gpiocdev.AsInput, gpiocdev.WithPullUp)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("request channel %d pin %d: %w", i, pin, err)
		}
		r.lines[i] = line
	}
	return r, nil
}

// Read returns the raw asserted state of the given channel.
// A line reading 0 (pulled to ground by the switch) is asserted.
func (r *RealReader) Read(channel int) (bool, error) {
	if channel < 0 || channel >= NumChannels {
		return false, fmt.Errorf("channel %d out of range", channel)
	}
	v, err := r.lines[channel].Value()
	if err != nil {
		return false, fmt.Errorf("read channel %d: %w", channel, err)
	}
	return v == 0, nil
}

// Close releases GPIO resources. Lines are reconfigured back to plain
// inputs before closing so the pins are in a known state across restarts.
func (r *RealReader) Close() error {
	var errs []error
	for i, line := range r.lines {
		if line == nil {
			continue
		}
		if err := line.Reconfigure(gpiocdev.AsInput); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure channel %d: %w", i, err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close channel %d: %w", i, err))
		}
		r.lines[i] = nil
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		r.chip = nil
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
