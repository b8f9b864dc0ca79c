package gpio

import (
	"errors"
	"fmt"
)

// FakeReader is a test double that returns scripted raw probe values.
type FakeReader struct {
	// Samples contains scripted raw values per channel. Each call to
	// Read(ch) consumes the next sample for that channel; when a
	// channel's samples are exhausted the last one repeats.
	Samples [NumChannels][]bool

	// index tracks current position per channel.
	index [NumChannels]int

	// Reads counts Read calls per channel.
	Reads [NumChannels]int

	// Closed tracks if Close was called.
	Closed bool

	// ReadError, if set, will be returned by Read().
	ReadError error
}

// NewFakeReader creates a FakeReader with the given per-channel samples.
func NewFakeReader(samples [NumChannels][]bool) *FakeReader {
	return &FakeReader{Samples: samples}
}

// NewSteadyFakeReader creates a FakeReader where each channel always
// returns the given raw value.
func NewSteadyFakeReader(raw [NumChannels]bool) *FakeReader {
	var samples [NumChannels][]bool
	for i, v := range raw {
		samples[i] = []bool{v}
	}
	return &FakeReader{Samples: samples}
}

// Read returns the next scripted sample for the channel.
func (f *FakeReader) Read(channel int) (bool, error) {
	if f.ReadError != nil {
		return false, f.ReadError
	}
	if channel < 0 || channel >= NumChannels {
		return false, fmt.Errorf("channel %d out of range", channel)
	}
	if len(f.Samples[channel]) == 0 {
		return false, errors.New("no samples configured")
	}

	f.Reads[channel]++
	sample := f.Samples[channel][f.index[channel]]
	if f.index[channel] < len(f.Samples[channel])-1 {
		f.index[channel]++
	}
	return sample, nil
}

// Close marks the reader as closed.
func (f *FakeReader) Close() error {
	f.Closed = true
	return nil
}

// Reset rewinds all channels to the beginning of their samples.
func (f *FakeReader) Reset() {
	f.index = [NumChannels]int{}
	f.Reads = [NumChannels]int{}
	f.Closed = false
}

// Set replaces a channel's samples and rewinds it.
func (f *FakeReader) Set(channel int, samples ...bool) {
	f.Samples[channel] = samples
	f.index[channel] = 0
}
