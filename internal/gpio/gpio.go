// Package gpio provides level-sensor input reading with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// NumChannels is the number of physical level-sensor inputs.
// Channel 0 is the topmost probe, channel 3 the bottommost.
const NumChannels = 4

// Reader reads raw level-sensor input states.
type Reader interface {
	// Read returns the raw asserted state of the given channel (0..3).
	// No polarity interpretation is applied here; the sensor layer
	// owns inversion.
	Read(channel int) (bool, error)

	// Close releases GPIO resources.
	Close() error
}

// DefaultPins holds the default pin assignment (BCM numbering),
// top probe first, bottom probe last.
var DefaultPins = [NumChannels]int{5, 6, 13, 19}
