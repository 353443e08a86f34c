// Package motion provides accelerometer sampling with hardware abstraction.
// The real implementation polls a Linux IIO device over sysfs.
// The fake implementation allows testing without hardware.
package motion

import "math"

// Sample is one 3-axis accelerometer reading, in g.
type Sample struct {
	X float64
	Y float64
	Z float64
}

// Magnitude returns the Euclidean magnitude of the sample.
func (s Sample) Magnitude() float64 {
	return math.Sqrt(s.X*s.X + s.Y*s.Y + s.Z*s.Z)
}

// Sampler reads accelerometer samples.
type Sampler interface {
	// Read returns the most recent reading. The caller polls at its own
	// cadence; jitter from the underlying source is tolerated.
	Read() (Sample, error)

	// Close releases sampler resources.
	Close() error
}

// DefaultDevice is the usual sysfs path of the first IIO accelerometer.
const DefaultDevice = "/sys/bus/iio/devices/iio:device0"
