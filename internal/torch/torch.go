// Package torch controls the torch LED with hardware abstraction.
// The real implementation drives a GPIO output line via the Linux GPIO
// character device. The fake implementation allows testing without hardware.
package torch

// Controller switches the physical torch on and off. Calls are idempotent:
// setting an already-on torch on again is harmless.
type Controller interface {
	// Set drives the torch output.
	Set(on bool) error

	// Close turns the torch off and releases GPIO resources.
	Close() error
}

// DefaultPin is the BCM pin number of the torch LED driver.
const DefaultPin = 17
