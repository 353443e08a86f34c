// Package haptic drives a vibration motor with hardware abstraction.
// Pulses are fire-and-forget: the motor switches on immediately and a timer
// switches it off after the requested duration.
package haptic

import "time"

// Motor produces vibration pulses.
type Motor interface {
	// Pulse runs the motor for d. It returns as soon as the motor is on.
	Pulse(d time.Duration) error

	// Close stops the motor and releases resources.
	Close() error
}

// DefaultPin is the BCM pin number of the vibration motor driver.
const DefaultPin = 27

// DefaultPulse is the feedback pulse length for a recognized shake.
const DefaultPulse = 200 * time.Millisecond
