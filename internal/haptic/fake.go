package haptic

import "time"

// FakeMotor records pulses for test assertions.
type FakeMotor struct {
	// Pulses records the duration of every Pulse call, in order.
	Pulses []time.Duration

	// PulseError, if set, will be returned by Pulse.
	PulseError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeMotor creates a FakeMotor.
func NewFakeMotor() *FakeMotor {
	return &FakeMotor{}
}

// Pulse records the pulse.
func (f *FakeMotor) Pulse(d time.Duration) error {
	if f.PulseError != nil {
		return f.PulseError
	}
	f.Pulses = append(f.Pulses, d)
	return nil
}

// Close marks the motor as closed.
func (f *FakeMotor) Close() error {
	f.Closed = true
	return nil
}

// Reset clears recorded pulses.
func (f *FakeMotor) Reset() {
	f.Pulses = nil
	f.PulseError = nil
	f.Closed = false
}
