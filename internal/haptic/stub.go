//go:build !linux

package haptic

import (
	"errors"
	"time"
)

// RealMotor is not available on non-Linux platforms.
type RealMotor struct{}

// NewRealMotor returns an error on non-Linux platforms.
func NewRealMotor(pin int) (*RealMotor, error) {
	return nil, errors.New("haptic: not supported on this platform (requires Linux)")
}

// Pulse is not implemented on non-Linux platforms.
func (m *RealMotor) Pulse(d time.Duration) error {
	return errors.New("haptic: not supported")
}

// Close is not implemented on non-Linux platforms.
func (m *RealMotor) Close() error {
	return nil
}
