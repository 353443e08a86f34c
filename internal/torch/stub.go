//go:build !linux

package torch

import "errors"

// RealController is not available on non-Linux platforms.
type RealController struct{}

// NewRealController returns an error on non-Linux platforms.
func NewRealController(pin int) (*RealController, error) {
	return nil, errors.New("torch: not supported on this platform (requires Linux)")
}

// Set is not implemented on non-Linux platforms.
func (c *RealController) Set(on bool) error {
	return errors.New("torch: not supported")
}

// Close is not implemented on non-Linux platforms.
func (c *RealController) Close() error {
	return nil
}
