//go:build linux

package torch

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealController drives the torch through a GPIO output line.
type RealController struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// NewRealController requests the torch pin as an output, initially off.
// It fails if the line is held by another process or cannot be accessed;
// the caller may retry later once the line is released.
func NewRealController(pin int) (*RealController, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	line, err := chip.RequestLine(pin, gpiocdev.AsOutput(0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request torch pin %d: %w", pin, err)
	}

	return &RealController{chip: chip, line: line}, nil
}

// Set drives the torch output.
func (c *RealController) Set(on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := c.line.SetValue(v); err != nil {
		return fmt.Errorf("set torch pin: %w", err)
	}
	return nil
}

// Close forces the torch off, reconfigures the pin back to an input
// (matching boot defaults) and releases GPIO resources.
func (c *RealController) Close() error {
	var errs []error

	if c.line != nil {
		if err := c.line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("clear torch pin: %w", err))
		}
		if err := c.line.Reconfigure(gpiocdev.AsInput); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure torch pin: %w", err))
		}
		if err := c.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close torch pin: %w", err))
		}
	}
	if c.chip != nil {
		if err := c.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
