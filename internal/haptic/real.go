//go:build linux

package haptic

import (
	"fmt"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// RealMotor drives a vibration motor through a GPIO output line.
type RealMotor struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line

	mu  sync.Mutex
	off *time.Timer
}

// NewRealMotor requests the motor pin as an output, initially off.
func NewRealMotor(pin int) (*RealMotor, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	line, err := chip.RequestLine(pin, gpiocdev.AsOutput(0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request haptic pin %d: %w", pin, err)
	}

	return &RealMotor{chip: chip, line: line}, nil
}

// Pulse switches the motor on and schedules it off after d. An overlapping
// pulse extends the running one.
func (m *RealMotor) Pulse(d time.Duration) error {
	if err := m.line.SetValue(1); err != nil {
		return fmt.Errorf("set haptic pin: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.off != nil {
		m.off.Stop()
	}
	m.off = time.AfterFunc(d, func() {
		m.line.SetValue(0)
	})
	return nil
}

// Close stops any pending pulse, forces the motor off and releases GPIO
// resources.
func (m *RealMotor) Close() error {
	m.mu.Lock()
	if m.off != nil {
		m.off.Stop()
		m.off = nil
	}
	m.mu.Unlock()

	var errs []error
	if m.line != nil {
		if err := m.line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("clear haptic pin: %w", err))
		}
		if err := m.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close haptic pin: %w", err))
		}
	}
	if m.chip != nil {
		if err := m.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
