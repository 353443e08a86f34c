package logic

import (
	"math"
	"time"
)

// Default shake tuning. Threshold is in g; a resting device reads ~1.0.
const (
	DefaultShakeThreshold = 1.5
	DefaultShakeDebounce  = 1000 * time.Millisecond
)

// ShakeDetector turns a stream of accelerometer samples into discrete,
// debounced shake events.
type ShakeDetector struct {
	threshold float64
	debounce  time.Duration
	enabled   bool
	fired     bool
	lastShake time.Time
}

// NewShakeDetector creates a detector with the given magnitude threshold and
// debounce window. Detection starts enabled.
func NewShakeDetector(threshold float64, debounce time.Duration) *ShakeDetector {
	return &ShakeDetector{
		threshold: threshold,
		debounce:  debounce,
		enabled:   true,
	}
}

// SetEnabled turns shake detection on or off. While disabled, Process never
// reports a shake regardless of magnitude.
func (d *ShakeDetector) SetEnabled(enabled bool) {
	d.enabled = enabled
}

// Enabled reports whether shake detection is active.
func (d *ShakeDetector) Enabled() bool {
	return d.enabled
}

// Process consumes one accelerometer sample and reports whether it qualifies
// as a shake. A sample qualifies when its magnitude exceeds the threshold and
// at least the debounce window has passed since the last reported shake.
// Debounce is strictly time-based, not sample-count-based.
func (d *ShakeDetector) Process(x, y, z float64, now time.Time) bool {
	if !d.enabled {
		return false
	}

	m := math.Sqrt(x*x + y*y + z*z)
	if m <= d.threshold {
		return false
	}

	if d.fired && now.Sub(d.lastShake) < d.debounce {
		return false
	}

	d.fired = true
	d.lastShake = now
	return true
}
