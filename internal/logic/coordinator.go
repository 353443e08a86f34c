package logic

import (
	"errors"
	"time"
)

// Control errors surfaced to the HTTP API.
var (
	// ErrModeActive is returned when a control is rejected because a
	// pattern mode (strobe or S-O-S) currently owns the torch.
	ErrModeActive = errors.New("pattern mode active")

	// ErrStrobeNotActive is returned when stopping strobe outside strobe mode.
	ErrStrobeNotActive = errors.New("strobe not active")

	// ErrTorchUnavailable is returned while the torch hardware has not been
	// acquired. The only available action is re-acquiring it.
	ErrTorchUnavailable = errors.New("torch hardware unavailable")

	// ErrIntensityRange is returned for intensity values outside [0.1, 1.0].
	ErrIntensityRange = errors.New("intensity must be between 0.1 and 1.0")
)

// Coordinator is the single write path for the torch state. Manual toggles,
// shake events and pattern timers all route through it, so at most one
// driver mutates the torch at any instant and unintended mode combinations
// are unreachable.
type Coordinator struct {
	mode      Mode
	torch     bool
	available bool

	shake          *ShakeDetector
	pattern        *Pattern
	strobeInterval time.Duration

	// intensity is a stored value only; the LED driver has no brightness
	// control, and the UI says so.
	intensity float64

	counts        EventCounts
	startTime     time.Time
	lastHeartbeat time.Time
}

// NewCoordinator creates a coordinator in Idle mode with the torch off and
// the hardware assumed available.
func NewCoordinator(shake *ShakeDetector, strobeInterval time.Duration, startTime time.Time) *Coordinator {
	return &Coordinator{
		mode:           ModeIdle,
		available:      true,
		shake:          shake,
		strobeInterval: strobeInterval,
		intensity:      1.0,
		startTime:      startTime,
		lastHeartbeat:  startTime,
	}
}

// Mode returns the current operating mode.
func (c *Coordinator) Mode() Mode { return c.mode }

// Torch returns the current torch state.
func (c *Coordinator) Torch() bool { return c.torch }

// Intensity returns the stored intensity value.
func (c *Coordinator) Intensity() float64 { return c.intensity }

// ShakeEnabled reports whether shake-to-toggle is enabled.
func (c *Coordinator) ShakeEnabled() bool { return c.shake.Enabled() }

// TorchAvailable reports whether the torch hardware has been acquired.
func (c *Coordinator) TorchAvailable() bool { return c.available }

// Counts returns a copy of the event counts.
func (c *Coordinator) Counts() EventCounts { return c.counts }

// SetTorchAvailable records whether the torch hardware is acquired. While
// unavailable, every torch-driving control is rejected.
func (c *Coordinator) SetTorchAvailable(available bool) {
	c.available = available
}

// SetShakeEnabled turns shake-to-toggle on or off.
func (c *Coordinator) SetShakeEnabled(enabled bool) {
	c.shake.SetEnabled(enabled)
}

// SetIntensity stores the intensity value after range-checking it.
func (c *Coordinator) SetIntensity(v float64) error {
	if v < 0.1 || v > 1.0 {
		return ErrIntensityRange
	}
	c.intensity = v
	return nil
}

// ToggleTorch handles the manual torch button. Only valid in Idle.
func (c *Coordinator) ToggleTorch(now time.Time) ([]Event, error) {
	if !c.available {
		return nil, ErrTorchUnavailable
	}
	if c.mode != ModeIdle {
		return nil, ErrModeActive
	}
	return []Event{c.setTorch(!c.torch, now)}, nil
}

// StartStrobe enters strobe mode. The returned delay is the interval until
// the first toggle; the caller owns the timer.
func (c *Coordinator) StartStrobe(now time.Time) ([]Event, time.Duration, error) {
	if !c.available {
		return nil, 0, ErrTorchUnavailable
	}
	if c.mode != ModeIdle {
		return nil, 0, ErrModeActive
	}

	c.mode = ModeStrobe
	c.pattern = NewStrobe(c.strobeInterval)
	c.counts.StrobeStarts++

	delay, _ := c.pattern.Delay()
	return []Event{c.event(EventStrobeStart, now)}, delay, nil
}

// StopStrobe leaves strobe mode, forcing the torch off. The caller must
// cancel the pattern timer.
func (c *Coordinator) StopStrobe(now time.Time) ([]Event, error) {
	if c.mode != ModeStrobe {
		return nil, ErrStrobeNotActive
	}

	c.mode = ModeIdle
	c.pattern = nil

	var events []Event
	if c.torch {
		events = append(events, c.setTorch(false, now))
	}
	return append(events, c.event(EventStrobeStop, now)), nil
}

// StartSOS enters S-O-S mode. The returned delay is the hold time before the
// first toggle. Re-invoking while a pattern is active is rejected, so the
// sequence is never restarted mid-flight.
func (c *Coordinator) StartSOS(now time.Time) ([]Event, time.Duration, error) {
	if !c.available {
		return nil, 0, ErrTorchUnavailable
	}
	if c.mode != ModeIdle {
		return nil, 0, ErrModeActive
	}

	c.mode = ModeSOS
	c.pattern = NewSOS()

	delay, _ := c.pattern.Delay()
	return []Event{c.event(EventSOSStart, now)}, delay, nil
}

// PatternTick handles one firing of the pattern timer: it toggles the torch
// and reports the delay until the next firing. done is true when a finite
// pattern completed; the torch is then forced off and the mode returns to
// Idle. A stale firing after the pattern was cancelled is a no-op.
func (c *Coordinator) PatternTick(now time.Time) (events []Event, next time.Duration, done bool) {
	if c.pattern == nil {
		return nil, 0, true
	}

	events = append(events, c.setTorch(!c.torch, now))

	next, done = c.pattern.Advance()
	if !done {
		return events, next, false
	}

	// Finite pattern complete: force the torch off and return to Idle.
	finished := c.mode
	c.mode = ModeIdle
	c.pattern = nil
	if c.torch {
		events = append(events, c.setTorch(false, now))
	}
	if finished == ModeSOS {
		c.counts.SOSRuns++
		events = append(events, c.event(EventSOSDone, now))
	}
	return events, 0, true
}

// HandleSample feeds one accelerometer sample through the shake detector.
// A qualifying shake in Idle flips the torch; flipped reports whether that
// happened so the caller can pulse the haptic motor. While a pattern mode
// owns the torch (or the hardware is unavailable) the shake is still
// detected and reported, but the flip is suppressed.
func (c *Coordinator) HandleSample(x, y, z float64, now time.Time) (events []Event, flipped bool) {
	if !c.shake.Process(x, y, z, now) {
		return nil, false
	}

	events = append(events, c.event(EventShake, now))

	if c.mode != ModeIdle || !c.available {
		c.counts.ShakesSuppressed++
		return events, false
	}

	c.counts.Shakes++
	events = append(events, c.setTorch(!c.torch, now))
	return events, true
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since
// the last heartbeat (or startup). Returns nil if the interval has not
// elapsed or if interval is <= 0 (disabled).
func (c *Coordinator) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}
	if now.Sub(c.lastHeartbeat) < interval {
		return nil
	}

	c.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(c.startTime),
		Counts:    c.counts,
	}
}

func (c *Coordinator) setTorch(on bool, now time.Time) Event {
	c.torch = on
	if on {
		c.counts.TorchOn++
		return c.event(EventTorchOn, now)
	}
	c.counts.TorchOff++
	return c.event(EventTorchOff, now)
}

func (c *Coordinator) event(t EventType, now time.Time) Event {
	return Event{
		Timestamp: now,
		Type:      t,
		Torch:     c.torch,
		Mode:      c.mode,
	}
}
