package logic

import "time"

// DefaultStrobeInterval is the delay between strobe toggles.
const DefaultStrobeInterval = 100 * time.Millisecond

// sosSteps is the Morse S-O-S timing: dot-dot-dot, dash-dash-dash,
// dot-dot-dot. Each entry is how long the torch holds its current state
// before the next toggle. Exactly len(sosSteps) toggles occur per run.
var sosSteps = []time.Duration{
	300 * time.Millisecond,
	300 * time.Millisecond,
	300 * time.Millisecond,
	900 * time.Millisecond,
	900 * time.Millisecond,
	900 * time.Millisecond,
	300 * time.Millisecond,
	300 * time.Millisecond,
	300 * time.Millisecond,
}

// Pattern is a toggle schedule: a sequence of hold durations, each followed
// by one torch toggle. A repeating pattern never finishes; a finite pattern
// finishes after its last toggle. The explicit index makes cancellation and
// "exactly N toggles" trivially testable.
type Pattern struct {
	steps  []time.Duration
	index  int
	repeat bool
}

// NewStrobe returns a pattern that toggles forever at the given interval.
func NewStrobe(interval time.Duration) *Pattern {
	return &Pattern{steps: []time.Duration{interval}, repeat: true}
}

// NewSOS returns the fixed 9-step S-O-S pattern.
func NewSOS() *Pattern {
	steps := make([]time.Duration, len(sosSteps))
	copy(steps, sosSteps)
	return &Pattern{steps: steps}
}

// Delay returns how long the torch holds its current state before the next
// toggle. ok is false once a finite pattern has consumed all its steps.
func (p *Pattern) Delay() (d time.Duration, ok bool) {
	if p.repeat {
		return p.steps[0], true
	}
	if p.index >= len(p.steps) {
		return 0, false
	}
	return p.steps[p.index], true
}

// Advance consumes one timer firing. The caller toggles the torch, then
// schedules the next firing after next. done is true after the final toggle
// of a finite pattern; next is meaningless in that case.
func (p *Pattern) Advance() (next time.Duration, done bool) {
	if p.repeat {
		return p.steps[0], false
	}
	p.index++
	if p.index >= len(p.steps) {
		return 0, true
	}
	return p.steps[p.index], false
}

// Remaining returns how many toggles are left. Repeating patterns report -1.
func (p *Pattern) Remaining() int {
	if p.repeat {
		return -1
	}
	return len(p.steps) - p.index
}
