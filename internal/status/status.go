// Package status provides a thread-safe status tracker for the torchd daemon.
// It is read by HTTP handlers and the live WebSocket broadcaster.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/torchd/internal/logic"
	"github.com/sweeney/torchd/internal/motion"
)

// Config contains daemon configuration for display.
type Config struct {
	PollMs          int64
	StrobeMs        int64
	ShakeThreshold  float64
	ShakeDebounceMs int64
	HeartbeatMs     int64
	Broker          string
	HTTPAddr        string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Mode           logic.Mode
	Torch          bool
	TorchAvailable bool
	ShakeEnabled   bool
	Intensity      float64
	Sample         motion.Sample
	SampleAt       time.Time
	Counts         logic.EventCounts
	StartTime      time.Time
	Now            time.Time
	MQTTConnected  bool
	Config         Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			Mode:           logic.ModeIdle,
			TorchAvailable: true,
			ShakeEnabled:   true,
			Intensity:      1.0,
			StartTime:      startTime,
			Config:         cfg,
		},
	}
}

// Update sets the control state. Called from the run loop after every
// coordinator mutation.
func (t *Tracker) Update(mode logic.Mode, torch, shakeEnabled bool, intensity float64, counts logic.EventCounts) {
	t.mu.Lock()
	t.snap.Mode = mode
	t.snap.Torch = torch
	t.snap.ShakeEnabled = shakeEnabled
	t.snap.Intensity = intensity
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetSample records the latest accelerometer reading.
func (t *Tracker) SetSample(s motion.Sample, at time.Time) {
	t.mu.Lock()
	t.snap.Sample = s
	t.snap.SampleAt = at
	t.mu.Unlock()
}

// SetTorchAvailable records whether the torch hardware is acquired.
func (t *Tracker) SetTorchAvailable(available bool) {
	t.mu.Lock()
	t.snap.TorchAvailable = available
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
