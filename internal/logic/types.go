// Package logic contains pure control logic for the torch daemon.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// Mode is the operating mode of the torch. Exactly one mode holds at a time.
type Mode string

const (
	ModeIdle   Mode = "IDLE"
	ModeStrobe Mode = "STROBE"
	ModeSOS    Mode = "SOS"
)

// EventType identifies a torch event to be published.
type EventType string

const (
	EventTorchOn     EventType = "TORCH_ON"
	EventTorchOff    EventType = "TORCH_OFF"
	EventShake       EventType = "SHAKE"
	EventStrobeStart EventType = "STROBE_START"
	EventStrobeStop  EventType = "STROBE_STOP"
	EventSOSStart    EventType = "SOS_START"
	EventSOSDone     EventType = "SOS_DONE"
)

// Event represents a state change to be published.
// Torch and Mode carry the state after the event.
type Event struct {
	Timestamp time.Time
	Type      EventType
	Torch     bool
	Mode      Mode
}

// EventCounts tracks the number of each event type since startup.
type EventCounts struct {
	TorchOn          int
	TorchOff         int
	Shakes           int
	ShakesSuppressed int
	StrobeStarts     int
	SOSRuns          int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    EventCounts
}
