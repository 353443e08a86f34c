package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event          string      `json:"event,omitempty"`
	Reason         string      `json:"reason,omitempty"`
	Mode           string      `json:"mode"`
	Torch          string      `json:"torch"`
	TorchAvailable bool        `json:"torch_available"`
	ShakeEnabled   bool        `json:"shake_enabled"`
	Intensity      float64     `json:"intensity"`
	UptimeSeconds  int64       `json:"uptime_seconds"`
	StartTime      string      `json:"start_time"`
	Timestamp      string      `json:"timestamp"`
	MQTT           MQTTStatus  `json:"mqtt"`
	Counts         CountsJSON  `json:"event_counts"`
	Motion         *MotionJSON `json:"motion,omitempty"`
	Config         ConfigJSON  `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	TorchOn          int `json:"torch_on"`
	TorchOff         int `json:"torch_off"`
	Shakes           int `json:"shakes"`
	ShakesSuppressed int `json:"shakes_suppressed"`
	StrobeStarts     int `json:"strobe_starts"`
	SOSRuns          int `json:"sos_runs"`
}

// MotionJSON is the JSON representation of the latest accelerometer sample.
type MotionJSON struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Z         float64 `json:"z"`
	Magnitude float64 `json:"magnitude"`
	Timestamp string  `json:"timestamp"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs          int64   `json:"poll_ms"`
	StrobeMs        int64   `json:"strobe_ms"`
	ShakeThreshold  float64 `json:"shake_threshold"`
	ShakeDebounceMs int64   `json:"shake_debounce_ms"`
	HeartbeatMs     int64   `json:"heartbeat_ms"`
	Broker          string  `json:"broker"`
	HTTPAddr        string  `json:"http_addr"`
}

func buildInner(snap Snapshot) StatusInner {
	torch := "OFF"
	if snap.Torch {
		torch = "ON"
	}

	return StatusInner{
		Mode:           string(snap.Mode),
		Torch:          torch,
		TorchAvailable: snap.TorchAvailable,
		ShakeEnabled:   snap.ShakeEnabled,
		Intensity:      snap.Intensity,
		UptimeSeconds:  int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:      snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:      snap.Now.UTC().Format(time.RFC3339),
		MQTT:           MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			TorchOn:          snap.Counts.TorchOn,
			TorchOff:         snap.Counts.TorchOff,
			Shakes:           snap.Counts.Shakes,
			ShakesSuppressed: snap.Counts.ShakesSuppressed,
			StrobeStarts:     snap.Counts.StrobeStarts,
			SOSRuns:          snap.Counts.SOSRuns,
		},
		Config: ConfigJSON{
			PollMs:          snap.Config.PollMs,
			StrobeMs:        snap.Config.StrobeMs,
			ShakeThreshold:  snap.Config.ShakeThreshold,
			ShakeDebounceMs: snap.Config.ShakeDebounceMs,
			HeartbeatMs:     snap.Config.HeartbeatMs,
			Broker:          snap.Config.Broker,
			HTTPAddr:        snap.Config.HTTPAddr,
		},
	}
}

func buildMotion(snap Snapshot, inner *StatusInner) {
	if !snap.SampleAt.IsZero() {
		inner.Motion = &MotionJSON{
			X:         snap.Sample.X,
			Y:         snap.Sample.Y,
			Z:         snap.Sample.Z,
			Magnitude: snap.Sample.Magnitude(),
			Timestamp: snap.SampleAt.UTC().Format(time.RFC3339),
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildMotion(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildMotion(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
