package web

import (
	"encoding/json"
	"time"

	"github.com/sweeney/torchd/internal/motion"
	"github.com/sweeney/torchd/internal/status"
)

type strobeRequest struct {
	Active *bool `json:"active"`
}

type shakeRequest struct {
	Enabled *bool `json:"enabled"`
}

type intensityRequest struct {
	Intensity *float64 `json:"intensity"`
}

// CommandResponse is the JSON body returned by every /api endpoint.
type CommandResponse struct {
	OK             bool    `json:"ok"`
	Error          string  `json:"error,omitempty"`
	Mode           string  `json:"mode"`
	Torch          string  `json:"torch"`
	TorchAvailable bool    `json:"torch_available"`
	ShakeEnabled   bool    `json:"shake_enabled"`
	Intensity      float64 `json:"intensity"`
}

func formatCommandResponse(snap status.Snapshot, err error) []byte {
	torch := "OFF"
	if snap.Torch {
		torch = "ON"
	}
	resp := CommandResponse{
		OK:             err == nil,
		Mode:           string(snap.Mode),
		Torch:          torch,
		TorchAvailable: snap.TorchAvailable,
		ShakeEnabled:   snap.ShakeEnabled,
		Intensity:      snap.Intensity,
	}
	if err != nil {
		resp.Error = err.Error()
	}
	data, _ := json.Marshal(resp)
	return data
}

// Frame is the wire envelope for WebSocket messages.
type Frame struct {
	Type string      `json:"type"`
	Ts   string      `json:"ts"`
	Data interface{} `json:"data"`
}

// StateFrameData is the payload of a "state" frame.
type StateFrameData struct {
	Mode           string  `json:"mode"`
	Torch          string  `json:"torch"`
	TorchAvailable bool    `json:"torch_available"`
	ShakeEnabled   bool    `json:"shake_enabled"`
	Intensity      float64 `json:"intensity"`
}

// MotionFrameData is the payload of a "motion" frame.
type MotionFrameData struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Z         float64 `json:"z"`
	Magnitude float64 `json:"magnitude"`
}

// StateFrame serializes a "state" WS frame from a status snapshot.
func StateFrame(snap status.Snapshot) []byte {
	torch := "OFF"
	if snap.Torch {
		torch = "ON"
	}
	ts := snap.Now
	if ts.IsZero() {
		ts = time.Now()
	}
	data, _ := json.Marshal(Frame{
		Type: "state",
		Ts:   ts.UTC().Format(time.RFC3339),
		Data: StateFrameData{
			Mode:           string(snap.Mode),
			Torch:          torch,
			TorchAvailable: snap.TorchAvailable,
			ShakeEnabled:   snap.ShakeEnabled,
			Intensity:      snap.Intensity,
		},
	})
	return data
}

// MotionFrame serializes a "motion" WS frame from an accelerometer sample.
func MotionFrame(sample motion.Sample, at time.Time) []byte {
	data, _ := json.Marshal(Frame{
		Type: "motion",
		Ts:   at.UTC().Format(time.RFC3339),
		Data: MotionFrameData{
			X:         sample.X,
			Y:         sample.Y,
			Z:         sample.Z,
			Magnitude: sample.Magnitude(),
		},
	})
	return data
}
