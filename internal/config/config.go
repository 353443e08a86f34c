// Package config loads and validates the torchd YAML configuration.
// Defaults are applied first, then the file, then any flag overrides
// the caller chooses to apply on top.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/torchd/internal/haptic"
	"github.com/sweeney/torchd/internal/logic"
	"github.com/sweeney/torchd/internal/motion"
	"github.com/sweeney/torchd/internal/torch"
)

// Config is the top-level YAML configuration for the torchd daemon.
type Config struct {
	Hardware HardwareConfig `yaml:"hardware"`
	Motion   MotionConfig   `yaml:"motion"`
	Strobe   StrobeConfig   `yaml:"strobe"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	HTTP     HTTPConfig     `yaml:"http"`
}

// HardwareConfig selects the GPIO pins and the accelerometer device.
type HardwareConfig struct {
	TorchPin      int    `yaml:"torch_pin"`
	HapticPin     int    `yaml:"haptic_pin"`
	HapticPulseMs int64  `yaml:"haptic_pulse_ms"`
	IIODevice     string `yaml:"iio_device"`
}

// MotionConfig controls accelerometer polling and shake detection.
type MotionConfig struct {
	PollMs          int64   `yaml:"poll_ms"`
	ShakeEnabled    bool    `yaml:"shake_enabled"`
	ShakeThreshold  float64 `yaml:"shake_threshold"`
	ShakeDebounceMs int64   `yaml:"shake_debounce_ms"`
}

// StrobeConfig controls the strobe toggle interval.
type StrobeConfig struct {
	IntervalMs int64 `yaml:"interval_ms"`
}

// MQTTConfig controls event publishing.
type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	HeartbeatMs int64  `yaml:"heartbeat_ms"`
}

// HTTPConfig controls the control/status web server.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns a fully-populated Config with defaults.
func Default() Config {
	return Config{
		Hardware: HardwareConfig{
			TorchPin:      torch.DefaultPin,
			HapticPin:     haptic.DefaultPin,
			HapticPulseMs: haptic.DefaultPulse.Milliseconds(),
			IIODevice:     motion.DefaultDevice,
		},
		Motion: MotionConfig{
			PollMs:          100,
			ShakeEnabled:    true,
			ShakeThreshold:  logic.DefaultShakeThreshold,
			ShakeDebounceMs: logic.DefaultShakeDebounce.Milliseconds(),
		},
		Strobe: StrobeConfig{
			IntervalMs: logic.DefaultStrobeInterval.Milliseconds(),
		},
		MQTT: MQTTConfig{
			Broker:      "tcp://localhost:1883",
			HeartbeatMs: (15 * time.Minute).Milliseconds(),
		},
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
	}
}

// Load reads a YAML config file on top of defaults.
// Unknown fields are rejected to catch typos.
func Load(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	if err := dec.Decode(&struct{}{}); err == nil {
		return Config{}, errors.New("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

// Validate checks config invariants and returns a user-friendly error.
func (c *Config) Validate() error {
	if c.Hardware.TorchPin < 0 {
		return errors.New("hardware.torch_pin must be >= 0")
	}
	if c.Hardware.HapticPin < 0 {
		return errors.New("hardware.haptic_pin must be >= 0")
	}
	if c.Hardware.HapticPulseMs <= 0 {
		return errors.New("hardware.haptic_pulse_ms must be > 0")
	}
	if c.Hardware.IIODevice == "" {
		return errors.New("hardware.iio_device must not be empty")
	}

	if c.Motion.PollMs <= 0 {
		return errors.New("motion.poll_ms must be > 0")
	}
	if c.Motion.ShakeThreshold <= 0 {
		return errors.New("motion.shake_threshold must be > 0")
	}
	if c.Motion.ShakeDebounceMs < 0 {
		return errors.New("motion.shake_debounce_ms must be >= 0")
	}

	if c.Strobe.IntervalMs <= 0 {
		return errors.New("strobe.interval_ms must be > 0")
	}

	if c.MQTT.Broker == "" {
		return errors.New("mqtt.broker must not be empty")
	}
	if c.MQTT.HeartbeatMs < 0 {
		return errors.New("mqtt.heartbeat_ms must be >= 0")
	}

	// An empty http.addr disables the control server.

	return nil
}

// PollInterval returns the accelerometer poll interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Motion.PollMs) * time.Millisecond
}

// ShakeDebounce returns the shake debounce window.
func (c *Config) ShakeDebounce() time.Duration {
	return time.Duration(c.Motion.ShakeDebounceMs) * time.Millisecond
}

// StrobeInterval returns the strobe toggle interval.
func (c *Config) StrobeInterval() time.Duration {
	return time.Duration(c.Strobe.IntervalMs) * time.Millisecond
}

// HeartbeatInterval returns the heartbeat publish interval.
// Zero disables heartbeats.
func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.MQTT.HeartbeatMs) * time.Millisecond
}

// HapticPulse returns the haptic pulse duration.
func (c *Config) HapticPulse() time.Duration {
	return time.Duration(c.Hardware.HapticPulseMs) * time.Millisecond
}
