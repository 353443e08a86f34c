package motion

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// standardGravity converts the IIO m/s² readings into g.
const standardGravity = 9.80665

// IIOSampler reads a 3-axis accelerometer through the Linux industrial I/O
// sysfs interface (in_accel_{x,y,z}_raw scaled by in_accel_scale).
type IIOSampler struct {
	dir   string
	scale float64
}

// NewIIOSampler opens the IIO device at dir and verifies all three axes are
// readable. If the device exposes no scale attribute, raw values are assumed
// to already be in m/s².
func NewIIOSampler(dir string) (*IIOSampler, error) {
	s := &IIOSampler{dir: dir, scale: 1.0}

	for _, axis := range []string{"x", "y", "z"} {
		if _, err := s.readAttr("in_accel_" + axis + "_raw"); err != nil {
			return nil, fmt.Errorf("probe accel %s axis: %w", axis, err)
		}
	}

	if scale, err := s.readAttr("in_accel_scale"); err == nil && scale != 0 {
		s.scale = scale
	}

	return s, nil
}

// Read returns the current acceleration in g.
func (s *IIOSampler) Read() (Sample, error) {
	x, err := s.readAttr("in_accel_x_raw")
	if err != nil {
		return Sample{}, fmt.Errorf("read accel x: %w", err)
	}
	y, err := s.readAttr("in_accel_y_raw")
	if err != nil {
		return Sample{}, fmt.Errorf("read accel y: %w", err)
	}
	z, err := s.readAttr("in_accel_z_raw")
	if err != nil {
		return Sample{}, fmt.Errorf("read accel z: %w", err)
	}

	return Sample{
		X: x * s.scale / standardGravity,
		Y: y * s.scale / standardGravity,
		Z: z * s.scale / standardGravity,
	}, nil
}

// Close releases sampler resources. Sysfs attributes are opened per read, so
// there is nothing to release.
func (s *IIOSampler) Close() error {
	return nil
}

func (s *IIOSampler) readAttr(name string) (float64, error) {
	b, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(string(b)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", name, err)
	}
	return v, nil
}
