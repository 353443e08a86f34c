package logic

import (
	"testing"
	"time"
)

func TestShakeBelowThreshold(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewShakeDetector(DefaultShakeThreshold, DefaultShakeDebounce)

	// Resting device: gravity only, magnitude ~1.0.
	for i := 0; i < 20; i++ {
		if d.Process(0, 0, 1.0, now.Add(time.Duration(i)*100*time.Millisecond)) {
			t.Errorf("sample %d: shake fired for resting device", i)
		}
	}
}

func TestShakeAtThresholdDoesNotFire(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewShakeDetector(1.5, DefaultShakeDebounce)

	// Magnitude exactly 1.5 must not fire: the comparison is strict.
	if d.Process(1.5, 0, 0, now) {
		t.Error("shake fired at exactly the threshold")
	}
}

func TestShakeAboveThresholdFires(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewShakeDetector(1.5, DefaultShakeDebounce)

	// (2,2,2) has magnitude ~3.46.
	if !d.Process(2, 2, 2, now) {
		t.Error("expected shake for magnitude ~3.46")
	}
}

func TestShakeDebounce(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewShakeDetector(1.5, 1000*time.Millisecond)

	// Spec scenario: fire at t=0, suppress at t=500ms, fire again at t=1200ms.
	if !d.Process(2, 2, 2, now) {
		t.Fatal("first qualifying sample should fire")
	}
	if d.Process(2, 2, 2, now.Add(500*time.Millisecond)) {
		t.Error("second qualifying sample within debounce window fired")
	}
	if !d.Process(2, 2, 2, now.Add(1200*time.Millisecond)) {
		t.Error("third qualifying sample after debounce window did not fire")
	}
}

func TestShakeDebounceBoundary(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewShakeDetector(1.5, 1000*time.Millisecond)

	if !d.Process(3, 0, 0, now) {
		t.Fatal("first qualifying sample should fire")
	}
	// Exactly the debounce window later: fires again (>= semantics).
	if !d.Process(3, 0, 0, now.Add(1000*time.Millisecond)) {
		t.Error("qualifying sample at exactly the debounce window did not fire")
	}
}

func TestShakeDebounceMeasuredFromLastFired(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewShakeDetector(1.5, 1000*time.Millisecond)

	if !d.Process(3, 0, 0, now) {
		t.Fatal("first qualifying sample should fire")
	}
	// Suppressed samples must not extend the debounce window.
	if d.Process(3, 0, 0, now.Add(400*time.Millisecond)) {
		t.Error("suppressed sample fired")
	}
	if d.Process(3, 0, 0, now.Add(800*time.Millisecond)) {
		t.Error("suppressed sample fired")
	}
	if !d.Process(3, 0, 0, now.Add(1000*time.Millisecond)) {
		t.Error("debounce window was extended by suppressed samples")
	}
}

func TestShakeDisabled(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewShakeDetector(1.5, 1000*time.Millisecond)

	d.SetEnabled(false)
	if d.Enabled() {
		t.Error("Enabled() should report false after SetEnabled(false)")
	}
	if d.Process(9, 9, 9, now) {
		t.Error("shake fired while detection disabled")
	}

	d.SetEnabled(true)
	if !d.Process(9, 9, 9, now.Add(100*time.Millisecond)) {
		t.Error("shake did not fire after re-enabling")
	}
}

func TestShakeFirstSampleNotDebounced(t *testing.T) {
	// The zero lastShake must not suppress the very first shake even when
	// the clock starts near the zero time.
	d := NewShakeDetector(1.5, time.Hour)
	if !d.Process(3, 0, 0, time.Time{}.Add(time.Millisecond)) {
		t.Error("first shake suppressed by uninitialized debounce state")
	}
}
