package main

import (
	"errors"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/sweeney/torchd/internal/haptic"
	"github.com/sweeney/torchd/internal/logic"
	"github.com/sweeney/torchd/internal/motion"
	"github.com/sweeney/torchd/internal/mqtt"
	"github.com/sweeney/torchd/internal/torch"
	"github.com/sweeney/torchd/internal/web"
)

// fakeClock returns a function that yields start, start+step, start+2*step, ...
// on successive calls. Not safe for concurrent use (only called from runLoop's goroutine).
func fakeClock(start time.Time, step time.Duration) func() time.Time {
	n := 0
	return func() time.Time {
		t := start.Add(time.Duration(n) * step)
		n++
		return t
	}
}

// fakeTimer records scheduled pattern delays and fires on demand.
type fakeTimer struct {
	ch        chan time.Time
	scheduled []time.Duration
	stops     int
}

func newFakeTimer() *fakeTimer {
	return &fakeTimer{ch: make(chan time.Time)}
}

func (f *fakeTimer) Schedule(d time.Duration) { f.scheduled = append(f.scheduled, d) }
func (f *fakeTimer) Stop()                    { f.stops++ }
func (f *fakeTimer) C() <-chan time.Time      { return f.ch }
func (f *fakeTimer) fire()                    { f.ch <- time.Time{} }

// rest is an at-rest accelerometer reading (gravity only).
var rest = motion.Sample{Z: 1.0}

// shaken is a reading well above the shake threshold.
var shaken = motion.Sample{X: 2, Y: 2, Z: 2}

type harness struct {
	torch    *torch.FakeController
	motor    *haptic.FakeMotor
	pub      *mqtt.FakePublisher
	timer    *fakeTimer
	tick     chan time.Time
	commands chan web.Command
	sig      chan os.Signal
	errCh    chan error
}

// startLoop runs runLoop in a goroutine against fake hardware. mutate may
// adjust the params before the loop starts.
func startLoop(t *testing.T, sampler motion.Sampler, clock func() time.Time, mutate func(*loopParams)) *harness {
	t.Helper()
	h := &harness{
		torch:    torch.NewFakeController(),
		motor:    haptic.NewFakeMotor(),
		pub:      mqtt.NewFakePublisher(),
		timer:    newFakeTimer(),
		tick:     make(chan time.Time),
		commands: make(chan web.Command),
		sig:      make(chan os.Signal, 1),
		errCh:    make(chan error, 1),
	}

	p := loopParams{
		torch:          h.torch,
		motor:          h.motor,
		sampler:        sampler,
		publisher:      h.pub,
		mqttStatus:     h.pub,
		strobeInterval: 100 * time.Millisecond,
		heartbeat:      0,
		hapticPulse:    200 * time.Millisecond,
		shakeThreshold: 1.5,
		shakeDebounce:  time.Second,
		shakeEnabled:   true,
		now:            clock,
		tick:           h.tick,
		timer:          h.timer,
		commands:       h.commands,
		sig:            h.sig,
	}
	if mutate != nil {
		mutate(&p)
	}

	go func() {
		h.errCh <- runLoop(p)
	}()
	return h
}

// send delivers a command to the loop and waits for the reply.
func (h *harness) send(t *testing.T, cmd web.Command) error {
	t.Helper()
	cmd.Reply = make(chan error, 1)
	h.commands <- cmd
	select {
	case err := <-cmd.Reply:
		return err
	case <-time.After(time.Second):
		t.Fatal("no reply from run loop")
		return nil
	}
}

// shutdown signals the loop and waits for it to exit.
func (h *harness) shutdown(t *testing.T, sig os.Signal) {
	t.Helper()
	h.sig <- sig
	select {
	case err := <-h.errCh:
		if err != nil {
			t.Fatalf("runLoop returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("runLoop did not exit")
	}
}

func eventTypes(events []logic.Event) []logic.EventType {
	out := make([]logic.EventType, len(events))
	for i, e := range events {
		out[i] = e.Type
	}
	return out
}

func TestRunLoopManualToggle(t *testing.T) {
	clock := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 100*time.Millisecond)
	h := startLoop(t, motion.NewFakeSampler([]motion.Sample{rest}), clock, nil)

	if err := h.send(t, web.Command{Kind: web.CmdToggleTorch}); err != nil {
		t.Fatalf("toggle on: %v", err)
	}
	if err := h.send(t, web.Command{Kind: web.CmdToggleTorch}); err != nil {
		t.Fatalf("toggle off: %v", err)
	}
	h.shutdown(t, syscall.SIGTERM)

	want := []bool{true, false}
	if len(h.torch.Transitions) != 2 || h.torch.Transitions[0] != want[0] || h.torch.Transitions[1] != want[1] {
		t.Errorf("torch transitions: got %v, want %v", h.torch.Transitions, want)
	}
	if len(h.pub.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(h.pub.Events))
	}
	if h.pub.Events[0].Type != logic.EventTorchOn || h.pub.Events[1].Type != logic.EventTorchOff {
		t.Errorf("event types: got %v", eventTypes(h.pub.Events))
	}
}

func TestRunLoopStrobe(t *testing.T) {
	clock := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 100*time.Millisecond)
	h := startLoop(t, motion.NewFakeSampler([]motion.Sample{rest}), clock, nil)

	if err := h.send(t, web.Command{Kind: web.CmdStrobe, Active: true}); err != nil {
		t.Fatalf("start strobe: %v", err)
	}
	for i := 0; i < 5; i++ {
		h.timer.fire()
	}
	if err := h.send(t, web.Command{Kind: web.CmdStrobe, Active: false}); err != nil {
		t.Fatalf("stop strobe: %v", err)
	}
	h.shutdown(t, syscall.SIGTERM)

	// Start + 5 fires each schedule a 100ms toggle.
	if len(h.timer.scheduled) != 6 {
		t.Fatalf("scheduled: got %d, want 6", len(h.timer.scheduled))
	}
	for i, d := range h.timer.scheduled {
		if d != 100*time.Millisecond {
			t.Errorf("scheduled[%d]: got %v, want 100ms", i, d)
		}
	}
	if h.timer.stops == 0 {
		t.Error("expected timer stop on strobe stop")
	}

	// 5 toggles from off: on,off,on,off,on. Stop forces the final off.
	want := []bool{true, false, true, false, true, false}
	if len(h.torch.Transitions) != len(want) {
		t.Fatalf("torch transitions: got %v, want %v", h.torch.Transitions, want)
	}
	for i := range want {
		if h.torch.Transitions[i] != want[i] {
			t.Errorf("transition %d: got %v, want %v", i, h.torch.Transitions[i], want[i])
		}
	}
	if h.torch.On {
		t.Error("torch must be off after strobe stop")
	}

	types := eventTypes(h.pub.Events)
	if types[0] != logic.EventStrobeStart {
		t.Errorf("first event: got %s, want STROBE_START", types[0])
	}
	if types[len(types)-1] != logic.EventStrobeStop {
		t.Errorf("last event: got %s, want STROBE_STOP", types[len(types)-1])
	}
}

func TestRunLoopSOS(t *testing.T) {
	clock := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 100*time.Millisecond)
	h := startLoop(t, motion.NewFakeSampler([]motion.Sample{rest}), clock, nil)

	if err := h.send(t, web.Command{Kind: web.CmdSOS}); err != nil {
		t.Fatalf("start sos: %v", err)
	}
	for i := 0; i < 9; i++ {
		h.timer.fire()
	}
	h.shutdown(t, syscall.SIGTERM)

	// Three short, three long, three short.
	s := 300 * time.Millisecond
	l := 900 * time.Millisecond
	wantDelays := []time.Duration{s, s, s, l, l, l, s, s, s}
	if len(h.timer.scheduled) != len(wantDelays) {
		t.Fatalf("scheduled: got %v, want %v", h.timer.scheduled, wantDelays)
	}
	for i, want := range wantDelays {
		if h.timer.scheduled[i] != want {
			t.Errorf("scheduled[%d]: got %v, want %v", i, h.timer.scheduled[i], want)
		}
	}

	types := eventTypes(h.pub.Events)
	if types[0] != logic.EventSOSStart {
		t.Errorf("first event: got %s, want SOS_START", types[0])
	}
	if types[len(types)-1] != logic.EventSOSDone {
		t.Errorf("last event: got %s, want SOS_DONE", types[len(types)-1])
	}
	if h.torch.On {
		t.Error("torch must be off after the pattern completes")
	}
	// After completion a manual toggle works again without stopping anything.
	// (Checked through the published mode on the final event.)
	if h.pub.Events[len(h.pub.Events)-1].Mode != logic.ModeIdle {
		t.Errorf("final mode: got %s, want IDLE", h.pub.Events[len(h.pub.Events)-1].Mode)
	}
}

func TestRunLoopControlsRejectedDuringSOS(t *testing.T) {
	clock := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 100*time.Millisecond)
	h := startLoop(t, motion.NewFakeSampler([]motion.Sample{rest}), clock, nil)

	if err := h.send(t, web.Command{Kind: web.CmdSOS}); err != nil {
		t.Fatalf("start sos: %v", err)
	}
	if err := h.send(t, web.Command{Kind: web.CmdToggleTorch}); !errors.Is(err, logic.ErrModeActive) {
		t.Errorf("toggle during sos: got %v, want ErrModeActive", err)
	}
	if err := h.send(t, web.Command{Kind: web.CmdStrobe, Active: true}); !errors.Is(err, logic.ErrModeActive) {
		t.Errorf("strobe during sos: got %v, want ErrModeActive", err)
	}
	h.shutdown(t, syscall.SIGTERM)
}

func TestRunLoopShakeTogglesTorchAndPulsesMotor(t *testing.T) {
	sampler := motion.NewFakeSampler([]motion.Sample{rest, shaken, rest})
	clock := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 100*time.Millisecond)
	h := startLoop(t, sampler, clock, nil)

	for i := 0; i < 3; i++ {
		h.tick <- time.Time{}
	}
	h.shutdown(t, syscall.SIGTERM)

	if !h.torch.On {
		t.Error("expected torch on after shake")
	}
	if len(h.motor.Pulses) != 1 {
		t.Fatalf("motor pulses: got %d, want 1", len(h.motor.Pulses))
	}
	if h.motor.Pulses[0] != 200*time.Millisecond {
		t.Errorf("pulse duration: got %v, want 200ms", h.motor.Pulses[0])
	}

	types := eventTypes(h.pub.Events)
	if len(types) != 2 || types[0] != logic.EventShake || types[1] != logic.EventTorchOn {
		t.Errorf("events: got %v, want [SHAKE TORCH_ON]", types)
	}
}

func TestRunLoopShakeDebounced(t *testing.T) {
	// Two shakes 100ms apart: the second is inside the debounce window.
	sampler := motion.NewFakeSampler([]motion.Sample{shaken, shaken, rest})
	clock := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 100*time.Millisecond)
	h := startLoop(t, sampler, clock, nil)

	for i := 0; i < 3; i++ {
		h.tick <- time.Time{}
	}
	h.shutdown(t, syscall.SIGTERM)

	if len(h.motor.Pulses) != 1 {
		t.Errorf("motor pulses: got %d, want 1", len(h.motor.Pulses))
	}
	if !h.torch.On {
		t.Error("expected a single toggle, torch on")
	}
}

func TestRunLoopShakeSuppressedDuringStrobe(t *testing.T) {
	sampler := motion.NewFakeSampler([]motion.Sample{shaken})
	clock := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 100*time.Millisecond)
	h := startLoop(t, sampler, clock, nil)

	if err := h.send(t, web.Command{Kind: web.CmdStrobe, Active: true}); err != nil {
		t.Fatalf("start strobe: %v", err)
	}
	h.tick <- time.Time{}
	h.shutdown(t, syscall.SIGTERM)

	// The shake is published for observers but neither flips the torch
	// nor pulses the motor.
	var shakes int
	for _, e := range h.pub.Events {
		if e.Type == logic.EventShake {
			shakes++
			if e.Mode != logic.ModeStrobe {
				t.Errorf("shake mode: got %s, want STROBE", e.Mode)
			}
		}
	}
	if shakes != 1 {
		t.Errorf("shake events: got %d, want 1", shakes)
	}
	if len(h.motor.Pulses) != 0 {
		t.Errorf("motor pulses: got %d, want 0", len(h.motor.Pulses))
	}
	if len(h.torch.Transitions) != 0 {
		t.Errorf("torch transitions during strobe wait: got %v, want none", h.torch.Transitions)
	}
}

func TestRunLoopShakeDisabled(t *testing.T) {
	sampler := motion.NewFakeSampler([]motion.Sample{shaken})
	clock := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 100*time.Millisecond)
	h := startLoop(t, sampler, clock, nil)

	if err := h.send(t, web.Command{Kind: web.CmdShake, Active: false}); err != nil {
		t.Fatalf("disable shake: %v", err)
	}
	h.tick <- time.Time{}
	h.shutdown(t, syscall.SIGTERM)

	if len(h.pub.Events) != 0 {
		t.Errorf("expected no events with shake disabled, got %v", eventTypes(h.pub.Events))
	}
	if len(h.motor.Pulses) != 0 {
		t.Errorf("motor pulses: got %d, want 0", len(h.motor.Pulses))
	}
}

func TestRunLoopIntensity(t *testing.T) {
	clock := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 100*time.Millisecond)
	h := startLoop(t, motion.NewFakeSampler([]motion.Sample{rest}), clock, nil)

	if err := h.send(t, web.Command{Kind: web.CmdIntensity, Value: 0.5}); err != nil {
		t.Errorf("set intensity 0.5: %v", err)
	}
	if err := h.send(t, web.Command{Kind: web.CmdIntensity, Value: 1.5}); !errors.Is(err, logic.ErrIntensityRange) {
		t.Errorf("set intensity 1.5: got %v, want ErrIntensityRange", err)
	}
	h.shutdown(t, syscall.SIGTERM)
}

func TestRunLoopTorchUnavailable(t *testing.T) {
	clock := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 100*time.Millisecond)
	fakeCtl := torch.NewFakeController()
	h := startLoop(t, motion.NewFakeSampler([]motion.Sample{shaken}), clock, func(p *loopParams) {
		p.torch = nil
		p.reacquire = func() (torch.Controller, error) {
			return fakeCtl, nil
		}
	})

	if err := h.send(t, web.Command{Kind: web.CmdToggleTorch}); !errors.Is(err, logic.ErrTorchUnavailable) {
		t.Errorf("toggle: got %v, want ErrTorchUnavailable", err)
	}
	if err := h.send(t, web.Command{Kind: web.CmdStrobe, Active: true}); !errors.Is(err, logic.ErrTorchUnavailable) {
		t.Errorf("strobe: got %v, want ErrTorchUnavailable", err)
	}

	// Shakes are counted but cannot flip the torch while it is unavailable.
	h.tick <- time.Time{}

	if err := h.send(t, web.Command{Kind: web.CmdAcquireTorch}); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := h.send(t, web.Command{Kind: web.CmdToggleTorch}); err != nil {
		t.Fatalf("toggle after acquire: %v", err)
	}
	h.shutdown(t, syscall.SIGTERM)

	if !fakeCtl.On {
		t.Error("expected torch on after re-acquire and toggle")
	}
}

func TestRunLoopAcquireFailure(t *testing.T) {
	clock := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 100*time.Millisecond)
	h := startLoop(t, motion.NewFakeSampler([]motion.Sample{rest}), clock, func(p *loopParams) {
		p.torch = nil
		p.reacquire = func() (torch.Controller, error) {
			return nil, errors.New("line busy")
		}
	})

	err := h.send(t, web.Command{Kind: web.CmdAcquireTorch})
	if !errors.Is(err, logic.ErrTorchUnavailable) {
		t.Errorf("acquire: got %v, want ErrTorchUnavailable", err)
	}
	h.shutdown(t, syscall.SIGTERM)
}

func TestRunLoopHeartbeat(t *testing.T) {
	// 5-minute clock steps with a 15-minute heartbeat: the third tick fires it.
	clock := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 5*time.Minute)
	h := startLoop(t, motion.NewFakeSampler([]motion.Sample{rest}), clock, func(p *loopParams) {
		p.heartbeat = 15 * time.Minute
	})

	for i := 0; i < 4; i++ {
		h.tick <- time.Time{}
	}
	h.shutdown(t, syscall.SIGTERM)

	var heartbeats, shutdowns int
	for _, se := range h.pub.SystemEvents {
		switch se.Event {
		case "HEARTBEAT":
			heartbeats++
		case "SHUTDOWN":
			shutdowns++
		}
	}
	if heartbeats != 1 {
		t.Errorf("expected 1 HEARTBEAT event, got %d", heartbeats)
	}
	if shutdowns != 1 {
		t.Errorf("expected 1 SHUTDOWN event, got %d", shutdowns)
	}
}

func TestRunLoopSamplerError(t *testing.T) {
	sampler := motion.NewFakeSampler(nil)
	sampler.ReadError = errors.New("iio fault")
	clock := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 100*time.Millisecond)
	h := startLoop(t, sampler, clock, nil)

	// Loop should survive read errors and still answer commands.
	h.tick <- time.Time{}
	h.tick <- time.Time{}
	if err := h.send(t, web.Command{Kind: web.CmdToggleTorch}); err != nil {
		t.Errorf("toggle after read errors: %v", err)
	}
	h.shutdown(t, syscall.SIGTERM)
}

func TestRunLoopShutdownForcesTorchOff(t *testing.T) {
	clock := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 100*time.Millisecond)
	h := startLoop(t, motion.NewFakeSampler([]motion.Sample{rest}), clock, nil)

	if err := h.send(t, web.Command{Kind: web.CmdToggleTorch}); err != nil {
		t.Fatalf("toggle on: %v", err)
	}
	h.shutdown(t, syscall.SIGINT)

	if h.torch.On {
		t.Error("torch must be off after shutdown")
	}
	if len(h.pub.SystemEvents) != 1 {
		t.Fatalf("expected 1 system event, got %d", len(h.pub.SystemEvents))
	}
	se := h.pub.SystemEvents[0]
	if se.Event != "SHUTDOWN" {
		t.Errorf("expected SHUTDOWN, got %q", se.Event)
	}
	if se.Reason != "SIGINT" {
		t.Errorf("expected reason SIGINT, got %q", se.Reason)
	}
	if !se.Retained {
		t.Error("expected Retained=true for SHUTDOWN")
	}
}
