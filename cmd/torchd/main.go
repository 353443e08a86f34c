// Command torchd drives a GPIO torch LED. It supports manual toggling over
// HTTP, strobe and S.O.S light patterns, shake-to-toggle from an IIO
// accelerometer with haptic feedback, and publishes every state change to
// MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/torchd/internal/config"
	"github.com/sweeney/torchd/internal/haptic"
	"github.com/sweeney/torchd/internal/logic"
	"github.com/sweeney/torchd/internal/motion"
	"github.com/sweeney/torchd/internal/mqtt"
	"github.com/sweeney/torchd/internal/status"
	"github.com/sweeney/torchd/internal/torch"
	"github.com/sweeney/torchd/internal/web"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (flags override it)")
	poll := flag.Duration("poll", 100*time.Millisecond, "Accelerometer polling interval")
	strobe := flag.Duration("strobe", logic.DefaultStrobeInterval, "Strobe toggle interval")
	shakeThreshold := flag.Float64("shake-threshold", logic.DefaultShakeThreshold, "Shake magnitude threshold in g")
	shakeDebounce := flag.Duration("shake-debounce", logic.DefaultShakeDebounce, "Minimum time between shake toggles")
	broker := flag.String("broker", "tcp://localhost:1883", "MQTT broker address")
	heartbeat := flag.Duration("heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	httpAddr := flag.String("http", ":8080", "HTTP control address (empty to disable)")
	torchPin := flag.Int("torch-pin", torch.DefaultPin, "BCM pin number for the torch LED")
	hapticPin := flag.Int("haptic-pin", haptic.DefaultPin, "BCM pin number for the vibration motor")
	iioDevice := flag.String("iio", motion.DefaultDevice, "IIO accelerometer sysfs directory")
	printSample := flag.Bool("print-sample", false, "Print one accelerometer sample and exit")

	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("fatal: %v", err)
		}
		cfg = loaded
	}

	// Flags that were explicitly set win over the config file.
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["poll"] {
		cfg.Motion.PollMs = poll.Milliseconds()
	}
	if set["strobe"] {
		cfg.Strobe.IntervalMs = strobe.Milliseconds()
	}
	if set["shake-threshold"] {
		cfg.Motion.ShakeThreshold = *shakeThreshold
	}
	if set["shake-debounce"] {
		cfg.Motion.ShakeDebounceMs = shakeDebounce.Milliseconds()
	}
	if set["broker"] {
		cfg.MQTT.Broker = *broker
	}
	if set["heartbeat"] {
		cfg.MQTT.HeartbeatMs = heartbeat.Milliseconds()
	}
	if set["http"] {
		cfg.HTTP.Addr = *httpAddr
	}
	if set["torch-pin"] {
		cfg.Hardware.TorchPin = *torchPin
	}
	if set["haptic-pin"] {
		cfg.Hardware.HapticPin = *hapticPin
	}
	if set["iio"] {
		cfg.Hardware.IIODevice = *iioDevice
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("fatal: config: %v", err)
	}

	if err := run(cfg, *printSample); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(cfg config.Config, printSample bool) error {
	// Initialize accelerometer
	sampler, err := motion.NewIIOSampler(cfg.Hardware.IIODevice)
	if err != nil {
		return fmt.Errorf("init accelerometer: %w", err)
	}
	defer sampler.Close()

	// Print sample mode
	if printSample {
		s, err := sampler.Read()
		if err != nil {
			return fmt.Errorf("read accelerometer: %w", err)
		}
		fmt.Printf("x=%.3f y=%.3f z=%.3f magnitude=%.3f\n", s.X, s.Y, s.Z, s.Magnitude())
		return nil
	}

	// Initialize torch. A failure here is not fatal: the daemon starts
	// degraded and the line can be re-acquired over the API.
	var torchCtl torch.Controller
	realTorch, err := torch.NewRealController(cfg.Hardware.TorchPin)
	if err != nil {
		log.Printf("torch unavailable: %v", err)
	} else {
		torchCtl = realTorch
		defer realTorch.Close()
	}

	// Initialize haptics. Optional as well: shake feedback is skipped
	// when the motor is missing.
	var motor haptic.Motor
	realMotor, err := haptic.NewRealMotor(cfg.Hardware.HapticPin)
	if err != nil {
		log.Printf("haptic motor unavailable: %v", err)
	} else {
		motor = realMotor
		defer realMotor.Close()
	}

	// Initialize MQTT
	publisher := mqtt.NewRealPublisher(cfg.MQTT.Broker)
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:          cfg.Motion.PollMs,
		StrobeMs:        cfg.Strobe.IntervalMs,
		ShakeThreshold:  cfg.Motion.ShakeThreshold,
		ShakeDebounceMs: cfg.Motion.ShakeDebounceMs,
		HeartbeatMs:     cfg.MQTT.HeartbeatMs,
		Broker:          cfg.MQTT.Broker,
		HTTPAddr:        cfg.HTTP.Addr,
	})
	tracker.SetTorchAvailable(torchCtl != nil)

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	// Start HTTP control server
	commands := make(chan web.Command)
	var hub *web.Hub
	if cfg.HTTP.Addr != "" {
		hub = web.NewHub()
		srv := web.New(cfg.HTTP.Addr, tracker, commands, hub)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http control server listening on %s", cfg.HTTP.Addr)
	}

	log.Printf("started: poll=%v strobe=%v shake-threshold=%.2fg debounce=%v broker=%s heartbeat=%v",
		cfg.PollInterval(), cfg.StrobeInterval(), cfg.Motion.ShakeThreshold, cfg.ShakeDebounce(), cfg.MQTT.Broker, cfg.HeartbeatInterval())

	ticker := time.NewTicker(cfg.PollInterval())
	defer ticker.Stop()

	timer := newRealTimer()
	defer timer.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(loopParams{
		torch:          torchCtl,
		motor:          motor,
		sampler:        sampler,
		publisher:      publisher,
		mqttStatus:     publisher,
		tracker:        tracker,
		hub:            hub,
		strobeInterval: cfg.StrobeInterval(),
		heartbeat:      cfg.HeartbeatInterval(),
		hapticPulse:    cfg.HapticPulse(),
		shakeThreshold: cfg.Motion.ShakeThreshold,
		shakeDebounce:  cfg.ShakeDebounce(),
		shakeEnabled:   cfg.Motion.ShakeEnabled,
		reacquire: func() (torch.Controller, error) {
			return torch.NewRealController(cfg.Hardware.TorchPin)
		},
		now:      time.Now,
		tick:     ticker.C,
		timer:    timer,
		commands: commands,
		sig:      sigCh,
	})
}

// patternTimer schedules the next strobe or S.O.S toggle. Its channel is
// nil while nothing is scheduled, so it never fires spuriously.
type patternTimer interface {
	Schedule(d time.Duration)
	Stop()
	C() <-chan time.Time
}

type realTimer struct {
	t *time.Timer
}

func newRealTimer() *realTimer {
	return &realTimer{}
}

func (r *realTimer) Schedule(d time.Duration) {
	r.Stop()
	r.t = time.NewTimer(d)
}

func (r *realTimer) Stop() {
	if r.t != nil {
		if !r.t.Stop() {
			select {
			case <-r.t.C:
			default:
			}
		}
		r.t = nil
	}
}

func (r *realTimer) C() <-chan time.Time {
	if r.t == nil {
		return nil
	}
	return r.t.C
}

type loopParams struct {
	torch      torch.Controller
	motor      haptic.Motor
	sampler    motion.Sampler
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	hub        *web.Hub

	strobeInterval time.Duration
	heartbeat      time.Duration
	hapticPulse    time.Duration
	shakeThreshold float64
	shakeDebounce  time.Duration
	shakeEnabled   bool

	// reacquire re-requests the torch GPIO line after a degraded start.
	reacquire func() (torch.Controller, error)

	now      func() time.Time
	tick     <-chan time.Time
	timer    patternTimer
	commands <-chan web.Command
	sig      <-chan os.Signal
}

func runLoop(p loopParams) error {
	startTime := p.now()
	shake := logic.NewShakeDetector(p.shakeThreshold, p.shakeDebounce)
	shake.SetEnabled(p.shakeEnabled)
	coord := logic.NewCoordinator(shake, p.strobeInterval, startTime)
	coord.SetTorchAvailable(p.torch != nil)
	syncTracker(coord, &p)

	for {
		select {
		case s := <-p.sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}

			p.timer.Stop()

			// The torch must never stay on past the daemon.
			if p.torch != nil && coord.Torch() {
				if err := p.torch.Set(false); err != nil {
					log.Printf("torch off on shutdown: %v", err)
				}
			}

			event := mqtt.SystemEvent{
				Timestamp: p.now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if p.tracker != nil {
				if p.mqttStatus != nil {
					p.tracker.SetMQTTConnected(p.mqttStatus.IsConnected())
				}
				snap := p.tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := p.publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case <-p.tick:
			t := p.now()
			sample, err := p.sampler.Read()
			if err != nil {
				log.Printf("accelerometer read error: %v", err)
				continue
			}
			if p.tracker != nil {
				p.tracker.SetSample(sample, t)
			}
			if p.hub != nil {
				p.hub.Broadcast(web.MotionFrame(sample, t))
			}

			events, flipped := coord.HandleSample(sample.X, sample.Y, sample.Z, t)
			if flipped && p.motor != nil {
				if err := p.motor.Pulse(p.hapticPulse); err != nil {
					log.Printf("haptic pulse error: %v", err)
				}
			}
			applyEvents(coord, &p, events)

			if hb := coord.CheckHeartbeat(t, p.heartbeat); hb != nil {
				log.Printf("heartbeat: uptime=%v torch_on=%d torch_off=%d shakes=%d strobes=%d sos=%d",
					hb.Uptime, hb.Counts.TorchOn, hb.Counts.TorchOff, hb.Counts.Shakes, hb.Counts.StrobeStarts, hb.Counts.SOSRuns)

				hbEvent := mqtt.SystemEvent{
					Timestamp: hb.Timestamp,
					Event:     "HEARTBEAT",
				}
				if p.tracker != nil {
					if p.mqttStatus != nil {
						p.tracker.SetMQTTConnected(p.mqttStatus.IsConnected())
					}
					syncTracker(coord, &p)
					snap := p.tracker.Snapshot()
					hbEvent.RawPayload = status.FormatStatusEvent(snap, "HEARTBEAT", "")
				}
				if err := p.publisher.PublishSystem(hbEvent); err != nil {
					log.Printf("heartbeat publish error: %v", err)
				}
			}

			if len(events) > 0 {
				syncTracker(coord, &p)
				broadcastState(&p)
			} else if p.tracker != nil && p.mqttStatus != nil {
				p.tracker.SetMQTTConnected(p.mqttStatus.IsConnected())
			}

		case <-p.timer.C():
			t := p.now()
			events, next, done := coord.PatternTick(t)
			applyEvents(coord, &p, events)
			if !done {
				p.timer.Schedule(next)
			}
			syncTracker(coord, &p)
			broadcastState(&p)

		case cmd := <-p.commands:
			err := handleCommand(coord, &p, cmd)
			syncTracker(coord, &p)
			broadcastState(&p)
			if cmd.Reply != nil {
				cmd.Reply <- err
			}
		}
	}
}

func handleCommand(coord *logic.Coordinator, p *loopParams, cmd web.Command) error {
	t := p.now()

	switch cmd.Kind {
	case web.CmdToggleTorch:
		events, err := coord.ToggleTorch(t)
		if err != nil {
			return err
		}
		applyEvents(coord, p, events)
		return nil

	case web.CmdStrobe:
		if cmd.Active {
			events, delay, err := coord.StartStrobe(t)
			if err != nil {
				return err
			}
			applyEvents(coord, p, events)
			p.timer.Schedule(delay)
			return nil
		}
		events, err := coord.StopStrobe(t)
		if err != nil {
			return err
		}
		p.timer.Stop()
		applyEvents(coord, p, events)
		return nil

	case web.CmdSOS:
		events, delay, err := coord.StartSOS(t)
		if err != nil {
			return err
		}
		applyEvents(coord, p, events)
		p.timer.Schedule(delay)
		return nil

	case web.CmdShake:
		coord.SetShakeEnabled(cmd.Active)
		log.Printf("shake-to-toggle %s", enabledString(cmd.Active))
		return nil

	case web.CmdIntensity:
		if err := coord.SetIntensity(cmd.Value); err != nil {
			return err
		}
		log.Printf("intensity set to %.2f (cosmetic, hardware has no dimmer)", cmd.Value)
		return nil

	case web.CmdAcquireTorch:
		if coord.TorchAvailable() {
			return nil
		}
		ctl, err := p.reacquire()
		if err != nil {
			log.Printf("torch re-acquire failed: %v", err)
			return fmt.Errorf("%w: %v", logic.ErrTorchUnavailable, err)
		}
		p.torch = ctl
		coord.SetTorchAvailable(true)
		log.Printf("torch re-acquired")
		return nil

	default:
		return fmt.Errorf("unknown command kind %d", cmd.Kind)
	}
}

// applyEvents drives the torch hardware and publishes each event.
func applyEvents(coord *logic.Coordinator, p *loopParams, events []logic.Event) {
	for _, event := range events {
		switch event.Type {
		case logic.EventTorchOn, logic.EventTorchOff:
			if p.torch != nil {
				if err := p.torch.Set(event.Torch); err != nil {
					log.Printf("torch set error: %v", err)
				}
			}
		}

		log.Printf("event: %s (torch=%s mode=%s)", event.Type, onOffString(event.Torch), event.Mode)
		if err := p.publisher.Publish(event); err != nil {
			log.Printf("publish error: %v", err)
			// Don't crash on publish failure
		}
	}
}

func syncTracker(coord *logic.Coordinator, p *loopParams) {
	if p.tracker == nil {
		return
	}
	p.tracker.Update(coord.Mode(), coord.Torch(), coord.ShakeEnabled(), coord.Intensity(), coord.Counts())
	p.tracker.SetTorchAvailable(coord.TorchAvailable())
	if p.mqttStatus != nil {
		p.tracker.SetMQTTConnected(p.mqttStatus.IsConnected())
	}
}

func broadcastState(p *loopParams) {
	if p.hub == nil || p.tracker == nil {
		return
	}
	p.hub.Broadcast(web.StateFrame(p.tracker.Snapshot()))
}

func onOffString(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}

func enabledString(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}
