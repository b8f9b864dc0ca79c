package main

import (
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/sweeney/tank-monitor/internal/clock"
	"github.com/sweeney/tank-monitor/internal/gpio"
	"github.com/sweeney/tank-monitor/internal/manifest"
	"github.com/sweeney/tank-monitor/internal/mqtt"
	"github.com/sweeney/tank-monitor/internal/sensor"
	"github.com/sweeney/tank-monitor/internal/status"
	"github.com/sweeney/tank-monitor/internal/tank"
	"github.com/sweeney/tank-monitor/internal/update"
	"github.com/sweeney/tank-monitor/internal/web"
)

// repeatSamples returns n copies of v, for scripting one debounce burst
// per tick (the debouncer takes sensor.SamplesPerRead raw samples per
// channel per poll).
func repeatSamples(v bool, ticks int) []bool {
	out := make([]bool, ticks*sensor.SamplesPerRead)
	for i := range out {
		out[i] = v
	}
	return out
}

// countingSource advances its uptime by step on every reading. Only the
// loop goroutine touches it, so no locking is needed.
type countingSource struct {
	uptime uint32
	step   uint32
	epoch  int64
}

func (c *countingSource) UptimeMillis() uint32 {
	c.uptime += c.step
	return c.uptime
}

func (c *countingSource) Epoch() int64 { return c.epoch }
func (c *countingSource) Sync()        {}

// harness drives runLoop with fakes.
type harness struct {
	pub      *mqtt.FakePublisher
	tracker  *status.Tracker
	tick     chan time.Time
	commands chan web.UpdateRequest
	sig      chan os.Signal
	errCh    chan error
}

func startLoop(t *testing.T, reader gpio.Reader, src clock.Source, machine *update.Machine, heartbeatMs uint32) *harness {
	t.Helper()

	deb := sensor.NewDebouncer(reader, [gpio.NumChannels]bool{})
	deb.SetSleep(func(time.Duration) {})
	clk := clock.NewFacade(src, clock.DefaultMinValidEpoch, 30_000, 3_600_000)
	engine := tank.NewEngine(deb, clk)

	h := &harness{
		pub:      mqtt.NewFakePublisher(),
		tracker:  status.NewTracker(time.Now(), status.Config{}),
		tick:     make(chan time.Time),
		commands: make(chan web.UpdateRequest),
		sig:      make(chan os.Signal, 1),
		errCh:    make(chan error, 1),
	}
	h.pub.Connected = true

	go func() {
		h.errCh <- runLoop(engine, clk, machine, h.pub, h.pub, h.tracker,
			heartbeatMs, time.Now, h.tick, h.commands, h.sig)
	}()
	return h
}

func (h *harness) ticks(n int) {
	for i := 0; i < n; i++ {
		h.tick <- time.Time{}
	}
}

// command sends an update request and waits for the reply.
func (h *harness) command(action web.Action) string {
	req := web.UpdateRequest{Action: action, Reply: make(chan string, 1)}
	h.commands <- req
	return <-req.Reply
}

// stop signals shutdown and waits for the loop to return.
func (h *harness) stop(t *testing.T) {
	t.Helper()
	h.sig <- syscall.SIGTERM
	if err := <-h.errCh; err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}
}

func TestRunLoopShutdownEvent(t *testing.T) {
	reader := gpio.NewSteadyFakeReader([gpio.NumChannels]bool{})
	h := startLoop(t, reader, &clock.FakeSource{}, nil, 0)

	h.ticks(1)
	h.stop(t)

	if len(h.pub.SystemEvents) != 1 {
		t.Fatalf("expected 1 system event, got %d", len(h.pub.SystemEvents))
	}
	ev := h.pub.SystemEvents[0]
	if ev.Event != "SHUTDOWN" || ev.Reason != "SIGTERM" {
		t.Errorf("unexpected shutdown event: %+v", ev)
	}
	if !ev.Retained {
		t.Error("shutdown event should be retained")
	}
	if ev.RawPayload == nil {
		t.Error("shutdown event should carry a full status payload")
	}
}

func TestRunLoopInitialPoll(t *testing.T) {
	reader := gpio.NewSteadyFakeReader([gpio.NumChannels]bool{2: true, 3: true})
	h := startLoop(t, reader, &clock.FakeSource{UptimeMs: 1000}, nil, 0)

	h.ticks(1)
	h.stop(t)

	// First poll stamps every channel and publishes the initial states.
	if len(h.pub.Events) != gpio.NumChannels {
		t.Fatalf("expected %d level events, got %d", gpio.NumChannels, len(h.pub.Events))
	}
	for _, e := range h.pub.Events {
		if !e.Transition.Initial {
			t.Errorf("channel %d: first sample must be initial", e.Transition.Channel)
		}
		if e.FillPercent != 50 {
			t.Errorf("channel %d: expected fill 50, got %d", e.Transition.Channel, e.FillPercent)
		}
	}

	snap := h.tracker.Snapshot()
	if snap.Level.FillPercent != 50 {
		t.Errorf("tracker fill: got %d, want 50", snap.Level.FillPercent)
	}
	if !snap.MQTTConnected {
		t.Error("tracker should reflect MQTT connection")
	}
	if snap.Transitions[3] == "" || snap.Transitions[3] == "never" {
		t.Errorf("channel 3 transition should be formatted, got %q", snap.Transitions[3])
	}
}

func TestRunLoopLevelChange(t *testing.T) {
	var samples [gpio.NumChannels][]bool
	for i := 0; i < gpio.NumChannels; i++ {
		samples[i] = repeatSamples(false, 2)
	}
	// Bottom probe goes wet on the second tick.
	samples[3] = append(repeatSamples(false, 1), repeatSamples(true, 1)...)

	h := startLoop(t, gpio.NewFakeReader(samples), &clock.FakeSource{UptimeMs: 1000}, nil, 0)

	h.ticks(2)
	h.stop(t)

	if len(h.pub.Events) != gpio.NumChannels+1 {
		t.Fatalf("expected %d events, got %d", gpio.NumChannels+1, len(h.pub.Events))
	}
	last := h.pub.Events[len(h.pub.Events)-1]
	if last.Transition.Channel != 3 || !last.Transition.Wet || last.Transition.Initial {
		t.Errorf("unexpected final transition: %+v", last.Transition)
	}
	if last.FillPercent != 25 {
		t.Errorf("expected fill 25 after bottom went wet, got %d", last.FillPercent)
	}
}

func TestRunLoopHeartbeat(t *testing.T) {
	reader := gpio.NewSteadyFakeReader([gpio.NumChannels]bool{})
	src := &countingSource{step: 1000}
	h := startLoop(t, reader, src, nil, 3000)

	h.ticks(10)
	h.stop(t)

	heartbeats := 0
	for _, ev := range h.pub.SystemEvents {
		if ev.Event == "HEARTBEAT" {
			heartbeats++
			if ev.RawPayload == nil {
				t.Error("heartbeat should carry a full status payload")
			}
		}
	}
	if heartbeats == 0 {
		t.Error("expected at least one heartbeat over 10 ticks")
	}
}

func TestRunLoopUpdateCommands(t *testing.T) {
	ft := manifest.NewFakeTransport(manifest.FakeResponse{
		Status: 200,
		Body:   []byte("version_code=101\nversion_name=1.3.0\nfirmware_url=http://host/fw.bin\n"),
	})
	ota := &update.FakeApplier{Result: update.Result{Outcome: update.OutcomeSuccess}}
	machine := update.NewMachine(100, "1.2.0", "http://host/manifest.txt", ft,
		&update.FakeConnectivity{Connected: true}, ota)

	reader := gpio.NewSteadyFakeReader([gpio.NumChannels]bool{})
	h := startLoop(t, reader, &clock.FakeSource{}, machine, 0)

	msg := h.command(web.ActionCheck)
	if !strings.Contains(msg, "update available") {
		t.Errorf("check reply: got %q", msg)
	}
	if sess := h.tracker.Snapshot().Update; !sess.Available {
		t.Errorf("tracker should reflect the pending update, got %+v", sess)
	}

	msg = h.command(web.ActionInstall)
	if !strings.Contains(msg, "install succeeded") {
		t.Errorf("install reply: got %q", msg)
	}
	if len(ota.URLs) != 1 || ota.URLs[0] != "http://host/fw.bin" {
		t.Errorf("unexpected OTA invocations: %v", ota.URLs)
	}

	h.stop(t)
}

func TestRunLoopUpdatesDisabled(t *testing.T) {
	reader := gpio.NewSteadyFakeReader([gpio.NumChannels]bool{})
	h := startLoop(t, reader, &clock.FakeSource{}, nil, 0)

	if msg := h.command(web.ActionCheck); msg != "updates disabled" {
		t.Errorf("expected \"updates disabled\", got %q", msg)
	}

	h.stop(t)
}

func TestWetString(t *testing.T) {
	if wetString(true) != "WET" || wetString(false) != "DRY" {
		t.Error("unexpected wetString output")
	}
}
