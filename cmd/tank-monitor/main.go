// Command tank-monitor watches four float switches, serves the tank
// status over HTTP and MQTT, and manages firmware self-updates.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/sweeney/tank-monitor/internal/clock"
	"github.com/sweeney/tank-monitor/internal/config"
	"github.com/sweeney/tank-monitor/internal/gpio"
	"github.com/sweeney/tank-monitor/internal/manifest"
	"github.com/sweeney/tank-monitor/internal/mqtt"
	"github.com/sweeney/tank-monitor/internal/sensor"
	"github.com/sweeney/tank-monitor/internal/status"
	"github.com/sweeney/tank-monitor/internal/tank"
	"github.com/sweeney/tank-monitor/internal/update"
	"github.com/sweeney/tank-monitor/internal/web"
)

// Set via -ldflags "-X main.versionCodeStr=... -X main.versionName=...".
var (
	versionCodeStr = "100"
	versionName    = "1.0.0"
)

func main() {
	cfgPath := flag.String("config", "", "YAML config path (empty for built-in defaults)")
	broker := flag.String("broker", "", "MQTT broker address (overrides config)")
	httpAddr := flag.String("http", "", "HTTP status address (overrides config)")
	manifestURL := flag.String("manifest-url", "", "Update manifest URL (overrides config)")
	printState := flag.Bool("print-state", false, "Print current state and exit")
	flag.Parse()

	var cfg *config.Config
	var err error
	if *cfgPath != "" {
		cfg, err = config.Load(*cfgPath)
		if err != nil {
			log.Fatalf("config load failed: %v", err)
		}
	} else {
		cfg = config.Default()
	}
	if *broker != "" {
		cfg.Monitor.MQTT.Broker = *broker
	}
	if *httpAddr != "" {
		cfg.Monitor.HTTP.Addr = *httpAddr
	}
	if *manifestURL != "" {
		cfg.Monitor.Update.ManifestURL = *manifestURL
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("config validation failed: %v", err)
	}

	versionCode, err := strconv.Atoi(versionCodeStr)
	if err != nil {
		log.Fatalf("bad build version code %q: %v", versionCodeStr, err)
	}

	if err := run(cfg, versionCode, *printState); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(cfg *config.Config, versionCode int, printState bool) error {
	m := cfg.Monitor

	var pins [gpio.NumChannels]int
	var invert [gpio.NumChannels]bool
	for i, ch := range m.Channels {
		pins[i] = ch.Pin
		invert[i] = ch.Invert
	}

	gpioReader, err := gpio.NewRealReader(pins)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer gpioReader.Close()

	deb := sensor.NewDebouncer(gpioReader, invert)

	minEpoch := m.Clock.MinValidEpoch
	if minEpoch == 0 {
		minEpoch = clock.DefaultMinValidEpoch
	}
	clk := clock.NewFacade(
		clock.NewSystemSource(m.Clock.NTPServer),
		minEpoch,
		uint32(m.Clock.ResyncShortMs),
		uint32(m.Clock.ResyncLongMs),
	)
	engine := tank.NewEngine(deb, clk)

	// Print state mode
	if printState {
		if _, err := engine.Poll(); err != nil {
			return fmt.Errorf("read sensors: %w", err)
		}
		snap := engine.Snapshot()
		for i, wet := range snap.Wet {
			fmt.Printf("CH%d: %s\n", i, wetString(wet))
		}
		fmt.Printf("Fill: %d%%\n", snap.FillPercent)
		return nil
	}

	// Initialize MQTT
	var publisher mqtt.Publisher
	var mqttStatus mqtt.ConnectionStatus
	if m.MQTT.Broker != "" {
		pub, err := mqtt.NewRealPublisher(m.MQTT.Broker)
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		defer pub.Close()
		publisher = pub
		mqttStatus = pub
	}

	// Initialize update machine
	var machine *update.Machine
	insecure := m.Update.InsecureTLS != nil && *m.Update.InsecureTLS
	if m.Update.ManifestURL != "" {
		if insecure {
			log.Printf("update: TLS certificate validation is disabled")
		}
		transport := manifest.NewHTTPTransport(time.Duration(m.Update.TimeoutMs)*time.Millisecond, insecure)
		machine = update.NewMachine(
			versionCode,
			versionName,
			m.Update.ManifestURL,
			transport,
			linkCheck{},
			update.NewStagingApplier(transport, m.Update.StagingPath),
		)
	}

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:        int64(m.Poll.IntervalMs),
		ResyncShortMs: int64(m.Clock.ResyncShortMs),
		ResyncLongMs:  int64(m.Clock.ResyncLongMs),
		HeartbeatMs:   int64(m.Heartbeat.IntervalMs),
		Broker:        m.MQTT.Broker,
		HTTPAddr:      m.HTTP.Addr,
		ManifestURL:   m.Update.ManifestURL,
		InsecureTLS:   insecure,
	})
	if machine != nil {
		tracker.SetUpdateSession(machine.Session())
	} else {
		tracker.SetUpdateSession(update.Session{
			State:         update.StateIdle,
			StatusMessage: "updates disabled",
			RunningCode:   versionCode,
			RunningName:   versionName,
		})
	}

	// Publish startup event with full status snapshot
	if publisher != nil {
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
	}

	// Start HTTP status server
	commands := make(chan web.UpdateRequest)
	if m.HTTP.Addr != "" {
		srv := web.New(m.HTTP.Addr, tracker, commands)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", m.HTTP.Addr)
	}

	log.Printf("started: poll=%dms broker=%q manifest=%q version=%s(%d)",
		m.Poll.IntervalMs, m.MQTT.Broker, m.Update.ManifestURL, versionName, versionCode)

	ticker := time.NewTicker(time.Duration(m.Poll.IntervalMs) * time.Millisecond)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(engine, clk, machine, publisher, mqttStatus, tracker,
		uint32(m.Heartbeat.IntervalMs), time.Now, ticker.C, commands, sigCh)
}

// runLoop is the single cooperative control loop. Each iteration runs
// exactly one of: an update command from the web collaborator, a tick
// (clock resync maintenance, sensor poll, backfill, publishing), or
// shutdown. All core state is mutated only from here.
func runLoop(
	engine *tank.Engine,
	clk *clock.Facade,
	machine *update.Machine,
	publisher mqtt.Publisher,
	mqttStatus mqtt.ConnectionStatus,
	tracker *status.Tracker,
	heartbeatMs uint32,
	now func() time.Time,
	tick <-chan time.Time,
	commands <-chan web.UpdateRequest,
	sig <-chan os.Signal,
) error {
	lastHeartbeat := clk.UptimeMillis()

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			if publisher != nil {
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				snap := tracker.Snapshot()
				event := mqtt.SystemEvent{
					Timestamp:  now(),
					Event:      "SHUTDOWN",
					Reason:     signalName,
					Retained:   true,
					RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", signalName),
				}
				if err := publisher.PublishSystem(event); err != nil {
					log.Printf("failed to publish shutdown event: %v", err)
				} else {
					log.Printf("published shutdown event")
				}
			}
			return nil

		case req := <-commands:
			var msg string
			if machine == nil {
				msg = "updates disabled"
			} else {
				switch req.Action {
				case web.ActionCheck:
					msg = machine.Check()
				case web.ActionInstall:
					msg = machine.Install()
				default:
					msg = "unknown action"
				}
				tracker.SetUpdateSession(machine.Session())
			}
			log.Printf("update action result: %s", msg)
			req.Reply <- msg

		case <-tick:
			clk.MaintainSync()

			transitions, err := engine.Poll()
			if err != nil {
				log.Printf("sensor poll error: %v", err)
			}
			engine.Backfill()
			snap := engine.Snapshot()

			for _, tr := range transitions {
				log.Printf("transition: channel=%d wet=%v initial=%v fill=%d%%",
					tr.Channel, tr.Wet, tr.Initial, snap.FillPercent)
				if publisher == nil {
					continue
				}
				event := mqtt.LevelEvent{Transition: tr, FillPercent: snap.FillPercent}
				if err := publisher.Publish(event); err != nil {
					log.Printf("publish error: %v", err)
					// Don't crash on publish failure
				}
			}

			if mqttStatus != nil {
				tracker.SetMQTTConnected(mqttStatus.IsConnected())
			}
			tracker.UpdateLevel(snap, engine.FormatTransitions(), clk.Trusted(), clk.Epoch())

			// Heartbeat on the uptime counter, wraparound-safe
			if heartbeatMs > 0 {
				uptime := clk.UptimeMillis()
				if clock.Elapsed(uptime, lastHeartbeat) >= heartbeatMs {
					lastHeartbeat = uptime
					if publisher != nil {
						hb := tracker.Snapshot()
						event := mqtt.SystemEvent{
							Timestamp:  hb.Now,
							Event:      "HEARTBEAT",
							RawPayload: status.FormatStatusEvent(hb, "HEARTBEAT", ""),
						}
						if err := publisher.PublishSystem(event); err != nil {
							log.Printf("heartbeat publish error: %v", err)
						}
					}
				}
			}
		}
	}
}

// linkCheck answers "is the network currently usable" by looking for a
// non-loopback interface address. Good enough as an install/check
// precondition; the transports still fail cleanly if the route is dead.
type linkCheck struct{}

func (linkCheck) IsConnected() bool {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return false
	}
	for _, a := range addrs {
		ipn, ok := a.(*net.IPNet)
		if !ok || ipn.IP.IsLoopback() {
			continue
		}
		if ipn.IP.To4() != nil || ipn.IP.To16() != nil {
			return true
		}
	}
	return false
}

func wetString(wet bool) string {
	if wet {
		return "WET"
	}
	return "DRY"
}
