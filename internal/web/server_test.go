package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/tank-monitor/internal/gpio"
	"github.com/sweeney/tank-monitor/internal/manifest"
	"github.com/sweeney/tank-monitor/internal/status"
	"github.com/sweeney/tank-monitor/internal/tank"
	"github.com/sweeney/tank-monitor/internal/update"
)

func newTestServer(t *testing.T, commands chan UpdateRequest) (*httptest.Server, *status.Tracker) {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		PollMs:        1000,
		ResyncShortMs: 30_000,
		ResyncLongMs:  21_600_000,
		Broker:        "tcp://192.168.1.200:1883",
		HTTPAddr:      ":80",
		ManifestURL:   "http://updates.local/manifest.txt",
	}
	tr := status.NewTracker(start, cfg)
	srv := New(":0", tr, commands)
	ts := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(ts.Close)
	return ts, tr
}

func exampleLevel() (tank.Snapshot, [gpio.NumChannels]string) {
	return tank.Snapshot{
			Wet:         [gpio.NumChannels]bool{false, false, true, true},
			WetCount:    2,
			FillPercent: 50,
		}, [gpio.NumChannels]string{"never", "never", "t+63s", "t+12s"}
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr := newTestServer(t, nil)
	level, transitions := exampleLevel()
	tr.UpdateLevel(level, transitions, false, 0)
	tr.SetUpdateSession(update.Session{
		State:         update.StateIdle,
		StatusMessage: "no update check performed",
		RunningCode:   100,
		RunningName:   "1.2.0",
	})
	tr.SetMQTTConnected(true)

	resp, err := http.Get(ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if sj.Status.FillPercent != 50 {
		t.Errorf("fill_percent: got %d, want 50", sj.Status.FillPercent)
	}
	if sj.Status.Channels[3].ChangedAt != "t+12s" {
		t.Errorf("channel 3 changed_at: got %q", sj.Status.Channels[3].ChangedAt)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if sj.Status.Firmware.VersionCode != 100 {
		t.Errorf("firmware code: got %d, want 100", sj.Status.Firmware.VersionCode)
	}
}

func TestIndexPage(t *testing.T) {
	ts, tr := newTestServer(t, nil)
	level, transitions := exampleLevel()
	tr.UpdateLevel(level, transitions, true, 1700000000)
	tr.SetUpdateSession(update.Session{
		State:       update.StateUpdateAvailable,
		Available:   true,
		Pending:     &manifest.Manifest{VersionCode: 101, VersionName: "1.3.0", FirmwareURL: "http://x/fw.bin"},
		RunningCode: 100,
		RunningName: "1.2.0",
	})

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	page := string(body)

	for _, want := range []string{
		"Tank Monitor",
		"50%",
		"t+12s",
		"synchronized",
		"1.3.0",
		"/update/check",
		"/update/install",
	} {
		if !strings.Contains(page, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if strings.Contains(page, "disabled>Install") {
		t.Error("install button should be enabled while an update is available")
	}
}

func TestIndexNotFound(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/nope")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestUpdateActionForwarded(t *testing.T) {
	commands := make(chan UpdateRequest, 1)
	ts, _ := newTestServer(t, commands)

	// Pretend driver loop: answer the next request.
	go func() {
		req := <-commands
		if req.Action != ActionCheck {
			req.Reply <- "wrong action"
			return
		}
		req.Reply <- "update available: 1.3.0 (code 101)"
	}()

	resp, err := http.Post(ts.URL+"/update/check", "", nil)
	if err != nil {
		t.Fatalf("POST /update/check: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "update available") {
		t.Errorf("unexpected body %q", body)
	}
}

func TestUpdateActionRequiresPOST(t *testing.T) {
	commands := make(chan UpdateRequest, 1)
	ts, _ := newTestServer(t, commands)

	resp, err := http.Get(ts.URL + "/update/install")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", resp.StatusCode)
	}
	if len(commands) != 0 {
		t.Error("GET must not enqueue a command")
	}
}

func TestUpdateActionDisabled(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp, err := http.Post(ts.URL+"/update/check", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status: got %d, want 503", resp.StatusCode)
	}
}
