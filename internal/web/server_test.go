package web

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/lidgate/internal/logic"
	"github.com/sweeney/lidgate/internal/status"
)

func newTestServer(t *testing.T, opts ...Option) (*httptest.Server, *status.Tracker) {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		PollMs:      20,
		HeartbeatMs: 900000,
		Broker:      "tcp://192.168.1.200:1883",
		TopicPrefix: "lidgate",
		HTTPPort:    ":8080",
		Sources:     []string{"lid=/dev/input/event0"},
	}
	tr := status.NewTracker("sess-1", start, cfg)
	srv := New(":0", tr, opts...)
	ts := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(ts.Close)
	return ts, tr
}

func closedLid() logic.Snapshot {
	return logic.Snapshot{
		Switches: []logic.SwitchStatus{{
			ID:     "lid",
			State:  logic.SwitchState{Current: logic.StateOn, LastEmitted: logic.StateOn},
			Counts: logic.EventCounts{On: 5, Off: 4},
		}},
		Devices: []logic.DeviceStatus{{
			ID:       "touchpad",
			State:    logic.GateDisabled,
			Switches: []logic.SwitchID{"lid"},
		}},
	}
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, body
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Update(closedLid())
	tr.SetMQTTConnected(true)

	resp, body := get(t, ts.URL+"/index.json")
	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	var sj status.StatusJSON
	if err := json.Unmarshal(body, &sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if sj.Status.Lid != "CLOSED" {
		t.Errorf("Lid: got %q, want CLOSED", sj.Status.Lid)
	}
	if sj.Status.Session != "sess-1" {
		t.Errorf("Session: got %q, want sess-1", sj.Status.Session)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if len(sj.Status.Devices) != 1 || sj.Status.Devices[0].State != "DISABLED" {
		t.Errorf("unexpected devices: %+v", sj.Status.Devices)
	}
}

func TestJSONUnknownBeforeFirstUpdate(t *testing.T) {
	ts, _ := newTestServer(t)

	_, body := get(t, ts.URL+"/index.json")
	var sj status.StatusJSON
	if err := json.Unmarshal(body, &sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if sj.Status.Lid != "UNKNOWN" {
		t.Errorf("Lid before first update: got %q, want UNKNOWN", sj.Status.Lid)
	}
}

func TestSwitchEndpoint(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Update(closedLid())

	resp, body := get(t, ts.URL+"/switches/lid")
	if resp.StatusCode != 200 {
		t.Fatalf("status: got %d, want 200", resp.StatusCode)
	}
	var sw status.SwitchJSON
	if err := json.Unmarshal(body, &sw); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if sw.State != "ON" || sw.Counts.On != 5 || sw.Counts.Off != 4 {
		t.Errorf("unexpected switch: %+v", sw)
	}

	resp, _ = get(t, ts.URL+"/switches/dock")
	if resp.StatusCode != 404 {
		t.Errorf("unknown switch: got %d, want 404", resp.StatusCode)
	}
}

func TestDeviceEndpoint(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Update(closedLid())

	resp, body := get(t, ts.URL+"/devices/touchpad")
	if resp.StatusCode != 200 {
		t.Fatalf("status: got %d, want 200", resp.StatusCode)
	}
	var dev status.DeviceJSON
	if err := json.Unmarshal(body, &dev); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if dev.State != "DISABLED" || len(dev.Switches) != 1 || dev.Switches[0] != "lid" {
		t.Errorf("unexpected device: %+v", dev)
	}

	resp, _ = get(t, ts.URL+"/devices/mouse")
	if resp.StatusCode != 404 {
		t.Errorf("unknown device: got %d, want 404", resp.StatusCode)
	}
}

func TestHTMLEndpointRoot(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Update(closedLid())

	resp, body := get(t, ts.URL+"/")
	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type: got %q, want text/html", ct)
	}
	for _, want := range []string{"CLOSED", "touchpad", "DISABLED", "sess-1", "lid=/dev/input/event0"} {
		if !bytes.Contains(body, []byte(want)) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestHTMLEndpointIndexHTML(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, body := get(t, ts.URL+"/index.html")
	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if !bytes.Contains(body, []byte("none attached")) {
		t.Error("expected empty tables before the first update")
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, _ := get(t, ts.URL+"/nonexistent")
	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/index.json", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /index.json: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", resp.StatusCode)
	}
}

func TestAccessLog(t *testing.T) {
	var buf bytes.Buffer
	ts, _ := newTestServer(t, WithAccessLog(&buf))

	get(t, ts.URL+"/index.json")
	ts.Close()

	if !strings.Contains(buf.String(), "GET /index.json") {
		t.Errorf("access log missing request line: %q", buf.String())
	}
}

func TestStateChangesReflectedInResponse(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Update(closedLid())

	_, body := get(t, ts.URL+"/index.json")
	var sj1 status.StatusJSON
	json.Unmarshal(body, &sj1)
	if sj1.Status.Lid != "CLOSED" {
		t.Fatalf("Lid: got %q, want CLOSED", sj1.Status.Lid)
	}

	open := closedLid()
	open.Switches[0].State = logic.SwitchState{Current: logic.StateOff, LastEmitted: logic.StateOff}
	open.Devices[0].State = logic.GateEnabled
	tr.Update(open)

	_, body = get(t, ts.URL+"/index.json")
	var sj2 status.StatusJSON
	json.Unmarshal(body, &sj2)
	if sj2.Status.Lid != "OPEN" {
		t.Errorf("Lid: got %q, want OPEN", sj2.Status.Lid)
	}
	if sj2.Status.Devices[0].State != "ENABLED" {
		t.Errorf("device: got %q, want ENABLED", sj2.Status.Devices[0].State)
	}
}
