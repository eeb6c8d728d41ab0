package status

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cniweb/Hackathon2025/internal/generator"
	"github.com/cniweb/Hackathon2025/internal/hierarchy"
	"github.com/cniweb/Hackathon2025/internal/logic"
)

var start = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func frame(tick int64, value float64, state generator.MachineState) generator.Frame {
	return generator.Frame{
		Timestamp: start.Add(time.Duration(tick) * 100 * time.Millisecond),
		Voltage:   generator.SignalSample{Tick: tick, L1: 1, L2: 2, L3: -3},
		Load:      generator.RMSSample{Tick: tick, Value: value, State: state},
	}
}

func fixedTracker(cfg Config, now time.Time) *Tracker {
	tr := NewTracker(start, cfg)
	tr.now = func() time.Time { return now }
	return tr
}

func TestNewTracker(t *testing.T) {
	cfg := Config{TickMs: 100, Broker: "tcp://localhost:1883", HTTPAddr: ":8080", LEDPin: -1}
	snap := NewTracker(start, cfg).Snapshot()

	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.Config != cfg {
		t.Errorf("Config: got %+v, want %+v", snap.Config, cfg)
	}
	if snap.Baselined || snap.MQTTConnected || len(snap.Load) != 0 {
		t.Errorf("unexpected initial state: %+v", snap)
	}
	if _, ok := snap.Latest(); ok {
		t.Error("Latest should report no sample initially")
	}
}

func TestRecordFrameWindow(t *testing.T) {
	tr := NewTracker(start, Config{})
	for i := int64(1); i <= 100; i++ {
		tr.RecordFrame(frame(i, float64(i), generator.StateStandby))
	}

	snap := tr.Snapshot()
	if len(snap.Voltage) != DefaultWindow || len(snap.Load) != DefaultWindow {
		t.Fatalf("window: got %d/%d, want %d", len(snap.Voltage), len(snap.Load), DefaultWindow)
	}
	if snap.Load[0].Tick != 60 || snap.Load[DefaultWindow-1].Tick != 100 {
		t.Errorf("window bounds: got %d..%d, want 60..100", snap.Load[0].Tick, snap.Load[DefaultWindow-1].Tick)
	}
	if snap.Tick != 100 {
		t.Errorf("Tick: got %d, want 100", snap.Tick)
	}
	latest, ok := snap.Latest()
	if !ok || latest.Value != 100 {
		t.Errorf("Latest: got %+v", latest)
	}
}

func TestUpdateAndSnapshot(t *testing.T) {
	tr := NewTracker(start, Config{})
	tr.Update(generator.StateProduction, true, logic.EventCounts{Production: 3, Off: 1})

	snap := tr.Snapshot()
	if snap.State != generator.StateProduction || !snap.Baselined {
		t.Errorf("state: got %s baselined=%v", snap.State, snap.Baselined)
	}
	if snap.Counts.Production != 3 || snap.Counts.Off != 1 {
		t.Errorf("counts: got %+v", snap.Counts)
	}
}

func TestSetters(t *testing.T) {
	tr := NewTracker(start, Config{})
	sel := hierarchy.Selection{LocationID: "coburg", HallID: "h2", MachineID: "m3", DeviceID: "d5"}
	tr.SetSelection(sel, hierarchy.Default().Describe(sel))
	tr.SetMQTTConnected(true)
	tr.SetLED(true)
	tr.SetNetwork(&NetworkInfo{Type: "wifi", IP: "10.0.0.2", Status: "up"})

	snap := tr.Snapshot()
	if snap.Selection != sel {
		t.Errorf("Selection: got %+v", snap.Selection)
	}
	if snap.Path.Device != "Liftmotor L1" {
		t.Errorf("Path: got %+v", snap.Path)
	}
	if !snap.MQTTConnected || !snap.LED {
		t.Error("expected MQTT connected and LED on")
	}
	if snap.Network == nil || snap.Network.IP != "10.0.0.2" {
		t.Errorf("Network: got %+v", snap.Network)
	}
}

func TestSnapshotUptime(t *testing.T) {
	tr := fixedTracker(Config{}, start.Add(90*time.Second))
	if up := tr.Snapshot().Uptime(); up != 90*time.Second {
		t.Errorf("Uptime: got %v, want 90s", up)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker(start, Config{})
	tr.RecordFrame(frame(1, 5, generator.StateProduction))

	snap := tr.Snapshot()
	snap.Load[0].Value = 99
	if tr.Snapshot().Load[0].Value != 5 {
		t.Error("modifying a snapshot must not affect the tracker")
	}
}

func TestFormatJSON(t *testing.T) {
	tr := fixedTracker(Config{TickMs: 100, Broker: "tcp://b:1883", HTTPAddr: ":8080", LEDPin: 17}, start.Add(65*time.Second))
	tr.RecordFrame(frame(7, 5.12, generator.StateProduction))
	tr.Update(generator.StateProduction, true, logic.EventCounts{Standby: 2})
	sel := hierarchy.Selection{LocationID: "coburg", HallID: "h1", MachineID: "m1"}
	tr.SetSelection(sel, hierarchy.Default().Describe(sel))

	var parsed StatusJSON
	if err := json.Unmarshal(FormatJSON(tr.Snapshot()), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	s := parsed.Status
	if s.Event != "" || s.Reason != "" {
		t.Errorf("web status must not carry event/reason: %+v", s)
	}
	if s.Machine.State != "PRODUCTION" || s.Machine.Tick != 7 || s.Machine.Load == nil || *s.Machine.Load != 5.12 {
		t.Errorf("machine: got %+v", s.Machine)
	}
	if !s.Ready || s.UptimeSeconds != 65 {
		t.Errorf("ready/uptime: got %v/%d", s.Ready, s.UptimeSeconds)
	}
	if s.StartTime != "2026-01-01T00:00:00Z" || s.Timestamp != "2026-01-01T00:01:05Z" {
		t.Errorf("times: got %s / %s", s.StartTime, s.Timestamp)
	}
	if s.Counts.Standby != 2 {
		t.Errorf("counts: got %+v", s.Counts)
	}
	if s.Selection.Path != "Werk Coburg / Halle 1 (Montage) / Montagelinie A / All" {
		t.Errorf("path: got %q", s.Selection.Path)
	}
	if s.Config.LEDPin == nil || *s.Config.LEDPin != 17 {
		t.Errorf("led pin: got %v", s.Config.LEDPin)
	}
	if s.Network != nil {
		t.Error("network should be omitted when unset")
	}
}

func TestFormatJSONUnknownState(t *testing.T) {
	snap := NewTracker(start, Config{LEDPin: -1}).Snapshot()
	out := string(FormatJSON(snap))
	if !strings.Contains(out, `"state": "UNKNOWN"`) {
		t.Errorf("expected UNKNOWN state before baseline:\n%s", out)
	}
	if !strings.Contains(out, `"load": null`) {
		t.Errorf("expected null load before first frame:\n%s", out)
	}
	if strings.Contains(out, "led_pin") {
		t.Error("disabled LED pin should be omitted")
	}
}

func TestFormatStatusEvent(t *testing.T) {
	tr := fixedTracker(Config{}, start)
	tr.SetNetwork(&NetworkInfo{Type: "eth", Status: "up"})

	var parsed StatusJSON
	if err := json.Unmarshal(FormatStatusEvent(tr.Snapshot(), "SHUTDOWN", "SIGTERM"), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Status.Event != "SHUTDOWN" || parsed.Status.Reason != "SIGTERM" {
		t.Errorf("event/reason: got %q/%q", parsed.Status.Event, parsed.Status.Reason)
	}
	if parsed.Status.Network == nil || parsed.Status.Network.Type != "eth" {
		t.Errorf("network: got %+v", parsed.Status.Network)
	}

	raw := string(FormatStatusEvent(tr.Snapshot(), "STARTUP", ""))
	if strings.Contains(raw, `"reason"`) {
		t.Errorf("empty reason should be omitted: %s", raw)
	}
	if strings.Contains(raw, "\n") {
		t.Error("status events should be compact")
	}
}

func TestFormatSamples(t *testing.T) {
	tr := NewTracker(start, Config{})
	tr.RecordFrame(frame(1, 5.1, generator.StateProduction))
	tr.RecordFrame(frame(2, 0, generator.StateOff))

	expected := `{"voltage":[{"time":1,"L1":1,"L2":2,"L3":-3},{"time":2,"L1":1,"L2":2,"L3":-3}],"load":[{"time":1,"value":5.1,"state":"PRODUCTION"},{"time":2,"value":0,"state":"OFF"}]}`
	if got := string(FormatSamples(tr.Snapshot())); got != expected {
		t.Errorf("unexpected samples:\ngot:  %s\nwant: %s", got, expected)
	}

	empty := string(FormatSamples(NewTracker(start, Config{}).Snapshot()))
	if empty != `{"voltage":[],"load":[]}` {
		t.Errorf("empty samples: got %s", empty)
	}
}

func TestPathString(t *testing.T) {
	if got := PathString(Snapshot{}); got != "" {
		t.Errorf("empty path: got %q", got)
	}
	snap := Snapshot{Path: hierarchy.Path{Location: "Werk Berlin", Hall: "Halle B1"}}
	if got := PathString(snap); got != "Werk Berlin / Halle B1 / All / All" {
		t.Errorf("got %q", got)
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(start, Config{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := int64(0); i < 500; i++ {
			tr.RecordFrame(frame(i, 1, generator.StateStandby))
			tr.Update(generator.StateStandby, true, logic.EventCounts{Standby: int(i)})
		}
	}()
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				snap := tr.Snapshot()
				_ = FormatJSON(snap)
				_ = FormatSamples(snap)
			}
		}()
	}
	wg.Wait()

	if n := len(tr.Snapshot().Load); n != DefaultWindow {
		t.Errorf("window after concurrent writes: got %d", n)
	}
}
