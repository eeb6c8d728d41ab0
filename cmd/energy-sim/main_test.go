package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"reflect"
	"syscall"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"

	"github.com/cniweb/Hackathon2025/internal/alerts"
	"github.com/cniweb/Hackathon2025/internal/gamification"
	"github.com/cniweb/Hackathon2025/internal/generator"
	"github.com/cniweb/Hackathon2025/internal/gpio"
	"github.com/cniweb/Hackathon2025/internal/hierarchy"
	"github.com/cniweb/Hackathon2025/internal/kafka"
	"github.com/cniweb/Hackathon2025/internal/logic"
	"github.com/cniweb/Hackathon2025/internal/metrics"
	"github.com/cniweb/Hackathon2025/internal/mqtt"
	"github.com/cniweb/Hackathon2025/internal/status"
)

// TestEnvVarNames verifies the env var constants match what pi-helper writes
// to /run/pi-helper.env.
func TestEnvVarNames(t *testing.T) {
	want := map[string]string{
		"NETWORK_TYPE":        envNetworkType,
		"NETWORK_IP":          envNetworkIP,
		"NETWORK_STATUS":      envNetworkStatus,
		"NETWORK_GATEWAY":     envNetworkGateway,
		"NETWORK_WIFI_STATUS": envNetworkWifiStatus,
		"NETWORK_WIFI_SSID":   envNetworkWifiSSID,
	}
	for canonical, got := range want {
		if got != canonical {
			t.Errorf("env var constant: got %q, want %q", got, canonical)
		}
	}
}

func TestReadNetworkInfoAllSet(t *testing.T) {
	t.Setenv(envNetworkType, "wifi")
	t.Setenv(envNetworkIP, "192.168.1.100")
	t.Setenv(envNetworkStatus, "connected")
	t.Setenv(envNetworkGateway, "192.168.1.1")
	t.Setenv(envNetworkWifiStatus, "connected")
	t.Setenv(envNetworkWifiSSID, "MyNetwork")

	info := readNetworkInfo()
	if info == nil {
		t.Fatal("expected non-nil NetworkInfo")
	}
	want := status.NetworkInfo{
		Type:       "wifi",
		IP:         "192.168.1.100",
		Status:     "connected",
		Gateway:    "192.168.1.1",
		WifiStatus: "connected",
		SSID:       "MyNetwork",
	}
	if *info != want {
		t.Errorf("got %+v, want %+v", *info, want)
	}
}

func TestReadNetworkInfoNoneSet(t *testing.T) {
	t.Setenv(envNetworkStatus, "")
	if info := readNetworkInfo(); info != nil {
		t.Errorf("expected nil when NETWORK_STATUS is unset, got %+v", info)
	}
}

func TestReadNetworkInfoPartial(t *testing.T) {
	t.Setenv(envNetworkStatus, "connected")
	t.Setenv(envNetworkIP, "")

	info := readNetworkInfo()
	if info == nil {
		t.Fatal("expected non-nil NetworkInfo when NETWORK_STATUS is set")
	}
	if info.Status != "connected" || info.IP != "" {
		t.Errorf("got %+v", info)
	}
}

func TestResolveWSBroker(t *testing.T) {
	tests := []struct {
		ws, broker, want string
	}{
		{"=broker", "tcp://192.168.1.200:1883", "ws://192.168.1.200:9001"},
		{"=broker", "tcp://mqtt.local:1883", "ws://mqtt.local:9001"},
		{"off", "tcp://192.168.1.200:1883", ""},
		{"", "tcp://192.168.1.200:1883", ""},
		{"wss://example.com/mqtt", "tcp://192.168.1.200:1883", "wss://example.com/mqtt"},
		{"=broker", "::not a url", ""},
	}
	for _, tt := range tests {
		if got := resolveWSBroker(tt.ws, tt.broker); got != tt.want {
			t.Errorf("resolveWSBroker(%q, %q): got %q, want %q", tt.ws, tt.broker, got, tt.want)
		}
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"a:9092", []string{"a:9092"}},
		{" a:9092, b:9092 ,,", []string{"a:9092", "b:9092"}},
	}
	for _, tt := range tests {
		if got := splitList(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitList(%q): got %v, want %v", tt.in, got, tt.want)
		}
	}
}

// counterValue sums the named counter across series, restricted to series
// carrying label value lv when lv is non-empty.
func counterValue(t *testing.T, m *metrics.Metrics, name, lv string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var sum float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			if lv != "" && !hasLabelValue(metric.GetLabel(), lv) {
				continue
			}
			sum += metric.GetCounter().GetValue()
		}
	}
	return sum
}

func hasLabelValue(labels []*dto.LabelPair, v string) bool {
	for _, l := range labels {
		if l.GetValue() == v {
			return true
		}
	}
	return false
}

// --- runLoop tests ---

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

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

type harness struct {
	deps  loopDeps
	pub   *mqtt.FakePublisher
	sink  *kafka.FakeSink
	led   *gpio.FakeIndicator
	model *hierarchy.Model
}

// newHarness wires runLoop to fakes. Load noise is zero, so the machine is in
// PRODUCTION for ticks 0-29, STANDBY for 30-179 and OFF for 180-239 of each
// 240-tick cycle.
func newHarness(t *testing.T, heartbeat time.Duration, clock func() time.Time, alertRand generator.Rand) *harness {
	t.Helper()
	r := generator.NewFakeRand(0)
	load, err := generator.NewRMSCycle(nil, r)
	if err != nil {
		t.Fatalf("NewRMSCycle: %v", err)
	}
	model, err := hierarchy.NewModel(hierarchy.Default())
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}
	h := &harness{
		pub:   mqtt.NewFakePublisher(),
		sink:  kafka.NewFakeSink(),
		led:   gpio.NewFakeIndicator(),
		model: model,
	}
	h.deps = loopDeps{
		sim:       generator.NewSimulator(generator.NewThreePhase(r), load),
		detector:  logic.NewDetector(0, epoch),
		publisher: h.pub,
		frames:    h.sink,
		tracker:   status.NewTracker(epoch, status.Config{TickMs: 100, LEDPin: gpio.DefaultPin}),
		selection: model,
		led:       gpio.NewRunLED(h.led),
		alertGen:  alerts.NewGenerator(alertRand),
		alertLog:  alerts.NewLog(10),
		game:      gamification.New(),
		metrics:   metrics.New(),
		heartbeat: heartbeat,
		now:       clock,
		log:       slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
	}
	return h
}

// run drives runLoop with nTicks ticks followed by nAlerts alert ticks and
// then the signal.
func (h *harness) run(t *testing.T, nTicks, nAlerts int, signal os.Signal) {
	t.Helper()
	tick := make(chan time.Time)
	alertTick := make(chan time.Time)
	sig := make(chan os.Signal, 1)

	errCh := make(chan error, 1)
	go func() {
		errCh <- runLoop(h.deps, tick, alertTick, sig)
	}()

	for i := 0; i < nTicks; i++ {
		tick <- time.Time{}
	}
	for i := 0; i < nAlerts; i++ {
		alertTick <- time.Time{}
	}
	sig <- signal

	if err := <-errCh; err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}
}

func TestRunLoopNoEventsAtBaseline(t *testing.T) {
	h := newHarness(t, 0, fakeClock(epoch, 100*time.Millisecond), nil)
	h.run(t, 20, 0, syscall.SIGTERM)

	if len(h.pub.Events) != 0 {
		t.Errorf("expected 0 transition events, got %d", len(h.pub.Events))
	}
	if len(h.pub.Frames) != 20 {
		t.Errorf("expected 20 frames, got %d", len(h.pub.Frames))
	}
	if names := h.pub.SystemEventNames(); !reflect.DeepEqual(names, []string{"SHUTDOWN"}) {
		t.Errorf("system events: got %v", names)
	}
	snap := h.deps.tracker.Snapshot()
	if snap.State != generator.StateProduction || !snap.Baselined || snap.Tick != 20 {
		t.Errorf("tracker: state=%s baselined=%v tick=%d", snap.State, snap.Baselined, snap.Tick)
	}
}

func TestRunLoopFullCycle(t *testing.T) {
	h := newHarness(t, 0, fakeClock(epoch, 100*time.Millisecond), nil)
	h.run(t, 240, 0, syscall.SIGTERM)

	want := []struct {
		typ  logic.EventType
		tick int64
	}{
		{logic.EventStandby, 30},
		{logic.EventOff, 180},
		{logic.EventProduction, 240},
	}
	if len(h.pub.Events) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(h.pub.Events))
	}
	for i, w := range want {
		if e := h.pub.Events[i]; e.Type != w.typ || e.Tick != w.tick {
			t.Errorf("event %d: got %s at tick %d, want %s at %d", i, e.Type, e.Tick, w.typ, w.tick)
		}
	}

	counts := h.deps.tracker.Snapshot().Counts
	if counts != (logic.EventCounts{Production: 1, Standby: 1, Off: 1}) {
		t.Errorf("counts: got %+v", counts)
	}
	if got := counterValue(t, h.deps.metrics, "energy_sim_frames_total", ""); got != 240 {
		t.Errorf("frames metric: got %v, want 240", got)
	}
	if got := counterValue(t, h.deps.metrics, "energy_sim_state_transitions_total", "STANDBY"); got != 1 {
		t.Errorf("standby transitions metric: got %v, want 1", got)
	}
	if h.sink.Count() != 240 {
		t.Errorf("kafka frames: got %d, want 240", h.sink.Count())
	}
	if key := kafka.Key(h.sink.Selections[0]); key != "m1" {
		t.Errorf("kafka key: got %q, want m1", key)
	}
}

func TestRunLoopLED(t *testing.T) {
	h := newHarness(t, 0, fakeClock(epoch, 100*time.Millisecond), nil)
	h.run(t, 31, 0, syscall.SIGTERM)

	// On at baseline (PRODUCTION), off after the STANDBY transition at tick 30.
	if !reflect.DeepEqual(h.led.Writes, []bool{true, false}) {
		t.Errorf("LED writes: got %v", h.led.Writes)
	}
	if h.deps.tracker.Snapshot().LED {
		t.Error("tracker should report LED off")
	}
}

func TestRunLoopLEDErrorDoesNotStopLoop(t *testing.T) {
	h := newHarness(t, 0, fakeClock(epoch, 100*time.Millisecond), nil)
	h.led.SetError = errors.New("gpio fault")
	h.run(t, 31, 0, syscall.SIGTERM)

	if len(h.pub.Events) != 1 {
		t.Errorf("expected 1 event despite LED errors, got %d", len(h.pub.Events))
	}
}

func TestRunLoopPublishErrors(t *testing.T) {
	h := newHarness(t, 0, fakeClock(epoch, 100*time.Millisecond), nil)
	h.pub.PublishError = errors.New("broker down")
	h.sink.WriteError = errors.New("kafka down")
	h.run(t, 31, 0, syscall.SIGTERM)

	// The transition was detected and counted even though publishing failed.
	if c := h.deps.tracker.Snapshot().Counts; c.Standby != 1 {
		t.Errorf("counts: got %+v", c)
	}
	if len(h.pub.Frames) != 31 {
		t.Errorf("frames should still publish, got %d", len(h.pub.Frames))
	}
	if len(h.pub.SystemEvents) != 1 {
		t.Error("shutdown should still publish")
	}
	if got := counterValue(t, h.deps.metrics, "energy_sim_publish_errors_total", metrics.SinkKafka); got != 31 {
		t.Errorf("kafka errors: got %v, want 31", got)
	}
	if got := counterValue(t, h.deps.metrics, "energy_sim_publish_errors_total", metrics.SinkMQTT); got != 1 {
		t.Errorf("mqtt errors: got %v, want 1", got)
	}
}

func TestRunLoopOfflineSamplesAreSilent(t *testing.T) {
	h := newHarness(t, 0, fakeClock(epoch, 100*time.Millisecond), nil)
	h.pub.PublishFrameError = mqtt.ErrNotConnected
	h.run(t, 5, 0, syscall.SIGTERM)

	if h.sink.Count() != 5 {
		t.Errorf("kafka should still receive frames, got %d", h.sink.Count())
	}
	if got := counterValue(t, h.deps.metrics, "energy_sim_publish_errors_total", metrics.SinkMQTT); got != 0 {
		t.Errorf("offline samples must not count as errors, got %v", got)
	}
}

func TestRunLoopHeartbeat(t *testing.T) {
	t.Setenv(envNetworkStatus, "connected")
	t.Setenv(envNetworkType, "wifi")
	t.Setenv(envNetworkIP, "192.168.1.42")

	// Ticks at 0, 5, 10, 15 minutes: the heartbeat fires on the fourth.
	h := newHarness(t, 15*time.Minute, fakeClock(epoch, 5*time.Minute), nil)
	h.run(t, 4, 0, syscall.SIGTERM)

	names := h.pub.SystemEventNames()
	if !reflect.DeepEqual(names, []string{"HEARTBEAT", "SHUTDOWN"}) {
		t.Fatalf("system events: got %v", names)
	}

	var sj status.StatusJSON
	if err := json.Unmarshal(h.pub.SystemEvents[0].RawPayload, &sj); err != nil {
		t.Fatalf("invalid heartbeat payload: %v", err)
	}
	if sj.Status.Event != "HEARTBEAT" {
		t.Errorf("event: got %q", sj.Status.Event)
	}
	if sj.Status.Network == nil || sj.Status.Network.IP != "192.168.1.42" {
		t.Errorf("heartbeat missing network info: %+v", sj.Status.Network)
	}
	if sj.Status.Machine.State != "PRODUCTION" || sj.Status.Machine.Tick != 4 {
		t.Errorf("machine: got %+v", sj.Status.Machine)
	}
}

func TestRunLoopHeartbeatDisabled(t *testing.T) {
	h := newHarness(t, 0, fakeClock(epoch, time.Hour), nil)
	h.run(t, 10, 0, syscall.SIGTERM)

	if names := h.pub.SystemEventNames(); !reflect.DeepEqual(names, []string{"SHUTDOWN"}) {
		t.Errorf("system events: got %v", names)
	}
}

func TestRunLoopAlerts(t *testing.T) {
	// Fire, critical, first message; then two rolls that do not fire.
	h := newHarness(t, 0, fakeClock(epoch, time.Second), generator.NewFakeRand(0.9, 0.1, 0.1, 0.5, 0.5))
	h.run(t, 0, 3, syscall.SIGTERM)

	if len(h.pub.Alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(h.pub.Alerts))
	}
	a := h.pub.Alerts[0]
	if a.Type != alerts.SeverityCritical || a.Message != alerts.Messages[0] {
		t.Errorf("alert: got %+v", a)
	}
	if a.Location != "coburg" || a.Machine != "m1" {
		t.Errorf("alert scope: got %s/%s", a.Location, a.Machine)
	}
	if h.deps.alertLog.Total() != 1 {
		t.Errorf("log total: got %d", h.deps.alertLog.Total())
	}
	for _, b := range h.deps.game.Snapshot().Badges {
		if b.ID == gamification.BadgeAnomalyHunter && !b.Unlocked {
			t.Error("first alert should unlock the anomaly hunter badge")
		}
	}
}

func TestRunLoopAlertScopeFollowsSelection(t *testing.T) {
	h := newHarness(t, 0, fakeClock(epoch, time.Second), generator.NewFakeRand(0.9, 0.9, 0.9))
	if err := h.model.SetLocation("berlin"); err != nil {
		t.Fatalf("SetLocation: %v", err)
	}
	h.run(t, 0, 1, syscall.SIGTERM)

	if len(h.pub.Alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(h.pub.Alerts))
	}
	if a := h.pub.Alerts[0]; a.Location != "berlin" || a.Machine != "" || a.Type != alerts.SeverityWarning {
		t.Errorf("alert: got %+v", a)
	}
}

func TestRunLoopShutdownSignals(t *testing.T) {
	for _, tt := range []struct {
		sig  os.Signal
		want string
	}{
		{syscall.SIGINT, "SIGINT"},
		{syscall.SIGTERM, "SIGTERM"},
		{syscall.SIGHUP, "UNKNOWN"},
	} {
		t.Run(tt.want, func(t *testing.T) {
			h := newHarness(t, 0, fakeClock(epoch, 100*time.Millisecond), nil)
			h.run(t, 3, 0, tt.sig)

			if len(h.pub.SystemEvents) != 1 {
				t.Fatalf("expected 1 system event, got %d", len(h.pub.SystemEvents))
			}
			se := h.pub.SystemEvents[0]
			if se.Event != "SHUTDOWN" || se.Reason != tt.want || !se.Retained {
				t.Errorf("shutdown event: got %+v", se)
			}
			var sj status.StatusJSON
			if err := json.Unmarshal(se.RawPayload, &sj); err != nil {
				t.Fatalf("invalid payload: %v", err)
			}
			if sj.Status.Reason != tt.want {
				t.Errorf("payload reason: got %q", sj.Status.Reason)
			}
		})
	}
}
