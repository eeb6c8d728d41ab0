// Package status provides a thread-safe view of the simulator daemon's state.
// It is written by the tick loop and read by HTTP handlers and MQTT heartbeats.
package status

import (
	"sync"
	"time"

	"github.com/cniweb/Hackathon2025/internal/generator"
	"github.com/cniweb/Hackathon2025/internal/hierarchy"
	"github.com/cniweb/Hackathon2025/internal/logic"
)

// DefaultWindow is the number of frames kept for the live charts.
const DefaultWindow = 41

// NetworkInfo contains host network state. This is a local copy to avoid
// importing cmd-level env parsing from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	TickMs      int64
	HeartbeatMs int64
	AlertsMs    int64
	Broker      string
	HTTPAddr    string
	WSBroker    string // websocket broker URL for browser MQTT (empty = disabled)
	KafkaTopic  string // empty = Kafka disabled
	LEDPin      int    // negative = LED disabled
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	Voltage       []generator.SignalSample
	Load          []generator.RMSSample
	Tick          int64
	State         generator.MachineState
	Baselined     bool
	Counts        logic.EventCounts
	Selection     hierarchy.Selection
	Path          hierarchy.Path
	LED           bool
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Latest returns the newest frame's load sample, if any.
func (s Snapshot) Latest() (generator.RMSSample, bool) {
	if len(s.Load) == 0 {
		return generator.RMSSample{}, false
	}
	return s.Load[len(s.Load)-1], true
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu     sync.RWMutex
	snap   Snapshot
	window int
	now    func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		window: DefaultWindow,
		now:    time.Now,
	}
}

// RecordFrame appends a frame to the rolling windows, dropping the oldest
// beyond DefaultWindow.
func (t *Tracker) RecordFrame(f generator.Frame) {
	t.mu.Lock()
	t.snap.Voltage = appendWindow(t.snap.Voltage, f.Voltage, t.window)
	t.snap.Load = appendWindow(t.snap.Load, f.Load, t.window)
	t.snap.Tick = f.Tick()
	t.mu.Unlock()
}

func appendWindow[T any](s []T, v T, n int) []T {
	s = append(s, v)
	if len(s) > n {
		s = append(s[:0:0], s[len(s)-n:]...)
	}
	return s
}

// Update sets the detector state. Called from the tick loop.
func (t *Tracker) Update(state generator.MachineState, baselined bool, counts logic.EventCounts) {
	t.mu.Lock()
	t.snap.State = state
	t.snap.Baselined = baselined
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetSelection records the current hierarchy selection and its names.
func (t *Tracker) SetSelection(sel hierarchy.Selection, path hierarchy.Path) {
	t.mu.Lock()
	t.snap.Selection = sel
	t.snap.Path = path
	t.mu.Unlock()
}

// SetLED records the indicator level.
func (t *Tracker) SetLED(on bool) {
	t.mu.Lock()
	t.snap.LED = on
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.Voltage = append([]generator.SignalSample(nil), t.snap.Voltage...)
	s.Load = append([]generator.RMSSample(nil), t.snap.Load...)
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
