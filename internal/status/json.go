package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string        `json:"event,omitempty"`
	Reason        string        `json:"reason,omitempty"`
	Machine       MachineJSON   `json:"machine"`
	Ready         bool          `json:"ready"`
	UptimeSeconds int64         `json:"uptime_seconds"`
	StartTime     string        `json:"start_time"`
	Timestamp     string        `json:"timestamp"`
	MQTT          MQTTStatus    `json:"mqtt"`
	Counts        CountsJSON    `json:"event_counts"`
	Selection     SelectionJSON `json:"selection"`
	LED           bool          `json:"led"`
	Network       *NetworkJSON  `json:"network,omitempty"`
	Config        ConfigJSON    `json:"config"`
}

// MachineJSON is the latest load reading and the detector state.
type MachineJSON struct {
	State string   `json:"state"`
	Tick  int64    `json:"tick"`
	Load  *float64 `json:"load"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of transition counts.
type CountsJSON struct {
	Production int `json:"production"`
	Standby    int `json:"standby"`
	Off        int `json:"off"`
}

// SelectionJSON is the hierarchy selection with display names.
type SelectionJSON struct {
	LocationID string `json:"location_id"`
	HallID     string `json:"hall_id"`
	MachineID  string `json:"machine_id"`
	DeviceID   string `json:"device_id"`
	Path       string `json:"path"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	TickMs      int64  `json:"tick_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	AlertsMs    int64  `json:"alerts_ms"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
	WSBroker    string `json:"ws_broker,omitempty"`
	KafkaTopic  string `json:"kafka_topic,omitempty"`
	LEDPin      *int   `json:"led_pin,omitempty"`
}

// PathString joins the non-empty names of the selection path, with "All"
// standing in for empty machine and device levels.
func PathString(snap Snapshot) string {
	p := snap.Path
	if p.Location == "" {
		return ""
	}
	s := p.Location
	for _, name := range []string{p.Hall, p.Machine, p.Device} {
		if name == "" {
			name = "All"
		}
		s += " / " + name
	}
	return s
}

func buildInner(snap Snapshot) StatusInner {
	state := string(snap.State)
	if state == "" {
		state = "UNKNOWN"
	}
	machine := MachineJSON{State: state, Tick: snap.Tick}
	if latest, ok := snap.Latest(); ok {
		v := latest.Value
		machine.Load = &v
	}

	cfg := ConfigJSON{
		TickMs:      snap.Config.TickMs,
		HeartbeatMs: snap.Config.HeartbeatMs,
		AlertsMs:    snap.Config.AlertsMs,
		Broker:      snap.Config.Broker,
		HTTPAddr:    snap.Config.HTTPAddr,
		WSBroker:    snap.Config.WSBroker,
		KafkaTopic:  snap.Config.KafkaTopic,
	}
	if snap.Config.LEDPin >= 0 {
		pin := snap.Config.LEDPin
		cfg.LEDPin = &pin
	}

	return StatusInner{
		Machine:       machine,
		Ready:         snap.Baselined,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Production: snap.Counts.Production,
			Standby:    snap.Counts.Standby,
			Off:        snap.Counts.Off,
		},
		Selection: SelectionJSON{
			LocationID: snap.Selection.LocationID,
			HallID:     snap.Selection.HallID,
			MachineID:  snap.Selection.MachineID,
			DeviceID:   snap.Selection.DeviceID,
			Path:       PathString(snap),
		},
		LED:    snap.LED,
		Config: cfg,
	}
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}

// SamplesJSON holds the rolling chart windows.
type SamplesJSON struct {
	Voltage []VoltageJSON `json:"voltage"`
	Load    []LoadJSON    `json:"load"`
}

// VoltageJSON is one three-phase point.
type VoltageJSON struct {
	Tick int64   `json:"time"`
	L1   float64 `json:"L1"`
	L2   float64 `json:"L2"`
	L3   float64 `json:"L3"`
}

// LoadJSON is one RMS point.
type LoadJSON struct {
	Tick  int64   `json:"time"`
	Value float64 `json:"value"`
	State string  `json:"state"`
}

// FormatSamples returns the chart windows as JSON, oldest first.
func FormatSamples(snap Snapshot) []byte {
	out := SamplesJSON{
		Voltage: make([]VoltageJSON, len(snap.Voltage)),
		Load:    make([]LoadJSON, len(snap.Load)),
	}
	for i, v := range snap.Voltage {
		out.Voltage[i] = VoltageJSON{Tick: v.Tick, L1: v.L1, L2: v.L2, L3: v.L3}
	}
	for i, l := range snap.Load {
		out.Load[i] = LoadJSON{Tick: l.Tick, Value: l.Value, State: string(l.State)}
	}
	data, _ := json.Marshal(out)
	return data
}
