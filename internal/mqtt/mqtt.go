// Package mqtt publishes simulator output to an MQTT broker, with a fake
// publisher for tests.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/cniweb/Hackathon2025/internal/alerts"
	"github.com/cniweb/Hackathon2025/internal/generator"
	"github.com/cniweb/Hackathon2025/internal/logic"
)

const (
	// TopicSamples carries one frame per tick (QoS 0).
	TopicSamples = "energy/shopfloor/simulator/samples"
	// TopicEvents carries machine run-state transitions (QoS 1).
	TopicEvents = "energy/shopfloor/simulator/events"
	// TopicAlerts carries anomaly alerts (QoS 1).
	TopicAlerts = "energy/shopfloor/simulator/alerts"
	// TopicSystem carries lifecycle events (QoS 1, retained where flagged).
	TopicSystem = "energy/shopfloor/simulator/system"
)

// Publisher publishes simulator output. Errors are reported to the caller,
// which logs them and carries on.
type Publisher interface {
	PublishFrame(frame generator.Frame) error
	Publish(event logic.Event) error
	PublishAlert(alert alerts.Alert) error
	PublishSystem(event SystemEvent) error
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent is a lifecycle event (STARTUP, SHUTDOWN, HEARTBEAT, RECONNECTED).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string
	Reason     string // SIGTERM, SIGINT, MQTT_DISCONNECT
	RawPayload []byte // pre-formatted JSON; returned as-is by FormatSystemPayload
	Retained   bool
}

// FramePayload is the JSON body on TopicSamples.
type FramePayload struct {
	Sample SamplePayload `json:"sample"`
}

// SamplePayload contains one tick of both signals.
type SamplePayload struct {
	Timestamp string         `json:"timestamp"`
	Tick      int64          `json:"tick"`
	Voltage   VoltagePayload `json:"voltage"`
	Load      LoadPayload    `json:"load"`
}

// VoltagePayload holds the three phase voltages.
type VoltagePayload struct {
	L1 float64 `json:"l1"`
	L2 float64 `json:"l2"`
	L3 float64 `json:"l3"`
}

// LoadPayload holds the RMS load value and derived state.
type LoadPayload struct {
	Value float64 `json:"value"`
	State string  `json:"state"`
}

// FormatFrame creates the JSON payload for a frame.
func FormatFrame(f generator.Frame) ([]byte, error) {
	return json.Marshal(FramePayload{Sample: SamplePayload{
		Timestamp: f.Timestamp.UTC().Format(time.RFC3339Nano),
		Tick:      f.Tick(),
		Voltage:   VoltagePayload{L1: f.Voltage.L1, L2: f.Voltage.L2, L3: f.Voltage.L3},
		Load:      LoadPayload{Value: f.Load.Value, State: string(f.Load.State)},
	}})
}

// Payload is the JSON body on TopicEvents.
type Payload struct {
	Machine MachinePayload `json:"machine"`
}

// MachinePayload contains a run-state transition.
type MachinePayload struct {
	Timestamp string  `json:"timestamp"`
	Event     string  `json:"event"`
	From      string  `json:"from"`
	To        string  `json:"to"`
	Tick      int64   `json:"tick"`
	Value     float64 `json:"value"`
}

// FormatPayload creates the JSON payload for a run-state event.
func FormatPayload(event logic.Event) ([]byte, error) {
	return json.Marshal(Payload{Machine: MachinePayload{
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
		Event:     string(event.Type),
		From:      string(event.From),
		To:        string(event.To),
		Tick:      event.Tick,
		Value:     event.Value,
	}})
}

// AlertPayload is the JSON body on TopicAlerts.
type AlertPayload struct {
	Alert AlertInner `json:"alert"`
}

// AlertInner contains the alert details.
type AlertInner struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Location  string `json:"location,omitempty"`
	Machine   string `json:"machine,omitempty"`
}

// FormatAlert creates the JSON payload for an alert.
func FormatAlert(a alerts.Alert) ([]byte, error) {
	return json.Marshal(AlertPayload{Alert: AlertInner{
		ID:        a.ID,
		Timestamp: a.Time.UTC().Format(time.RFC3339),
		Type:      string(a.Type),
		Title:     a.Title,
		Message:   a.Message,
		Location:  a.Location,
		Machine:   a.Machine,
	}})
}

// SystemPayload is used for simple system events (LWT, RECONNECTED) that
// do not carry a status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}
	return json.Marshal(SystemPayload{System: SystemPayloadInner{
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
		Event:     event.Event,
		Reason:    event.Reason,
	}})
}
