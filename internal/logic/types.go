// Package logic tracks the machine run state derived from the RMS load stream.
// It has no transport, GPIO or OS dependencies. Time is always passed in.
package logic

import (
	"time"

	"github.com/cniweb/Hackathon2025/internal/generator"
)

// EventType names a run-state transition.
type EventType string

const (
	EventProduction EventType = "MACHINE_PRODUCTION"
	EventStandby    EventType = "MACHINE_STANDBY"
	EventOff        EventType = "MACHINE_OFF"
)

// Event is a run-state transition to be published.
type Event struct {
	Timestamp time.Time
	Type      EventType
	From      generator.MachineState
	To        generator.MachineState
	Tick      int64
	Value     float64
}

// EventCounts tracks the number of each transition since startup.
type EventCounts struct {
	Production int
	Standby    int
	Off        int
}

// Total returns the sum of all transitions.
func (c EventCounts) Total() int {
	return c.Production + c.Standby + c.Off
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	State     generator.MachineState
	Tick      int64
	Counts    EventCounts
}

// EventTypeFor maps the state a machine entered to its event type.
func EventTypeFor(s generator.MachineState) EventType {
	switch s {
	case generator.StateProduction:
		return EventProduction
	case generator.StateStandby:
		return EventStandby
	default:
		return EventOff
	}
}
