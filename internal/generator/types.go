// Package generator produces synthetic shop-floor signals.
// Every generator is a function of a caller-supplied tick plus an injected
// random source; nothing here reads the clock or touches I/O.
package generator

import "time"

// MachineState is the run state derived from a load sample.
type MachineState string

const (
	StateProduction MachineState = "PRODUCTION"
	StateStandby    MachineState = "STANDBY"
	StateOff        MachineState = "OFF"
)

// SignalSample is one three-phase voltage reading in volts.
type SignalSample struct {
	Tick int64
	L1   float64
	L2   float64
	L3   float64
}

// RMSSample is one machine-load reading.
type RMSSample struct {
	Tick  int64
	Value float64 // rounded to 2 decimal places, never negative
	State MachineState
}

// Frame is everything produced for a single tick.
type Frame struct {
	Timestamp time.Time
	Voltage   SignalSample
	Load      RMSSample
}

// Tick returns the tick both samples were generated for.
func (f Frame) Tick() int64 {
	return f.Voltage.Tick
}
