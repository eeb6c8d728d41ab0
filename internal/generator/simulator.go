package generator

import "time"

// Simulator owns the tick counter and samples both generators per tick.
// Not safe for concurrent use.
type Simulator struct {
	voltage *ThreePhase
	load    *RMSCycle
	tick    int64
}

// NewSimulator creates a Simulator starting at tick 0.
func NewSimulator(voltage *ThreePhase, load *RMSCycle) *Simulator {
	return &Simulator{voltage: voltage, load: load}
}

// Next advances the tick counter and returns the frame for the new tick.
// The first frame is tick 1.
func (s *Simulator) Next(now time.Time) Frame {
	s.tick++
	return s.At(s.tick, now)
}

// At samples both generators for an explicit tick without advancing the counter.
func (s *Simulator) At(tick int64, now time.Time) Frame {
	return Frame{
		Timestamp: now,
		Voltage:   s.voltage.Sample(tick),
		Load:      s.load.Sample(tick),
	}
}

// Tick returns the last tick produced by Next.
func (s *Simulator) Tick() int64 {
	return s.tick
}
