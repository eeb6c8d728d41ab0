package generator

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Segment is one step of a duty cycle: a base load held for Duration ticks.
type Segment struct {
	Value    float64 `yaml:"value" json:"value"`
	Duration int64   `yaml:"duration" json:"duration"`
}

// DefaultCycle runs at full draw for 30 ticks, idles for 150 and is off for 60.
var DefaultCycle = []Segment{
	{Value: 5.0, Duration: 30},
	{Value: 1.0, Duration: 150},
	{Value: 0.0, Duration: 60},
}

// DefaultLoadNoise is the maximum upward noise as a fraction of the base value.
const DefaultLoadNoise = 0.1

// State thresholds on the noisy load value.
const (
	productionThreshold = 4.0
	standbyThreshold    = 0.5
)

// ErrInvalidCycle is returned for an empty cycle or a non-positive duration.
var ErrInvalidCycle = errors.New("invalid duty cycle")

// RMSCycle produces machine-load samples following a repeating duty cycle.
type RMSCycle struct {
	segments []Segment
	period   int64
	noise    float64
	rand     Rand
}

// NewRMSCycle creates a generator for the given cycle. A nil or empty
// segments uses DefaultCycle; a nil r uses DefaultRand.
func NewRMSCycle(segments []Segment, r Rand) (*RMSCycle, error) {
	if len(segments) == 0 {
		segments = DefaultCycle
	}
	if r == nil {
		r = DefaultRand
	}

	var period int64
	for i, seg := range segments {
		if seg.Duration <= 0 {
			return nil, fmt.Errorf("%w: segment %d has duration %d", ErrInvalidCycle, i, seg.Duration)
		}
		if seg.Value < 0 {
			return nil, fmt.Errorf("%w: segment %d has negative value %v", ErrInvalidCycle, i, seg.Value)
		}
		period += seg.Duration
	}

	cp := make([]Segment, len(segments))
	copy(cp, segments)
	return &RMSCycle{
		segments: cp,
		period:   period,
		noise:    DefaultLoadNoise,
		rand:     r,
	}, nil
}

// Period returns the total cycle length in ticks.
func (g *RMSCycle) Period() int64 {
	return g.period
}

// Segments returns a copy of the cycle definition.
func (g *RMSCycle) Segments() []Segment {
	cp := make([]Segment, len(g.segments))
	copy(cp, g.segments)
	return cp
}

// CycleTime maps tick into [0, Period). Negative ticks wrap around.
func (g *RMSCycle) CycleTime(tick int64) int64 {
	ct := tick % g.period
	if ct < 0 {
		ct += g.period
	}
	return ct
}

// Base returns the noiseless load for tick.
func (g *RMSCycle) Base(tick int64) float64 {
	ct := g.CycleTime(tick)
	var acc int64
	for _, seg := range g.segments {
		if ct < acc+seg.Duration {
			return seg.Value
		}
		acc += seg.Duration
	}
	// Unreachable: ct < period == sum of durations.
	return g.segments[len(g.segments)-1].Value
}

// Sample returns the noisy load for tick.
func (g *RMSCycle) Sample(tick int64) RMSSample {
	base := g.Base(tick)
	value := base
	if base > 0 {
		value += uniform(g.rand, 0, base*g.noise)
	}
	value = round2(value)
	return RMSSample{
		Tick:  tick,
		Value: value,
		State: StateFor(value),
	}
}

// StateFor classifies a load value.
func StateFor(value float64) MachineState {
	switch {
	case value > productionThreshold:
		return StateProduction
	case value > standbyThreshold:
		return StateStandby
	default:
		return StateOff
	}
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
