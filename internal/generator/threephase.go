package generator

import "math"

// Defaults for the three-phase generator.
const (
	DefaultAmplitude  = 230.0
	DefaultNoiseRatio = 0.02
	DefaultAngleStep  = 0.1
)

// Phase offsets in radians for L1, L2, L3.
var phaseOffsets = [3]float64{0, 2 * math.Pi / 3, 4 * math.Pi / 3}

// ThreePhase synthesizes a noisy 3-phase AC voltage.
type ThreePhase struct {
	Amplitude  float64
	NoiseRatio float64 // peak-to-peak noise as a fraction of Amplitude
	AngleStep  float64 // radians per tick

	rand Rand
}

// NewThreePhase creates a generator with the default 230 V amplitude and
// ±1% (2% peak-to-peak) noise. A nil r uses DefaultRand.
func NewThreePhase(r Rand) *ThreePhase {
	if r == nil {
		r = DefaultRand
	}
	return &ThreePhase{
		Amplitude:  DefaultAmplitude,
		NoiseRatio: DefaultNoiseRatio,
		AngleStep:  DefaultAngleStep,
		rand:       r,
	}
}

// Sample returns the noisy voltage for tick. Each phase draws its own noise.
func (g *ThreePhase) Sample(tick int64) SignalSample {
	clean := g.Clean(tick)
	return SignalSample{
		Tick: tick,
		L1:   clean.L1 + g.noise(),
		L2:   clean.L2 + g.noise(),
		L3:   clean.L3 + g.noise(),
	}
}

// Clean returns the noiseless voltage for tick.
func (g *ThreePhase) Clean(tick int64) SignalSample {
	angle := float64(tick) * g.AngleStep
	return SignalSample{
		Tick: tick,
		L1:   g.Amplitude * math.Sin(angle+phaseOffsets[0]),
		L2:   g.Amplitude * math.Sin(angle+phaseOffsets[1]),
		L3:   g.Amplitude * math.Sin(angle+phaseOffsets[2]),
	}
}

// MaxNoise is the largest absolute deviation noise can add to a phase.
func (g *ThreePhase) MaxNoise() float64 {
	return g.Amplitude * g.NoiseRatio / 2
}

func (g *ThreePhase) noise() float64 {
	half := g.MaxNoise()
	return uniform(g.rand, -half, half)
}
