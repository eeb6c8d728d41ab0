package insights

import (
	"math"

	"github.com/cniweb/Hackathon2025/internal/generator"
)

// SinusProfile returns points samples of a 230 V sine with a 0.2 rad step,
// starting at phaseOffset, with up to 5% positive noise.
func SinusProfile(points int, phaseOffset float64, r generator.Rand) []float64 {
	const (
		amplitude = 230.0
		noise     = 0.05
		step      = 0.2
	)
	r = rnd(r)
	out := make([]float64, max(points, 0))
	for i := range out {
		angle := float64(i)*step + phaseOffset
		out[i] = amplitude*math.Sin(angle) + r.Float64()*amplitude*noise
	}
	return out
}

// RMSProfile returns points samples of a 100-tick duty cycle (15 high, 55
// standby, 30 off) shifted by timeShift ticks, with up to 10% noise.
func RMSProfile(points, timeShift int, r generator.Rand) []float64 {
	const cycle = 100
	r = rnd(r)
	out := make([]float64, max(points, 0))
	for i := range out {
		t := ((i+timeShift)%cycle + cycle) % cycle
		var v float64
		switch {
		case t < 15:
			v = 5
		case t < 70:
			v = 1
		}
		out[i] = v + r.Float64()*v*0.1
	}
	return out
}
