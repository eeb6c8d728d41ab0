// Package insights produces the synthetic analytics datasets shown next to
// the live signals: a simulated day, imported history, comparisons, an
// ML-style forecast, a weekly heatmap, cost and peak-consumer views.
//
// All functions are pure apart from the injected random source.
package insights

import (
	"errors"
	"fmt"
	"math"

	"github.com/cniweb/Hackathon2025/internal/generator"
)

var (
	// ErrInvalidMonth is returned for month ids that are not YYYYMM.
	ErrInvalidMonth = errors.New("invalid month id")
	// ErrInvalidView is returned for unknown history views or compare modes.
	ErrInvalidView = errors.New("invalid view")
)

// Point is one consumption sample. Optional fields are zero when the view
// does not provide them.
type Point struct {
	Time     string `json:"time"`
	FullDate string `json:"fullDate,omitempty"`
	KWh      int    `json:"kwh"`
	CO2      int    `json:"co2,omitempty"`
	Solar    int    `json:"solar"`
	Source   string `json:"source,omitempty"`
}

func rnd(r generator.Rand) generator.Rand {
	if r == nil {
		return generator.DefaultRand
	}
	return r
}

func round(v float64) int {
	return int(math.Round(v))
}

// SimulatedDay returns 24 hourly points: a random base load, a working-hours
// peak and a fixed anomaly at 14:00.
func SimulatedDay(r generator.Rand) []Point {
	r = rnd(r)
	out := make([]Point, 0, 24)
	for h := 0; h < 24; h++ {
		load := 150 + r.Float64()*50
		if h > 8 && h < 18 {
			load += 300
		}
		if h == 14 {
			load += 400
		}
		solar := 0
		if h > 6 && h < 20 {
			solar = round(r.Float64() * 200)
		}
		out = append(out, Point{
			Time:   fmt.Sprintf("%d:00", h),
			KWh:    round(load),
			CO2:    round(load * 0.4),
			Solar:  solar,
			Source: "simulated",
		})
	}
	return out
}

// ForecastPoint is one entry of a forecast series. Actual is set for the
// observed half, Predicted/Lower/Upper for the predicted half.
type ForecastPoint struct {
	Time      string `json:"time"`
	Actual    *int   `json:"actual"`
	Predicted *int   `json:"predicted"`
	Lower     *int   `json:"lower"`
	Upper     *int   `json:"upper"`
}

// Forecast returns 24 observed hourly points followed by 24 predicted points
// whose confidence band widens by 2 kWh per hour.
func Forecast(r generator.Rand) []ForecastPoint {
	r = rnd(r)
	out := make([]ForecastPoint, 0, 48)
	for h := 0; h < 24; h++ {
		v := round(forecastBase(h) + r.Float64()*30)
		out = append(out, ForecastPoint{Time: fmt.Sprintf("%d:00", h), Actual: &v})
	}
	for h := 0; h < 24; h++ {
		trend := forecastBase(h) * 1.05
		p := round(trend)
		lo := round(trend - 20 - float64(h)*2)
		hi := round(trend + 20 + float64(h)*2)
		out = append(out, ForecastPoint{Time: fmt.Sprintf("+%dh", h), Predicted: &p, Lower: &lo, Upper: &hi})
	}
	return out
}

func forecastBase(h int) float64 {
	return 200 + 100*math.Sin(float64(h)/24*2*math.Pi-math.Pi/2)
}

// Weekdays are the heatmap row labels, Monday first.
var Weekdays = []string{"Mo", "Di", "Mi", "Do", "Fr", "Sa", "So"}

// HeatmapRow is one day of hourly intensities in [0, 100].
type HeatmapRow struct {
	Day   string `json:"day"`
	Hours []int  `json:"hours"`
}

// Heatmap returns a 7x24 intensity grid with a daytime boost and damped
// weekends.
func Heatmap(r generator.Rand) []HeatmapRow {
	r = rnd(r)
	out := make([]HeatmapRow, 0, len(Weekdays))
	for i, day := range Weekdays {
		hours := make([]int, 24)
		for h := range hours {
			v := r.Float64() * 100
			if h > 6 && h < 18 {
				v += 50
			}
			if i >= 5 {
				v *= 0.4
			}
			hours[h] = min(100, round(v))
		}
		out = append(out, HeatmapRow{Day: day, Hours: hours})
	}
	return out
}
