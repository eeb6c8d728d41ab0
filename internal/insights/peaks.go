package insights

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cniweb/Hackathon2025/internal/generator"
)

// ErrUnknownConsumer is returned by DrillDownByName.
var ErrUnknownConsumer = errors.New("unknown consumer")

// PeakConsumer is a device group with its peak load in watts and the time of
// day it usually occurs ("24/7" for constant loads).
type PeakConsumer struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
	Time  string `json:"time"`
}

// PeakConsumers returns the top consumers, highest first.
func PeakConsumers() []PeakConsumer {
	return []PeakConsumer{
		{Name: "Klima (Haupt)", Value: 1250, Time: "14:00"},
		{Name: "Produktion A", Value: 980, Time: "10:15"},
		{Name: "Laden (EV)", Value: 850, Time: "08:30"},
		{Name: "Küche", Value: 620, Time: "12:00"},
		{Name: "Serverraum", Value: 550, Time: "24/7"},
	}
}

// HourValue is one hourly load value in watts.
type HourValue struct {
	Time  string `json:"time"`
	Value int    `json:"value"`
}

// DrillDown returns a 24h profile for c: background noise of 10-60 W plus a
// gaussian bump of half the peak value within 4 hours of the peak hour.
func DrillDown(c PeakConsumer, r generator.Rand) []HourValue {
	r = rnd(r)
	peak, hasPeak := peakHour(c.Time)
	out := make([]HourValue, 0, 24)
	for h := 0; h < 24; h++ {
		v := r.Float64()*50 + 10
		if hasPeak {
			if dist := math.Abs(float64(h - peak)); dist < 5 {
				v += float64(c.Value) / 2 * math.Exp(-(dist*dist)/4)
			}
		}
		out = append(out, HourValue{Time: fmt.Sprintf("%d:00", h), Value: round(v)})
	}
	return out
}

// DrillDownByName looks a consumer up by name and returns its profile.
func DrillDownByName(name string, r generator.Rand) (PeakConsumer, []HourValue, error) {
	for _, c := range PeakConsumers() {
		if strings.EqualFold(c.Name, name) {
			return c, DrillDown(c, r), nil
		}
	}
	return PeakConsumer{}, nil, fmt.Errorf("%w: %q", ErrUnknownConsumer, name)
}

// peakHour reads the leading hour of "HH:MM" or "24/7".
func peakHour(s string) (int, bool) {
	end := strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' })
	if end == 0 {
		return 0, false
	}
	if end < 0 {
		end = len(s)
	}
	h, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return h, true
}

// DefaultPrice is the electricity price per kWh used when none is configured.
var DefaultPrice = decimal.RequireFromString("0.28")

// Cost is a cost forecast over a dataset.
type Cost struct {
	KWh   int             `json:"kwh"`
	Price decimal.Decimal `json:"pricePerKwh"`
	Total decimal.Decimal `json:"total"`
}

// CostForecast sums the consumption of points and prices it, rounded to cents.
func CostForecast(points []Point, price decimal.Decimal) Cost {
	var kwh int
	for _, p := range points {
		kwh += p.KWh
	}
	return Cost{
		KWh:   kwh,
		Price: price,
		Total: decimal.NewFromInt(int64(kwh)).Mul(price).Round(2),
	}
}
