package insights

import (
	"fmt"
	"math"
	"time"

	"github.com/cniweb/Hackathon2025/internal/generator"
)

// View selects the resolution of a history dataset.
type View string

const (
	ViewDay   View = "day"
	ViewWeek  View = "week"
	ViewMonth View = "month"
)

// Month is an importable dataset.
type Month struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// AvailableMonths lists the datasets offered for import, newest first.
func AvailableMonths() []Month {
	return []Month{
		{ID: "202510", Label: "Oct 2025"},
		{ID: "202509", Label: "Sep 2025"},
		{ID: "202508", Label: "Aug 2025"},
	}
}

// DatasetFile returns the smart-meter file name for a month id.
func DatasetFile(month string) string {
	return fmt.Sprintf("ckw_opendata_smartmeter_dataset_a_%s.csv.gz", month)
}

// ParseMonth parses a YYYYMM id.
func ParseMonth(id string) (time.Time, error) {
	if len(id) != 6 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidMonth, id)
	}
	t, err := time.Parse("200601", id)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidMonth, id)
	}
	return t, nil
}

// PreviousMonth returns the id of the calendar month before id.
func PreviousMonth(id string) (string, error) {
	t, err := ParseMonth(id)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, -1, 0).Format("200601"), nil
}

// History returns an imported dataset for month at the given resolution:
// 96 quarter-hour points for the 15th (day), 168 hourly points starting the
// 10th (week), or one point per calendar day (month).
func History(month string, view View, r generator.Rand) ([]Point, error) {
	t, err := ParseMonth(month)
	if err != nil {
		return nil, err
	}
	r = rnd(r)
	switch view {
	case ViewDay:
		return historyDay(t, r), nil
	case ViewWeek:
		return historyWeek(t, r), nil
	case ViewMonth:
		return historyMonth(t, r), nil
	}
	return nil, fmt.Errorf("%w: history view %q", ErrInvalidView, view)
}

func historyDay(month time.Time, r generator.Rand) []Point {
	date := time.Date(month.Year(), month.Month(), 15, 0, 0, 0, 0, time.UTC)
	dateStr := date.Format("02.01.2006")

	base := 180.0
	if m := month.Month(); m >= time.May && m <= time.September {
		base = 120
	}

	out := make([]Point, 0, 96)
	for h := 0; h < 24; h++ {
		for _, quarter := range []int{0, 15, 30, 45} {
			ts := fmt.Sprintf("%02d:%02d", h, quarter)
			v := base + r.Float64()*80
			if h >= 6 && h <= 9 {
				v += 250 + r.Float64()*80
			}
			if h >= 17 && h <= 21 {
				v += 350 + r.Float64()*120
			}
			if h >= 23 || h <= 5 {
				v = 60 + r.Float64()*30
			}
			solar := 0.0
			if h > 6 && h < 19 {
				dist := math.Abs(float64(h - 13))
				solar = math.Max(0, 300-dist*50+r.Float64()*50)
			}
			out = append(out, Point{
				Time:     ts,
				FullDate: dateStr + " " + ts,
				KWh:      round(v),
				CO2:      round(v * 0.35),
				Solar:    round(solar),
			})
		}
	}
	return out
}

func historyWeek(month time.Time, r generator.Rand) []Point {
	const startDay = 10
	out := make([]Point, 0, 7*24)
	for d := 0; d < 7; d++ {
		weekend := d >= 5
		for h := 0; h < 24; h++ {
			v := 150 + r.Float64()*50
			if !weekend && h > 7 && h < 18 {
				v += 400
			}
			if weekend && h > 9 && h < 20 {
				v += 100
			}
			solar := 0.0
			if h > 6 && h < 19 {
				solar = math.Max(0, 250-math.Abs(float64(13-h))*40+r.Float64()*50)
			}
			out = append(out, Point{
				Time:     fmt.Sprintf("%s %d:00", Weekdays[d], h),
				FullDate: fmt.Sprintf("%d.%d. %d:00", startDay+d, int(month.Month()), h),
				KWh:      round(v),
				Solar:    round(solar),
			})
		}
	}
	return out
}

func historyMonth(month time.Time, r generator.Rand) []Point {
	days := month.AddDate(0, 1, -1).Day()
	out := make([]Point, 0, days)
	for d := 1; d <= days; d++ {
		date := time.Date(month.Year(), month.Month(), d, 0, 0, 0, 0, time.UTC)
		sum := 6500.0
		if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
			sum = 2500
		}
		sum += r.Float64()*1000 - 500
		solar := 1500 + r.Float64()*1000
		out = append(out, Point{
			Time:     fmt.Sprintf("%d.", d),
			FullDate: date.Format("02.01.2006"),
			KWh:      round(sum),
			Solar:    round(solar),
		})
	}
	return out
}

// CompareMode selects the comparison dataset.
type CompareMode string

const (
	CompareLocations CompareMode = "locations"
	CompareTime      CompareMode = "time"
	CompareDevices   CompareMode = "devices"
)

// ComparePoint is one day of a comparison. Set3 is absent in time mode.
type ComparePoint struct {
	Name string `json:"name"`
	Set1 int    `json:"set1"`
	Set2 int    `json:"set2"`
	Set3 *int   `json:"set3,omitempty"`
}

// Compare derives a comparison from the month view of month: three
// locations, this month against the previous one, or three device groups.
func Compare(month string, mode CompareMode, r generator.Rand) ([]ComparePoint, error) {
	r = rnd(r)
	base, err := History(month, ViewMonth, r)
	if err != nil {
		return nil, err
	}

	split := func(a, b, c float64) []ComparePoint {
		out := make([]ComparePoint, len(base))
		for i, p := range base {
			s3 := round(float64(p.KWh) * c)
			out[i] = ComparePoint{
				Name: p.Time,
				Set1: round(float64(p.KWh) * a),
				Set2: round(float64(p.KWh) * b),
				Set3: &s3,
			}
		}
		return out
	}

	switch mode {
	case CompareLocations:
		return split(0.4, 1.1, 0.7), nil
	case CompareDevices:
		return split(0.3, 0.5, 0.2), nil
	case CompareTime:
		prevID, _ := PreviousMonth(month)
		prev, err := History(prevID, ViewMonth, r)
		if err != nil {
			return nil, err
		}
		out := make([]ComparePoint, len(base))
		for i, p := range base {
			cp := ComparePoint{Name: p.Time, Set1: p.KWh}
			if i < len(prev) {
				cp.Set2 = prev[i].KWh
			} else {
				cp.Set2 = round(float64(p.KWh) * 0.95)
			}
			out[i] = cp
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: compare mode %q", ErrInvalidView, mode)
}
