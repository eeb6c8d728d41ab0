package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cniweb/Hackathon2025/internal/generator"
	"github.com/cniweb/Hackathon2025/internal/hierarchy"
)

var testTime = time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, generator.DefaultAmplitude, cfg.Signal.Amplitude)
	assert.Equal(t, generator.DefaultNoiseRatio, cfg.Signal.NoiseRatio)
	assert.Equal(t, generator.DefaultAngleStep, cfg.Signal.AngleStep)
	assert.Equal(t, generator.DefaultCycle, cfg.Load.Cycle)
	assert.Equal(t, hierarchy.Default(), cfg.Hierarchy)
	assert.Equal(t, 0.2, *cfg.Alerts.Probability)
	assert.Equal(t, 50, cfg.Alerts.Capacity)
	assert.Equal(t, "0.28", cfg.Pricing.Price().String())
}

func TestParseOverrides(t *testing.T) {
	cfg, err := Parse([]byte(`
signal:
  amplitude: 400
  noise_ratio: 0.05
load:
  cycle:
    - {value: 8, duration: 10}
    - {value: 0, duration: 10}
hierarchy:
  - id: plant
    name: Plant
    halls:
      - id: a
        name: Hall A
        machines:
          - id: press
            name: Press
            devices:
              - {id: motor, name: Motor}
alerts:
  probability: 0
  capacity: 5
pricing:
  per_kwh: "0.315"
`))
	require.NoError(t, err)

	assert.Equal(t, 400.0, cfg.Signal.Amplitude)
	assert.Equal(t, 0.05, cfg.Signal.NoiseRatio)
	assert.Equal(t, generator.DefaultAngleStep, cfg.Signal.AngleStep)
	assert.Len(t, cfg.Load.Cycle, 2)
	assert.Equal(t, "plant", cfg.Hierarchy[0].ID)
	assert.Equal(t, "motor", cfg.Hierarchy[0].Halls[0].Machines[0].Devices[0].ID)
	assert.Equal(t, 0.0, *cfg.Alerts.Probability, "explicit zero probability is kept")
	assert.Equal(t, 5, cfg.Alerts.Capacity)
	assert.Equal(t, "0.315", cfg.Pricing.Price().String())

	rms, err := cfg.RMSCycle(generator.NewFakeRand(0))
	require.NoError(t, err)
	assert.Equal(t, int64(20), rms.Period())

	tp := cfg.ThreePhase(generator.NewFakeRand(0.5))
	assert.InDelta(t, 10.0, tp.MaxNoise(), 1e-9)

	_, fired := cfg.AlertGenerator(generator.NewFakeRand(0.999)).Maybe(testTime)
	assert.False(t, fired)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"bad yaml", "signal: [", ""},
		{"negative amplitude", "signal: {amplitude: -1}", "signal.amplitude"},
		{"noise ratio too large", "signal: {noise_ratio: 2}", "signal.noise_ratio"},
		{"zero duration", "load: {cycle: [{value: 1, duration: 0}]}", "load.cycle"},
		{"duplicate location", "hierarchy: [{id: x, name: X}, {id: x, name: Y}]", "hierarchy"},
		{"probability", "alerts: {probability: 1.5}", "alerts.probability"},
		{"price not a number", "pricing: {per_kwh: cheap}", "pricing.per_kwh"},
		{"negative price", `pricing: {per_kwh: "-0.1"}`, "pricing.per_kwh"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseCycleErrorWraps(t *testing.T) {
	_, err := Parse([]byte("load: {cycle: [{value: 1, duration: -3}]}"))
	assert.True(t, errors.Is(err, generator.ErrInvalidCycle))
}

func TestParseHierarchyErrorWraps(t *testing.T) {
	_, err := Parse([]byte("hierarchy: [{id: x, name: X}, {id: x, name: Y}]"))
	assert.True(t, errors.Is(err, hierarchy.ErrInvalidTree))
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sim.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pricing: {per_kwh: \"0.30\"}\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.3", cfg.Pricing.Price().String())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
