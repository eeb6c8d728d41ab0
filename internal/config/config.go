// Package config loads the optional YAML file describing the simulated plant.
package config

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/cniweb/Hackathon2025/internal/alerts"
	"github.com/cniweb/Hackathon2025/internal/generator"
	"github.com/cniweb/Hackathon2025/internal/hierarchy"
	"github.com/cniweb/Hackathon2025/internal/insights"
)

type Config struct {
	Signal    SignalConfig   `yaml:"signal"`
	Load      LoadConfig     `yaml:"load"`
	Hierarchy hierarchy.Tree `yaml:"hierarchy"`
	Alerts    AlertsConfig   `yaml:"alerts"`
	Pricing   PricingConfig  `yaml:"pricing"`
}

type SignalConfig struct {
	Amplitude  float64 `yaml:"amplitude"`
	NoiseRatio float64 `yaml:"noise_ratio"`
	AngleStep  float64 `yaml:"angle_step"`
}

type LoadConfig struct {
	Cycle []generator.Segment `yaml:"cycle"`
}

type AlertsConfig struct {
	Probability *float64 `yaml:"probability"`
	Capacity    int      `yaml:"capacity"`
}

type PricingConfig struct {
	// PerKWh is a decimal string such as "0.28".
	PerKWh string `yaml:"per_kwh"`

	price decimal.Decimal
}

// Price returns the parsed electricity price.
func (p PricingConfig) Price() decimal.Decimal {
	return p.price
}

// Default returns the built-in configuration used when no file is given.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		panic(fmt.Sprintf("default config invalid: %v", err))
	}
	return &cfg
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// Parse decodes, defaults and validates a YAML document.
func Parse(raw []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Signal.Amplitude == 0 {
		c.Signal.Amplitude = generator.DefaultAmplitude
	}
	if c.Signal.NoiseRatio == 0 {
		c.Signal.NoiseRatio = generator.DefaultNoiseRatio
	}
	if c.Signal.AngleStep == 0 {
		c.Signal.AngleStep = generator.DefaultAngleStep
	}
	if len(c.Load.Cycle) == 0 {
		c.Load.Cycle = append([]generator.Segment(nil), generator.DefaultCycle...)
	}
	if len(c.Hierarchy) == 0 {
		c.Hierarchy = hierarchy.Default()
	}
	if c.Alerts.Probability == nil {
		p := alerts.DefaultProbability
		c.Alerts.Probability = &p
	}
	if c.Alerts.Capacity == 0 {
		c.Alerts.Capacity = alerts.DefaultCapacity
	}
	if c.Pricing.PerKWh == "" {
		c.Pricing.PerKWh = insights.DefaultPrice.String()
	}
}

func (c *Config) validate() error {
	if c.Signal.Amplitude < 0 {
		return fmt.Errorf("signal.amplitude must not be negative")
	}
	if c.Signal.NoiseRatio < 0 || c.Signal.NoiseRatio > 1 {
		return fmt.Errorf("signal.noise_ratio must be within [0, 1]")
	}
	if _, err := generator.NewRMSCycle(c.Load.Cycle, nil); err != nil {
		return fmt.Errorf("load.cycle: %w", err)
	}
	if err := c.Hierarchy.Validate(); err != nil {
		return fmt.Errorf("hierarchy: %w", err)
	}
	if p := *c.Alerts.Probability; p < 0 || p > 1 {
		return fmt.Errorf("alerts.probability must be within [0, 1]")
	}
	if c.Alerts.Capacity < 0 {
		return fmt.Errorf("alerts.capacity must not be negative")
	}
	price, err := decimal.NewFromString(c.Pricing.PerKWh)
	if err != nil {
		return fmt.Errorf("pricing.per_kwh: %w", err)
	}
	if price.IsNegative() {
		return fmt.Errorf("pricing.per_kwh must not be negative")
	}
	c.Pricing.price = price
	return nil
}

// ThreePhase builds the voltage generator described by the signal section.
func (c *Config) ThreePhase(r generator.Rand) *generator.ThreePhase {
	g := generator.NewThreePhase(r)
	g.Amplitude = c.Signal.Amplitude
	g.NoiseRatio = c.Signal.NoiseRatio
	g.AngleStep = c.Signal.AngleStep
	return g
}

// RMSCycle builds the load generator described by the load section.
func (c *Config) RMSCycle(r generator.Rand) (*generator.RMSCycle, error) {
	return generator.NewRMSCycle(c.Load.Cycle, r)
}

// AlertGenerator builds the demo alert generator.
func (c *Config) AlertGenerator(r generator.Rand) *alerts.Generator {
	return alerts.NewGenerator(r).WithProbability(*c.Alerts.Probability)
}
