// Package gpio drives the run-state indicator LED. The real implementation
// uses the Linux GPIO character device; the fake records writes for tests.
package gpio

import "github.com/cniweb/Hackathon2025/internal/generator"

// DefaultPin is the BCM pin of the indicator LED.
const DefaultPin = 17

// Indicator is a single digital output.
type Indicator interface {
	// Set drives the output high (on) or low.
	Set(on bool) error

	// Close releases GPIO resources, leaving the output low.
	Close() error
}

// RunLED lights an Indicator while the machine is in production. It only
// writes when the desired level changes.
type RunLED struct {
	out   Indicator
	on    bool
	known bool
}

// NewRunLED wraps out.
func NewRunLED(out Indicator) *RunLED {
	return &RunLED{out: out}
}

// Update sets the LED for the given machine state.
func (l *RunLED) Update(state generator.MachineState) error {
	on := state == generator.StateProduction
	if l.known && on == l.on {
		return nil
	}
	if err := l.out.Set(on); err != nil {
		l.known = false
		return err
	}
	l.on, l.known = on, true
	return nil
}

// On reports the last level written.
func (l *RunLED) On() bool {
	return l.known && l.on
}
