// Package alerts produces demo anomaly alerts and keeps a bounded history.
package alerts

import (
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cniweb/Hackathon2025/internal/generator"
)

// Severity of an alert.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
)

const (
	// DefaultProbability is the chance that a trigger produces an alert.
	DefaultProbability = 0.2
	// DefaultCapacity is the number of alerts kept in the log.
	DefaultCapacity = 50
)

// Messages are the demo anomaly descriptions.
var Messages = []string{
	"Voltage Dip L2",
	"Overload in Hall 4",
	"Check Reactive Power",
}

// Alert is a detected anomaly.
type Alert struct {
	ID       string    `json:"id"`
	Type     Severity  `json:"type"`
	Title    string    `json:"title"`
	Message  string    `json:"message"`
	Time     time.Time `json:"time"`
	Location string    `json:"locationId,omitempty"`
	Machine  string    `json:"machineId,omitempty"`
}

// Generator rolls for demo alerts.
type Generator struct {
	rand        generator.Rand
	probability float64
	newID       func() string
}

// NewGenerator creates a generator firing with DefaultProbability.
// A nil r uses generator.DefaultRand.
func NewGenerator(r generator.Rand) *Generator {
	if r == nil {
		r = generator.DefaultRand
	}
	return &Generator{
		rand:        r,
		probability: DefaultProbability,
		newID:       func() string { return uuid.NewString() },
	}
}

// WithProbability sets the firing probability, clamped to [0, 1].
func (g *Generator) WithProbability(p float64) *Generator {
	g.probability = math.Max(0, math.Min(1, p))
	return g
}

// Maybe draws once and returns an alert with the configured probability.
// A firing roll draws twice more to pick severity and message.
func (g *Generator) Maybe(now time.Time) (Alert, bool) {
	if g.rand.Float64() <= 1-g.probability {
		return Alert{}, false
	}
	sev := SeverityCritical
	if pick(g.rand, 2) == 1 {
		sev = SeverityWarning
	}
	return Alert{
		ID:      g.newID(),
		Type:    sev,
		Title:   Title(sev),
		Message: Messages[pick(g.rand, len(Messages))],
		Time:    now,
	}, true
}

// Title returns the display title for a severity.
func Title(s Severity) string {
	if s == SeverityCritical {
		return "Critical Alert"
	}
	return "Warning"
}

func pick(r generator.Rand, n int) int {
	i := int(r.Float64() * float64(n))
	if i >= n {
		i = n - 1
	}
	return i
}

// Log keeps the newest alerts first, dropping the oldest beyond capacity.
// Safe for concurrent use.
type Log struct {
	mu       sync.RWMutex
	capacity int
	items    []Alert
	total    int
}

// NewLog creates a log. Non-positive capacity uses DefaultCapacity.
func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{capacity: capacity}
}

// Add prepends an alert.
func (l *Log) Add(a Alert) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append([]Alert{a}, l.items...)
	if len(l.items) > l.capacity {
		l.items = l.items[:l.capacity]
	}
	l.total++
}

// List returns a copy of the alerts, newest first.
func (l *Log) List() []Alert {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Alert(nil), l.items...)
}

// Clear removes all alerts. The total count is kept.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = nil
}

// Total returns the number of alerts ever added.
func (l *Log) Total() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.total
}
