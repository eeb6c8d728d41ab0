package logic

import (
	"time"

	"github.com/cniweb/Hackathon2025/internal/generator"
)

// Detector tracks the stable machine state and reports transitions.
// A new state must hold for the settle duration before it becomes stable;
// with a zero settle duration every change is reported on the tick it occurs.
type Detector struct {
	settle time.Duration

	stable       generator.MachineState
	pending      generator.MachineState
	pendingSince time.Time
	lastTick     int64
	baselined    bool

	startTime     time.Time
	counts        EventCounts
	lastHeartbeat time.Time
}

// NewDetector creates a detector. The startTime is used for heartbeat uptime.
func NewDetector(settle time.Duration, startTime time.Time) *Detector {
	return &Detector{
		settle:        settle,
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
}

// Process consumes one RMS sample and returns any transition it completes.
// The first stable state is the baseline and produces no event.
func (d *Detector) Process(s generator.RMSSample, now time.Time) []Event {
	d.lastTick = s.Tick

	if !d.baselined {
		if d.pending != s.State || d.pending == "" {
			d.pending = s.State
			d.pendingSince = now
		}
		if now.Sub(d.pendingSince) >= d.settle {
			d.stable = s.State
			d.pending = ""
			d.baselined = true
		}
		return nil
	}

	if s.State == d.stable {
		d.pending = ""
		return nil
	}
	if s.State != d.pending {
		d.pending = s.State
		d.pendingSince = now
	}
	if now.Sub(d.pendingSince) < d.settle {
		return nil
	}

	e := Event{
		Timestamp: now,
		Type:      EventTypeFor(s.State),
		From:      d.stable,
		To:        s.State,
		Tick:      s.Tick,
		Value:     s.Value,
	}
	d.stable = s.State
	d.pending = ""
	d.count(e.Type)
	return []Event{e}
}

func (d *Detector) count(t EventType) {
	switch t {
	case EventProduction:
		d.counts.Production++
	case EventStandby:
		d.counts.Standby++
	case EventOff:
		d.counts.Off++
	}
}

// IsBaselined returns whether the detector has established a baseline.
func (d *Detector) IsBaselined() bool {
	return d.baselined
}

// CurrentState returns the stable state, or "" before the baseline.
func (d *Detector) CurrentState() generator.MachineState {
	return d.stable
}

// Counts returns the transition counts since startup.
func (d *Detector) Counts() EventCounts {
	return d.counts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if not yet baselined, if the
// interval has not elapsed, or if interval is <= 0 (disabled).
func (d *Detector) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 || !d.baselined {
		return nil
	}
	if now.Sub(d.lastHeartbeat) < interval {
		return nil
	}

	d.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(d.startTime),
		State:     d.stable,
		Tick:      d.lastTick,
		Counts:    d.counts,
	}
}
