// Package metrics exposes simulator counters and gauges to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cniweb/Hackathon2025/internal/generator"
)

// Publish sinks, used as the "sink" label of the publish error counter.
const (
	SinkMQTT  = "mqtt"
	SinkKafka = "kafka"
)

// Metrics holds the collectors for one daemon instance on its own registry.
type Metrics struct {
	reg *prometheus.Registry

	frames        prometheus.Counter
	transitions   *prometheus.CounterVec
	load          prometheus.Gauge
	phaseVoltage  *prometheus.GaugeVec
	machineState  *prometheus.GaugeVec
	alerts        *prometheus.CounterVec
	publishErrors *prometheus.CounterVec
	tick          prometheus.Gauge
}

// New registers all collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		frames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "energy_sim_frames_total",
			Help: "Frames generated by the tick loop.",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "energy_sim_state_transitions_total",
			Help: "Machine run-state transitions by target state.",
		}, []string{"state"}),
		load: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "energy_sim_load_rms",
			Help: "Most recent machine load RMS value.",
		}),
		phaseVoltage: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "energy_sim_phase_voltage_volts",
			Help: "Most recent instantaneous voltage per phase.",
		}, []string{"phase"}),
		machineState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "energy_sim_machine_state",
			Help: "1 for the current machine run state, 0 otherwise.",
		}, []string{"state"}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "energy_sim_alerts_total",
			Help: "Demo alerts raised by severity.",
		}, []string{"severity"}),
		publishErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "energy_sim_publish_errors_total",
			Help: "Failed publishes by sink.",
		}, []string{"sink"}),
		tick: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "energy_sim_tick",
			Help: "Current simulator tick.",
		}),
	}
	m.reg.MustRegister(
		m.frames, m.transitions, m.load, m.phaseVoltage, m.machineState,
		m.alerts, m.publishErrors, m.tick,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// ObserveFrame records one generated frame.
func (m *Metrics) ObserveFrame(f generator.Frame) {
	m.frames.Inc()
	m.tick.Set(float64(f.Tick()))
	m.load.Set(f.Load.Value)
	m.phaseVoltage.WithLabelValues("L1").Set(f.Voltage.L1)
	m.phaseVoltage.WithLabelValues("L2").Set(f.Voltage.L2)
	m.phaseVoltage.WithLabelValues("L3").Set(f.Voltage.L3)
}

// SetState marks state as the current run state.
func (m *Metrics) SetState(state generator.MachineState) {
	for _, s := range []generator.MachineState{generator.StateProduction, generator.StateStandby, generator.StateOff} {
		v := 0.0
		if s == state {
			v = 1
		}
		m.machineState.WithLabelValues(string(s)).Set(v)
	}
}

// ObserveTransition counts a transition into state.
func (m *Metrics) ObserveTransition(state generator.MachineState) {
	m.transitions.WithLabelValues(string(state)).Inc()
}

// ObserveAlert counts a raised alert.
func (m *Metrics) ObserveAlert(severity string) {
	m.alerts.WithLabelValues(severity).Inc()
}

// ObservePublishError counts a failed publish to sink.
func (m *Metrics) ObservePublishError(sink string) {
	m.publishErrors.WithLabelValues(sink).Inc()
}
