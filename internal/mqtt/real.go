package mqtt

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/cniweb/Hackathon2025/internal/alerts"
	"github.com/cniweb/Hackathon2025/internal/generator"
	"github.com/cniweb/Hackathon2025/internal/logic"
)

// ErrNotConnected is returned for QoS 0 samples published while offline.
// They are dropped rather than buffered.
var ErrNotConnected = errors.New("mqtt not connected")

const publishTimeout = 5 * time.Second

// Options configures a RealPublisher.
type Options struct {
	Broker     string
	ClientID   string
	BufferSize int
	Logger     *slog.Logger
	// OnConnectionChange, if set, is called on every connect and connection loss.
	OnConnectionChange func(connected bool)
}

// RealPublisher publishes to an MQTT broker. Connection is attempted in the
// background; events, alerts and system messages published while offline are
// queued and replayed on reconnect.
type RealPublisher struct {
	client paho.Client
	log    *slog.Logger
	notify func(bool)
	now    func() time.Time

	mu     sync.Mutex
	buffer *ringBuffer
	everUp bool
}

// NewRealPublisher creates a publisher and starts connecting to the broker.
// It does not block on the connection.
func NewRealPublisher(o Options) *RealPublisher {
	log := o.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "mqtt"))
	if o.ClientID == "" {
		o.ClientID = "energy-sim"
	}

	p := &RealPublisher{
		log:    log,
		notify: o.OnConnectionChange,
		now:    time.Now,
		buffer: newRingBuffer(o.BufferSize, log),
	}

	will, _ := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	})

	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetBinaryWill(TopicSystem, will, 1, true).
		SetOnConnectHandler(func(paho.Client) { p.onConnect() }).
		SetConnectionLostHandler(func(_ paho.Client, err error) { p.onConnectionLost(err) })

	p.client = paho.NewClient(opts)
	p.client.Connect()
	return p
}

func (p *RealPublisher) onConnect() {
	p.mu.Lock()
	reconnect := p.everUp
	p.everUp = true
	pending := p.buffer.drainAll()
	p.mu.Unlock()

	if reconnect {
		p.log.Info("reconnected", slog.Int("replay", len(pending)))
		payload, _ := FormatSystemPayload(SystemEvent{Timestamp: p.now(), Event: "RECONNECTED"})
		pending = append([]bufferedMsg{{topic: TopicSystem, payload: payload, qos: 1}}, pending...)
	} else {
		p.log.Info("connected", slog.Int("replay", len(pending)))
	}

	// paho callbacks must not block on tokens.
	go func() {
		for _, m := range pending {
			if err := p.send(m); err != nil {
				p.log.Warn("replay failed", slog.String("topic", m.topic), slog.Any("err", err))
			}
		}
	}()

	if p.notify != nil {
		p.notify(true)
	}
}

func (p *RealPublisher) onConnectionLost(err error) {
	p.log.Warn("connection lost", slog.Any("err", err))
	if p.notify != nil {
		p.notify(false)
	}
}

// IsConnected reports whether the client currently has an open connection.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Buffered returns the number of messages waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buffer.len()
}

func (p *RealPublisher) send(m bufferedMsg) error {
	token := p.client.Publish(m.topic, m.qos, m.retained, m.payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: timeout", m.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", m.topic, err)
	}
	return nil
}

// publishOrBuffer sends m, or queues it when offline or when sending fails.
func (p *RealPublisher) publishOrBuffer(m bufferedMsg) error {
	if !p.client.IsConnectionOpen() {
		p.mu.Lock()
		p.buffer.push(m)
		p.mu.Unlock()
		return nil
	}
	if err := p.send(m); err != nil {
		p.mu.Lock()
		p.buffer.push(m)
		p.mu.Unlock()
		return err
	}
	return nil
}

// PublishFrame sends a sample at QoS 0. Samples are not buffered.
func (p *RealPublisher) PublishFrame(f generator.Frame) error {
	if !p.client.IsConnectionOpen() {
		return ErrNotConnected
	}
	payload, err := FormatFrame(f)
	if err != nil {
		return fmt.Errorf("format frame: %w", err)
	}
	// QoS 0 tokens are not awaited.
	p.client.Publish(TopicSamples, 0, false, payload)
	return nil
}

// Publish sends a run-state event at QoS 1.
func (p *RealPublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	return p.publishOrBuffer(bufferedMsg{topic: TopicEvents, payload: payload, qos: 1})
}

// PublishAlert sends an alert at QoS 1.
func (p *RealPublisher) PublishAlert(a alerts.Alert) error {
	payload, err := FormatAlert(a)
	if err != nil {
		return fmt.Errorf("format alert: %w", err)
	}
	return p.publishOrBuffer(bufferedMsg{topic: TopicAlerts, payload: payload, qos: 1})
}

// PublishSystem sends a lifecycle event at QoS 1.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.publishOrBuffer(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
}

// Close disconnects from the broker, waiting up to one second.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000)
	return nil
}
