// Package kafka streams simulator frames to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/cniweb/Hackathon2025/internal/generator"
	"github.com/cniweb/Hackathon2025/internal/hierarchy"
)

// DefaultTopic is the topic frames are written to when none is configured.
const DefaultTopic = "energy.frames"

// ErrNoBrokers is returned when a writer is requested without brokers.
var ErrNoBrokers = errors.New("kafka: no brokers configured")

// FrameMessage is the JSON value of one Kafka record.
type FrameMessage struct {
	Timestamp  string  `json:"timestamp"`
	Tick       int64   `json:"tick"`
	L1         float64 `json:"l1"`
	L2         float64 `json:"l2"`
	L3         float64 `json:"l3"`
	Load       float64 `json:"load"`
	State      string  `json:"state"`
	LocationID string  `json:"locationId,omitempty"`
	HallID     string  `json:"hallId,omitempty"`
	MachineID  string  `json:"machineId,omitempty"`
	DeviceID   string  `json:"deviceId,omitempty"`
}

// Key returns the partition key for a selection: the machine id, falling
// back to hall and location for "All" selections.
func Key(sel hierarchy.Selection) string {
	switch {
	case sel.MachineID != "":
		return sel.MachineID
	case sel.HallID != "":
		return sel.HallID
	default:
		return sel.LocationID
	}
}

// Encode builds the record for a frame observed under the given selection.
func Encode(f generator.Frame, sel hierarchy.Selection) (kafka.Message, error) {
	value, err := json.Marshal(FrameMessage{
		Timestamp:  f.Timestamp.UTC().Format(time.RFC3339Nano),
		Tick:       f.Tick(),
		L1:         f.Voltage.L1,
		L2:         f.Voltage.L2,
		L3:         f.Voltage.L3,
		Load:       f.Load.Value,
		State:      string(f.Load.State),
		LocationID: sel.LocationID,
		HallID:     sel.HallID,
		MachineID:  sel.MachineID,
		DeviceID:   sel.DeviceID,
	})
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode frame %d: %w", f.Tick(), err)
	}
	return kafka.Message{Key: []byte(Key(sel)), Value: value, Time: f.Timestamp}, nil
}

// FrameSink receives frames from the tick loop.
type FrameSink interface {
	WriteFrame(ctx context.Context, f generator.Frame, sel hierarchy.Selection) error
	Close() error
}

// messageWriter is the subset of *kafka.Writer used here.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Options configures a FrameWriter.
type Options struct {
	Brokers []string
	Topic   string
	Logger  *slog.Logger
	// OnError is called for every failed asynchronous delivery.
	OnError func(error)
}

// FrameWriter writes frames to Kafka, hashing records by machine id.
type FrameWriter struct {
	w     messageWriter
	topic string
	log   *slog.Logger
}

// NewFrameWriter creates an asynchronous writer. The tick loop never waits
// on the broker; delivery failures are reported through Options.OnError.
func NewFrameWriter(o Options) (*FrameWriter, error) {
	if len(o.Brokers) == 0 {
		return nil, ErrNoBrokers
	}
	if o.Topic == "" {
		o.Topic = DefaultTopic
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	log := o.Logger.With(slog.String("component", "kafka"))

	w := &kafka.Writer{
		Addr:         kafka.TCP(o.Brokers...),
		Topic:        o.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		BatchTimeout: 50 * time.Millisecond,
		Completion: func(msgs []kafka.Message, err error) {
			if err == nil {
				return
			}
			log.Warn("frame delivery failed", slog.Int("messages", len(msgs)), slog.Any("error", err))
			if o.OnError != nil {
				o.OnError(err)
			}
		},
	}
	log.Info("kafka writer created", slog.Any("brokers", o.Brokers), slog.String("topic", o.Topic))
	return newFrameWriter(w, o.Topic, log), nil
}

func newFrameWriter(w messageWriter, topic string, log *slog.Logger) *FrameWriter {
	return &FrameWriter{w: w, topic: topic, log: log}
}

// Topic returns the destination topic.
func (fw *FrameWriter) Topic() string {
	return fw.topic
}

// WriteFrame encodes and enqueues one frame.
func (fw *FrameWriter) WriteFrame(ctx context.Context, f generator.Frame, sel hierarchy.Selection) error {
	msg, err := Encode(f, sel)
	if err != nil {
		return err
	}
	if err := fw.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write frame %d to %s: %w", f.Tick(), fw.topic, err)
	}
	return nil
}

// Close flushes pending records and closes the writer.
func (fw *FrameWriter) Close() error {
	err := fw.w.Close()
	fw.log.Info("kafka writer closed", slog.String("topic", fw.topic))
	return err
}
