package mqtt

import (
	"sync"

	"github.com/cniweb/Hackathon2025/internal/alerts"
	"github.com/cniweb/Hackathon2025/internal/generator"
	"github.com/cniweb/Hackathon2025/internal/logic"
)

// FakePublisher records published messages for test assertions.
type FakePublisher struct {
	mu sync.Mutex

	Frames         []generator.Frame
	Events         []logic.Event
	Payloads       [][]byte
	Alerts         []alerts.Alert
	SystemEvents   []SystemEvent
	SystemPayloads [][]byte

	// Errors returned by the matching Publish method when set.
	PublishFrameError  error
	PublishError       error
	PublishAlertError  error
	PublishSystemError error

	Closed    bool
	Connected bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// PublishFrame records the frame.
func (f *FakePublisher) PublishFrame(frame generator.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishFrameError != nil {
		return f.PublishFrameError
	}
	f.Frames = append(f.Frames, frame)
	return nil
}

// Publish records the run-state event and its payload.
func (f *FakePublisher) Publish(event logic.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	payload, err := FormatPayload(event)
	if err != nil {
		return err
	}
	f.Events = append(f.Events, event)
	f.Payloads = append(f.Payloads, payload)
	return nil
}

// PublishAlert records the alert.
func (f *FakePublisher) PublishAlert(a alerts.Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishAlertError != nil {
		return f.PublishAlertError
	}
	f.Alerts = append(f.Alerts, a)
	return nil
}

// PublishSystem records the system event and its payload.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	f.SystemPayloads = append(f.SystemPayloads, payload)
	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// IsConnected reports the Connected field.
func (f *FakePublisher) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Connected
}

// SystemEventNames returns the Event field of each recorded system event.
func (f *FakePublisher) SystemEventNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, len(f.SystemEvents))
	for i, e := range f.SystemEvents {
		names[i] = e.Event
	}
	return names
}

// Reset clears everything recorded and configured.
func (f *FakePublisher) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Frames = nil
	f.Events = nil
	f.Payloads = nil
	f.Alerts = nil
	f.SystemEvents = nil
	f.SystemPayloads = nil
	f.PublishFrameError = nil
	f.PublishError = nil
	f.PublishAlertError = nil
	f.PublishSystemError = nil
	f.Closed = false
	f.Connected = false
}
