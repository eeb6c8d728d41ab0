package kafka

import (
	"context"
	"sync"

	"github.com/cniweb/Hackathon2025/internal/generator"
	"github.com/cniweb/Hackathon2025/internal/hierarchy"
)

// FakeSink records frames for testing.
type FakeSink struct {
	mu         sync.Mutex
	Frames     []generator.Frame
	Selections []hierarchy.Selection
	WriteError error
	Closed     bool
}

// NewFakeSink creates a new FakeSink.
func NewFakeSink() *FakeSink {
	return &FakeSink{}
}

// WriteFrame records the frame, or returns WriteError if set.
func (f *FakeSink) WriteFrame(_ context.Context, fr generator.Frame, sel hierarchy.Selection) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.WriteError != nil {
		return f.WriteError
	}
	f.Frames = append(f.Frames, fr)
	f.Selections = append(f.Selections, sel)
	return nil
}

// Count returns the number of recorded frames.
func (f *FakeSink) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Frames)
}

// Close marks the sink as closed.
func (f *FakeSink) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}
