package gpio

// FakeIndicator is a test double that records every level written.
type FakeIndicator struct {
	// Writes holds each value passed to Set, in order.
	Writes []bool

	// SetError, if set, is returned by Set and nothing is recorded.
	SetError error

	Closed bool
}

// NewFakeIndicator creates a FakeIndicator.
func NewFakeIndicator() *FakeIndicator {
	return &FakeIndicator{}
}

// Set records the level.
func (f *FakeIndicator) Set(on bool) error {
	if f.SetError != nil {
		return f.SetError
	}
	f.Writes = append(f.Writes, on)
	return nil
}

// Close marks the indicator closed and drives it low.
func (f *FakeIndicator) Close() error {
	f.Closed = true
	f.Writes = append(f.Writes, false)
	return nil
}

// Level returns the last written level.
func (f *FakeIndicator) Level() bool {
	if len(f.Writes) == 0 {
		return false
	}
	return f.Writes[len(f.Writes)-1]
}
