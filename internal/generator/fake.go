package generator

// FakeRand is a test double that returns scripted values.
type FakeRand struct {
	// Values are returned in order and then repeated from the start.
	Values []float64

	index int
}

// NewFakeRand creates a FakeRand with the given values.
func NewFakeRand(values ...float64) *FakeRand {
	return &FakeRand{Values: values}
}

// Float64 returns the next scripted value, or 0 if none are configured.
func (f *FakeRand) Float64() float64 {
	if len(f.Values) == 0 {
		return 0
	}
	v := f.Values[f.index%len(f.Values)]
	f.index++
	return v
}

// Calls reports how many values have been drawn.
func (f *FakeRand) Calls() int {
	return f.index
}
