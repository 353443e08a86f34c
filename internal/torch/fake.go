package torch

// FakeController records torch transitions for test assertions.
type FakeController struct {
	// On is the current torch state.
	On bool

	// Transitions records every value passed to Set, in order.
	Transitions []bool

	// SetError, if set, will be returned by Set.
	SetError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeController creates a FakeController with the torch off.
func NewFakeController() *FakeController {
	return &FakeController{}
}

// Set records and applies the state.
func (f *FakeController) Set(on bool) error {
	if f.SetError != nil {
		return f.SetError
	}
	f.On = on
	f.Transitions = append(f.Transitions, on)
	return nil
}

// Close marks the controller as closed and forces the torch off.
func (f *FakeController) Close() error {
	f.On = false
	f.Closed = true
	return nil
}

// Reset clears recorded transitions.
func (f *FakeController) Reset() {
	f.On = false
	f.Transitions = nil
	f.SetError = nil
	f.Closed = false
}
