package motion

import "errors"

// FakeSampler is a test double that returns scripted samples.
type FakeSampler struct {
	// Samples contains scripted readings. Each call to Read() consumes the
	// next sample; once exhausted, the last sample is returned repeatedly.
	Samples []Sample

	// index tracks current position in Samples
	index int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by Read()
	ReadError error
}

// NewFakeSampler creates a FakeSampler with the given samples.
func NewFakeSampler(samples []Sample) *FakeSampler {
	return &FakeSampler{Samples: samples}
}

// Read returns the next scripted sample.
func (f *FakeSampler) Read() (Sample, error) {
	if f.ReadError != nil {
		return Sample{}, f.ReadError
	}

	if len(f.Samples) == 0 {
		return Sample{}, errors.New("no samples configured")
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}

	return sample, nil
}

// Close marks the sampler as closed.
func (f *FakeSampler) Close() error {
	f.Closed = true
	return nil
}

// Reset resets the sampler to the beginning of samples.
func (f *FakeSampler) Reset() {
	f.index = 0
	f.Closed = false
}
