package gpio

// FakeWriter is a test double that records written levels.
type FakeWriter struct {
	// Levels contains every level passed to a successful Write, in order.
	Levels []bool

	// Closed tracks if Close was called
	Closed bool

	// WriteError, if set, will be returned by Write()
	WriteError error
}

// NewFakeWriter creates an empty FakeWriter.
func NewFakeWriter() *FakeWriter {
	return &FakeWriter{}
}

// Write records the level.
func (f *FakeWriter) Write(level bool) error {
	if f.WriteError != nil {
		return f.WriteError
	}
	f.Levels = append(f.Levels, level)
	return nil
}

// Close marks the writer as closed.
func (f *FakeWriter) Close() error {
	f.Closed = true
	return nil
}

// Last returns the most recently written level and whether any write happened.
func (f *FakeWriter) Last() (bool, bool) {
	if len(f.Levels) == 0 {
		return false, false
	}
	return f.Levels[len(f.Levels)-1], true
}

// Reset clears recorded levels.
func (f *FakeWriter) Reset() {
	f.Levels = nil
	f.Closed = false
	f.WriteError = nil
}
