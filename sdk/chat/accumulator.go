package chat

import "strings"

// Accumulator reassembles fragments into the growing answer text for one
// in-flight send. It is a single-use scratch buffer: one accumulator per
// send, reset or discarded at completion or failure. Content only grows
// while active and is frozen once Complete is called.
type Accumulator struct {
	content  strings.Builder
	metadata *StreamMetadata
	active   bool
}

// Start clears the accumulator and marks it active.
func (a *Accumulator) Start() {
	a.content.Reset()
	a.metadata = nil
	a.active = true
}

// AppendFragment appends text to the content. Ignored when inactive: a
// frozen accumulator must not change until the next Start.
func (a *Accumulator) AppendFragment(text string) {
	if !a.active {
		return
	}
	a.content.WriteString(text)
}

// Complete freezes the accumulator. A nil metadata leaves any previous
// value unchanged (completion without metadata is a legal terminal state).
func (a *Accumulator) Complete(meta *StreamMetadata) {
	a.active = false
	if meta != nil {
		a.metadata = meta
	}
}

// Reset fully clears the accumulator. Legal in any state, and calling it
// twice is the same as calling it once.
func (a *Accumulator) Reset() {
	a.content.Reset()
	a.metadata = nil
	a.active = false
}

// Content returns the text accumulated so far.
func (a *Accumulator) Content() string {
	return a.content.String()
}

// Metadata returns the completion metadata, or nil if none was delivered.
func (a *Accumulator) Metadata() *StreamMetadata {
	return a.metadata
}

// Active reports whether a stream is currently feeding this accumulator.
func (a *Accumulator) Active() bool {
	return a.active
}
