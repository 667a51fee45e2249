// Package layer implements the Layer Mixer: when enabled, every
// primary-channel note event gets a duplicate on a secondary channel
// with an independent program. See §4.G. The duplicate's own polyphony
// accounting (it consumes its own Voice Allocator slot, independent of
// the primary channel's) lives in the fan-in Engine, which owns a
// second Allocator instance for this channel; Layer itself only tracks
// enablement and the secondary channel/program.
package layer

// Layer holds the secondary channel/program configuration.
type Layer struct {
	enabled bool
	channel uint8
	program uint8
}

// New creates a disabled Layer targeting the given secondary channel.
func New(channel uint8) *Layer {
	return &Layer{channel: channel}
}

// Enabled reports whether duplication is active.
func (l *Layer) Enabled() bool { return l.enabled }

// Channel returns the secondary channel duplicates are sent on.
func (l *Layer) Channel() uint8 { return l.channel }

// Program returns the secondary channel's current program.
func (l *Layer) Program() uint8 { return l.program }

// SetProgram changes the secondary channel's program. It does not by
// itself emit a ProgramChange; the caller applies it to the renderer
// the same way it does for the primary channel.
func (l *Layer) SetProgram(program uint8) { l.program = program }

// Enable turns duplication on. It emits nothing by itself — only notes
// struck while enabled get doubled.
func (l *Layer) Enable() { l.enabled = true }

// Disable turns duplication off. Per §4.G ("toggling off releases all
// layer-origin notes"), the caller is responsible for releasing the
// secondary Allocator's voices (via its own Panic) once this returns.
func (l *Layer) Disable() { l.enabled = false }

// Toggle flips enabled and reports the new state.
func (l *Layer) Toggle() bool {
	if l.enabled {
		l.Disable()
		return false
	}
	l.Enable()
	return true
}
