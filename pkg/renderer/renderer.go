// Package renderer defines the contract the Renderer Adapter drives each
// buffer: an opaque sample renderer (a SoundFont synthesizer in
// production) that owns no knowledge of the input pipeline and is
// consumed purely through this interface. See §6 ("Renderer
// contract").
package renderer

// Synth is the renderer contract. Implementations must be safe to call
// from the audio context without blocking or allocating; the adapter
// that drives one is the only caller.
type Synth interface {
	// LoadSoundFont loads a SoundFont bank and returns an opaque handle.
	LoadSoundFont(path string) (int, error)

	// ProgramChange selects the program for a channel.
	ProgramChange(channel, program uint8)

	// NoteOn starts a note. velocity is always >= 1.
	NoteOn(channel, pitch, velocity uint8)

	// NoteOff stops a note.
	NoteOff(channel, pitch uint8)

	// CC applies a control change. value is in [0,127].
	CC(channel, controller, value uint8)

	// PitchBend applies a pitch bend. value is in [-8192,8191].
	PitchBend(channel uint8, value int16)

	// Render fills out with interleaved stereo float32 samples,
	// len(out)/2 frames. It must not block or allocate.
	Render(out []float32)
}
