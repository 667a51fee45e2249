package renderer

// Silent is a Synth that accepts every call and renders digital
// silence. It backs the "-driver null" CLI option and the fallback
// §7 names for renderer failure: "after a second failure, continue in
// silent mode (inputs still produce events, rendering is a no-op)".
type Silent struct{}

func (Silent) LoadSoundFont(string) (int, error) { return 0, nil }
func (Silent) ProgramChange(uint8, uint8)         {}
func (Silent) NoteOn(uint8, uint8, uint8)         {}
func (Silent) NoteOff(uint8, uint8)               {}
func (Silent) CC(uint8, uint8, uint8)             {}
func (Silent) PitchBend(uint8, int16)             {}

func (Silent) Render(out []float32) {
	for i := range out {
		out[i] = 0
	}
}
