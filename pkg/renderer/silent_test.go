package renderer

import "testing"

func TestSilentRenderFillsZero(t *testing.T) {
	var s Silent
	out := make([]float32, 8)
	for i := range out {
		out[i] = 1
	}
	s.Render(out)
	for i, v := range out {
		if v != 0 {
			t.Errorf("out[%d] = %f, want 0", i, v)
		}
	}
}

func TestSilentAcceptsEveryCallWithoutPanic(t *testing.T) {
	var s Silent
	if _, err := s.LoadSoundFont("whatever.sf2"); err != nil {
		t.Errorf("LoadSoundFont() error = %v", err)
	}
	s.ProgramChange(0, 1)
	s.NoteOn(0, 60, 100)
	s.NoteOff(0, 60)
	s.CC(0, 64, 127)
	s.PitchBend(0, 100)
}
