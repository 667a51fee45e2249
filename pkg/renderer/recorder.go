package renderer

// Call is a single recorded invocation made against a Recorder.
type Call struct {
	Method     string
	Channel    uint8
	Pitch      uint8
	Velocity   uint8
	Program    uint8
	Controller uint8
	Value      uint8
	Bend       int16
}

// Recorder is a Synth double for tests: it records every call instead
// of rendering audio, and fills Render's output with a fixed value so
// callers can assert on the buffer contents.
type Recorder struct {
	Calls      []Call
	FillValue  float32
	LoadPath   string
	LoadErr    error
	RenderCall int
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) LoadSoundFont(path string) (int, error) {
	r.LoadPath = path
	if r.LoadErr != nil {
		return 0, r.LoadErr
	}
	return 1, nil
}

func (r *Recorder) ProgramChange(channel, program uint8) {
	r.Calls = append(r.Calls, Call{Method: "program_change", Channel: channel, Program: program})
}

func (r *Recorder) NoteOn(channel, pitch, velocity uint8) {
	r.Calls = append(r.Calls, Call{Method: "note_on", Channel: channel, Pitch: pitch, Velocity: velocity})
}

func (r *Recorder) NoteOff(channel, pitch uint8) {
	r.Calls = append(r.Calls, Call{Method: "note_off", Channel: channel, Pitch: pitch})
}

func (r *Recorder) CC(channel, controller, value uint8) {
	r.Calls = append(r.Calls, Call{Method: "cc", Channel: channel, Controller: controller, Value: value})
}

func (r *Recorder) PitchBend(channel uint8, value int16) {
	r.Calls = append(r.Calls, Call{Method: "pitch_bend", Channel: channel, Bend: value})
}

func (r *Recorder) Render(out []float32) {
	r.RenderCall++
	for i := range out {
		out[i] = r.FillValue
	}
}
