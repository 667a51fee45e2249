package midi

import (
	"testing"

	"github.com/fw16synth/fw16synth/pkg/event"
)

func TestNoteOnEvent(t *testing.T) {
	event := NoteOnEvent{
		BaseEvent: BaseEvent{
			EventChannel: 0,
			Offset:       100,
		},
		NoteNumber: 60, // Middle C
		Velocity:   64,
	}

	if event.Type() != EventTypeNoteOn {
		t.Errorf("Expected type %v, got %v", EventTypeNoteOn, event.Type())
	}

	if event.Channel() != 0 {
		t.Errorf("Expected channel 0, got %d", event.Channel())
	}

	if event.SampleOffset() != 100 {
		t.Errorf("Expected offset 100, got %d", event.SampleOffset())
	}

	expected := "NoteOn{ch:0, note:60, vel:64, offset:100}"
	if event.String() != expected {
		t.Errorf("Expected string %s, got %s", expected, event.String())
	}
}

func TestNoteOffEvent(t *testing.T) {
	event := NoteOffEvent{
		BaseEvent: BaseEvent{
			EventChannel: 1,
			Offset:       200,
		},
		NoteNumber: 72, // C5
		Velocity:   0,
	}

	if event.Type() != EventTypeNoteOff {
		t.Errorf("Expected type %v, got %v", EventTypeNoteOff, event.Type())
	}

	if event.Channel() != 1 {
		t.Errorf("Expected channel 1, got %d", event.Channel())
	}
}

func TestControlChangeEvent(t *testing.T) {
	event := ControlChangeEvent{
		BaseEvent: BaseEvent{
			EventChannel: 0,
			Offset:       50,
		},
		Controller: CCModWheel,
		Value:      100,
	}

	if event.Type() != EventTypeControlChange {
		t.Errorf("Expected type %v, got %v", EventTypeControlChange, event.Type())
	}

	expected := "CC{ch:0, ctrl:1, val:100, offset:50}"
	if event.String() != expected {
		t.Errorf("Expected string %s, got %s", expected, event.String())
	}
}

func TestPitchBendEvent(t *testing.T) {
	tests := []struct {
		value      int16
		normalized float64
	}{
		{0, 0.0},
		{8191, 0.999878}, // Close to 1.0
		{-8192, -1.0},
		{4096, 0.5},
		{-4096, -0.5},
	}

	for _, tt := range tests {
		event := PitchBendEvent{
			BaseEvent: BaseEvent{
				EventChannel: 0,
				Offset:       0,
			},
			Value: tt.value,
		}

		normalized := event.NormalizedValue()
		if diff := normalized - tt.normalized; diff > 0.01 || diff < -0.01 {
			t.Errorf("For value %d, expected normalized %f, got %f", tt.value, tt.normalized, normalized)
		}
	}
}

func TestClampPitch(t *testing.T) {
	tests := []struct {
		in   int
		want uint8
	}{
		{-5, 0},
		{0, 0},
		{60, 60},
		{127, 127},
		{200, 127},
	}
	for _, tt := range tests {
		if got := ClampPitch(tt.in); got != tt.want {
			t.Errorf("ClampPitch(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestClampVelocity(t *testing.T) {
	tests := []struct {
		in   int
		want uint8
	}{
		{-5, 1},
		{0, 1},
		{1, 1},
		{80, 80},
		{127, 127},
		{200, 127},
	}
	for _, tt := range tests {
		if got := ClampVelocity(tt.in); got != tt.want {
			t.Errorf("ClampVelocity(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestNoteNumberToName(t *testing.T) {
	tests := []struct {
		note uint8
		name string
	}{
		{60, "C4"},  // Middle C
		{69, "A4"},  // A440
		{0, "C-1"},  // Lowest MIDI note
		{127, "G9"}, // Highest MIDI note
		{61, "C#4"}, // C# above middle C
		{70, "A#4"}, // A# above A4
	}

	for _, tt := range tests {
		name := NoteNumberToName(tt.note)
		if name != tt.name {
			t.Errorf("For note %d, expected name %s, got %s", tt.note, tt.name, name)
		}
	}
}

func TestDecodeNoteOn(t *testing.T) {
	e, ok := Decode(0x91, 60, 100, 7)
	if !ok {
		t.Fatal("Decode(NoteOn) returned ok=false")
	}
	on, isOn := e.(NoteOnEvent)
	if !isOn || on.EventChannel != 1 || on.NoteNumber != 60 || on.Velocity != 100 || on.Offset != 7 {
		t.Errorf("Decode(0x91,60,100,7) = %+v", e)
	}
}

func TestDecodeNoteOnZeroVelocityIsNoteOff(t *testing.T) {
	e, ok := Decode(0x90, 60, 0, 0)
	if !ok {
		t.Fatal("Decode(NoteOn vel=0) returned ok=false")
	}
	off, isOff := e.(NoteOffEvent)
	if !isOff || off.NoteNumber != 60 {
		t.Errorf("Decode(0x90,60,0,0) = %+v, want NoteOffEvent", e)
	}
}

func TestDecodeNoteOff(t *testing.T) {
	e, ok := Decode(0x82, 72, 64, 0)
	if !ok {
		t.Fatal("Decode(NoteOff) returned ok=false")
	}
	off, isOff := e.(NoteOffEvent)
	if !isOff || off.EventChannel != 2 || off.NoteNumber != 72 {
		t.Errorf("Decode(0x82,72,64,0) = %+v", e)
	}
}

func TestDecodeControlChange(t *testing.T) {
	e, ok := Decode(0xB0, 64, 127, 0)
	if !ok {
		t.Fatal("Decode(CC) returned ok=false")
	}
	cc, isCC := e.(ControlChangeEvent)
	if !isCC || cc.Controller != 64 || cc.Value != 127 {
		t.Errorf("Decode(0xB0,64,127,0) = %+v", e)
	}
}

func TestDecodeProgramChange(t *testing.T) {
	e, ok := Decode(0xC3, 42, 0, 0)
	if !ok {
		t.Fatal("Decode(ProgramChange) returned ok=false")
	}
	pc, isPC := e.(ProgramChangeEvent)
	if !isPC || pc.EventChannel != 3 || pc.Program != 42 {
		t.Errorf("Decode(0xC3,42,0,0) = %+v", e)
	}
}

func TestDecodePitchBendRoundTrip(t *testing.T) {
	tests := []int16{-8192, -1, 0, 1, 8191}
	for _, want := range tests {
		raw := want + 8192
		d1 := byte(raw & 0x7f)
		d2 := byte((raw >> 7) & 0x7f)
		e, ok := Decode(0xE0, d1, d2, 0)
		if !ok {
			t.Fatalf("Decode(PitchBend %d) returned ok=false", want)
		}
		pb, isPB := e.(PitchBendEvent)
		if !isPB || pb.Value != want {
			t.Errorf("Decode(PitchBend) round trip for %d = %+v", want, e)
		}
	}
}

func TestDecodeChannelAndPolyPressure(t *testing.T) {
	if e, ok := Decode(0xD0, 80, 0, 0); !ok {
		t.Errorf("Decode(ChannelPressure) returned ok=false")
	} else if _, isCP := e.(ChannelPressureEvent); !isCP {
		t.Errorf("Decode(0xD0,...) = %+v, want ChannelPressureEvent", e)
	}

	if e, ok := Decode(0xA0, 60, 80, 0); !ok {
		t.Errorf("Decode(PolyPressure) returned ok=false")
	} else if _, isPP := e.(PolyPressureEvent); !isPP {
		t.Errorf("Decode(0xA0,...) = %+v, want PolyPressureEvent", e)
	}
}

func TestDecodeSystemRealtime(t *testing.T) {
	tests := []struct {
		status byte
		want   EventType
	}{
		{0xF8, EventTypeClock},
		{0xFA, EventTypeStart},
		{0xFB, EventTypeContinue},
		{0xFC, EventTypeStop},
	}
	for _, tt := range tests {
		e, ok := Decode(tt.status, 0, 0, 0)
		if !ok || e.Type() != tt.want {
			t.Errorf("Decode(0x%X,...) = %+v, ok=%v, want type %v", tt.status, e, ok, tt.want)
		}
	}
}

func TestDecodeUnknownStatusReturnsFalse(t *testing.T) {
	if _, ok := Decode(0xF1, 0, 0, 0); ok {
		t.Error("Decode(undefined system-common status) returned ok=true")
	}
}

func TestToNoteEventTranslatesNoteOnOffCCBendProgram(t *testing.T) {
	on, ok := ToNoteEvent(NoteOnEvent{BaseEvent: BaseEvent{EventChannel: 0}, NoteNumber: 60, Velocity: 100}, event.OriginMIDIIn)
	if !ok || on.Kind != event.KindOn || on.Pitch != 60 || on.Velocity != 100 {
		t.Errorf("ToNoteEvent(NoteOn) = %+v, ok=%v", on, ok)
	}

	off, ok := ToNoteEvent(NoteOffEvent{BaseEvent: BaseEvent{EventChannel: 0}, NoteNumber: 60}, event.OriginMIDIIn)
	if !ok || off.Kind != event.KindOff || off.Pitch != 60 {
		t.Errorf("ToNoteEvent(NoteOff) = %+v, ok=%v", off, ok)
	}

	cc, ok := ToNoteEvent(ControlChangeEvent{BaseEvent: BaseEvent{EventChannel: 0}, Controller: 64, Value: 127}, event.OriginMIDIIn)
	if !ok || cc.Kind != event.KindCC || cc.Controller != 64 || cc.Value != 127 {
		t.Errorf("ToNoteEvent(CC) = %+v, ok=%v", cc, ok)
	}

	bend, ok := ToNoteEvent(PitchBendEvent{BaseEvent: BaseEvent{EventChannel: 0}, Value: 1000}, event.OriginMIDIIn)
	if !ok || bend.Kind != event.KindBend || bend.Bend != 1000 {
		t.Errorf("ToNoteEvent(Bend) = %+v, ok=%v", bend, ok)
	}

	prog, ok := ToNoteEvent(ProgramChangeEvent{BaseEvent: BaseEvent{EventChannel: 0}, Program: 42}, event.OriginMIDIIn)
	if !ok || prog.Kind != event.KindProgram || prog.Program != 42 {
		t.Errorf("ToNoteEvent(Program) = %+v, ok=%v", prog, ok)
	}
}

func TestToNoteEventDropsPressureAndSystemRealtime(t *testing.T) {
	if _, ok := ToNoteEvent(ChannelPressureEvent{}, event.OriginMIDIIn); ok {
		t.Error("ToNoteEvent(ChannelPressure) returned ok=true")
	}
	if _, ok := ToNoteEvent(PolyPressureEvent{}, event.OriginMIDIIn); ok {
		t.Error("ToNoteEvent(PolyPressure) returned ok=true")
	}
	if _, ok := ToNoteEvent(ClockEvent{}, event.OriginMIDIIn); ok {
		t.Error("ToNoteEvent(Clock) returned ok=true")
	}
	if _, ok := ToNoteEvent(StartEvent{}, event.OriginMIDIIn); ok {
		t.Error("ToNoteEvent(Start) returned ok=true")
	}
}

func TestEventInterface(t *testing.T) {
	events := []Event{
		NoteOnEvent{BaseEvent: BaseEvent{EventChannel: 0, Offset: 0}, NoteNumber: 60, Velocity: 100},
		NoteOffEvent{BaseEvent: BaseEvent{EventChannel: 0, Offset: 100}, NoteNumber: 60, Velocity: 0},
		ControlChangeEvent{BaseEvent: BaseEvent{EventChannel: 0, Offset: 200}, Controller: CCSustain, Value: 127},
		PitchBendEvent{BaseEvent: BaseEvent{EventChannel: 0, Offset: 300}, Value: 0},
	}

	for _, event := range events {
		// Ensure all events implement the interface
		_ = event.Type()
		_ = event.Channel()
		_ = event.SampleOffset()
		_ = event.String()
	}
}