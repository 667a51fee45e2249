package midiin

import (
	"testing"

	"gitlab.com/gomidi/midi/v2"

	"github.com/fw16synth/fw16synth/pkg/event"
)

func TestHandleNoteOnForwardsOnEvent(t *testing.T) {
	var got []event.NoteEvent
	s := &Source{submit: func(ev event.NoteEvent) { got = append(got, ev) }}

	s.handle(midi.NoteOn(1, 60, 100), 0)

	if len(got) != 1 || got[0].Kind != event.KindOn || got[0].Pitch != 60 || got[0].Velocity != 100 || got[0].Origin != event.OriginMIDIIn {
		t.Errorf("handle(NoteOn) forwarded = %+v", got)
	}
}

func TestHandleNoteOnZeroVelocityIsTreatedAsNoteOff(t *testing.T) {
	var got []event.NoteEvent
	s := &Source{submit: func(ev event.NoteEvent) { got = append(got, ev) }}

	s.handle(midi.NoteOn(1, 60, 0), 0)

	if len(got) != 1 || got[0].Kind != event.KindOff || got[0].Pitch != 60 {
		t.Errorf("handle(NoteOn vel=0) = %+v, want an Off (the MIDI running-status convention)", got)
	}
}

func TestHandleNoteOffForwardsOffEvent(t *testing.T) {
	var got []event.NoteEvent
	s := &Source{submit: func(ev event.NoteEvent) { got = append(got, ev) }}

	s.handle(midi.NoteOff(1, 60), 0)

	if len(got) != 1 || got[0].Kind != event.KindOff || got[0].Pitch != 60 {
		t.Errorf("handle(NoteOff) forwarded = %+v", got)
	}
}

func TestHandleControlChangeForwardsCCEvent(t *testing.T) {
	var got []event.NoteEvent
	s := &Source{submit: func(ev event.NoteEvent) { got = append(got, ev) }}

	s.handle(midi.ControlChange(1, 64, 127), 0)

	if len(got) != 1 || got[0].Kind != event.KindCC || got[0].Controller != 64 || got[0].Value != 127 {
		t.Errorf("handle(CC) forwarded = %+v", got)
	}
}
