// Package midi is the wire-level MIDI vocabulary shared by every path
// that receives raw MIDI bytes: pkg/engine's handler for KindMidi
// input events and pkg/midiin's external port listener both decode
// through Decode before translating into a pkg/event.NoteEvent. See
// §3 ("Midi{status,d1,d2,t}") and §6 ("optional MIDI input").
package midi

import (
	"fmt"

	"github.com/fw16synth/fw16synth/pkg/event"
)

type EventType uint8

const (
	EventTypeNoteOff EventType = iota
	EventTypeNoteOn
	EventTypePolyPressure
	EventTypeControlChange
	EventTypeProgramChange
	EventTypeChannelPressure
	EventTypePitchBend
	EventTypeSystemExclusive
	EventTypeClock
	EventTypeStart
	EventTypeStop
	EventTypeContinue
	EventTypeReset
	EventTypeActiveSensing
)

type Event interface {
	Type() EventType
	Channel() uint8
	SampleOffset() int32
	String() string
}

type BaseEvent struct {
	EventChannel uint8
	Offset       int32
}

func (e BaseEvent) Channel() uint8 {
	return e.EventChannel
}

func (e BaseEvent) SampleOffset() int32 {
	return e.Offset
}

type NoteOnEvent struct {
	BaseEvent
	NoteNumber uint8
	Velocity   uint8
}

func (e NoteOnEvent) Type() EventType {
	return EventTypeNoteOn
}

func (e NoteOnEvent) String() string {
	return fmt.Sprintf("NoteOn{ch:%d, note:%d, vel:%d, offset:%d}", 
		e.EventChannel, e.NoteNumber, e.Velocity, e.Offset)
}

type NoteOffEvent struct {
	BaseEvent
	NoteNumber uint8
	Velocity   uint8
}

func (e NoteOffEvent) Type() EventType {
	return EventTypeNoteOff
}

func (e NoteOffEvent) String() string {
	return fmt.Sprintf("NoteOff{ch:%d, note:%d, vel:%d, offset:%d}", 
		e.EventChannel, e.NoteNumber, e.Velocity, e.Offset)
}

type ControlChangeEvent struct {
	BaseEvent
	Controller uint8
	Value      uint8
}

func (e ControlChangeEvent) Type() EventType {
	return EventTypeControlChange
}

func (e ControlChangeEvent) String() string {
	return fmt.Sprintf("CC{ch:%d, ctrl:%d, val:%d, offset:%d}", 
		e.EventChannel, e.Controller, e.Value, e.Offset)
}

const (
	CCModWheel       uint8 = 1
	CCBreath         uint8 = 2
	CCFoot           uint8 = 4
	CCPortamentoTime uint8 = 5
	CCVolume         uint8 = 7
	CCBalance        uint8 = 8
	CCPan            uint8 = 10
	CCExpression     uint8 = 11
	CCSustain        uint8 = 64
	CCPortamento     uint8 = 65
	CCSostenuto      uint8 = 66
	CCSoft           uint8 = 67
	CCLegato         uint8 = 68
	CCHold2          uint8 = 69
	CCAllSoundOff    uint8 = 120
	CCResetAll       uint8 = 121
	CCLocalControl   uint8 = 122
	CCAllNotesOff    uint8 = 123
)

type PitchBendEvent struct {
	BaseEvent
	Value int16 // -8192 to 8191, 0 is center
}

func (e PitchBendEvent) Type() EventType {
	return EventTypePitchBend
}

func (e PitchBendEvent) String() string {
	return fmt.Sprintf("PitchBend{ch:%d, val:%d, offset:%d}", 
		e.EventChannel, e.Value, e.Offset)
}

func (e PitchBendEvent) NormalizedValue() float64 {
	return float64(e.Value) / 8192.0
}

type PolyPressureEvent struct {
	BaseEvent
	NoteNumber uint8
	Pressure   uint8
}

func (e PolyPressureEvent) Type() EventType {
	return EventTypePolyPressure
}

func (e PolyPressureEvent) String() string {
	return fmt.Sprintf("PolyPressure{ch:%d, note:%d, pressure:%d, offset:%d}", 
		e.EventChannel, e.NoteNumber, e.Pressure, e.Offset)
}

type ChannelPressureEvent struct {
	BaseEvent
	Pressure uint8
}

func (e ChannelPressureEvent) Type() EventType {
	return EventTypeChannelPressure
}

func (e ChannelPressureEvent) String() string {
	return fmt.Sprintf("ChannelPressure{ch:%d, pressure:%d, offset:%d}", 
		e.EventChannel, e.Pressure, e.Offset)
}

type ProgramChangeEvent struct {
	BaseEvent
	Program uint8
}

func (e ProgramChangeEvent) Type() EventType {
	return EventTypeProgramChange
}

func (e ProgramChangeEvent) String() string {
	return fmt.Sprintf("ProgramChange{ch:%d, prog:%d, offset:%d}", 
		e.EventChannel, e.Program, e.Offset)
}

type ClockEvent struct {
	BaseEvent
}

func (e ClockEvent) Type() EventType {
	return EventTypeClock
}

func (e ClockEvent) String() string {
	return fmt.Sprintf("Clock{offset:%d}", e.Offset)
}

type StartEvent struct {
	BaseEvent
}

func (e StartEvent) Type() EventType {
	return EventTypeStart
}

func (e StartEvent) String() string {
	return fmt.Sprintf("Start{offset:%d}", e.Offset)
}

type StopEvent struct {
	BaseEvent
}

func (e StopEvent) Type() EventType {
	return EventTypeStop
}

func (e StopEvent) String() string {
	return fmt.Sprintf("Stop{offset:%d}", e.Offset)
}

type ContinueEvent struct {
	BaseEvent
}

func (e ContinueEvent) Type() EventType {
	return EventTypeContinue
}

func (e ContinueEvent) String() string {
	return fmt.Sprintf("Continue{offset:%d}", e.Offset)
}

// ClampPitch clamps an arbitrary integer pitch into the valid MIDI range.
func ClampPitch(p int) uint8 {
	if p < 0 {
		return 0
	}
	if p > 127 {
		return 127
	}
	return uint8(p)
}

// ClampVelocity clamps a velocity into [1,127]. The renderer contract this
// package serves never accepts 0 — a note-on with velocity 0 is ambiguous
// with a note-off in the convention the renderer consumes.
func ClampVelocity(v int) uint8 {
	if v < 1 {
		return 1
	}
	if v > 127 {
		return 127
	}
	return uint8(v)
}

func NoteNumberToName(note uint8) string {
	noteNames := []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}
	octave := int(note / 12) - 1
	noteName := noteNames[note % 12]
	return fmt.Sprintf("%s%d", noteName, octave)
}

// Decode parses a raw MIDI status/data-byte triple into a typed Event.
// status's low nibble is the channel; offset is the event's position
// within whatever window the caller is staging events for — callers
// with no sample-accurate notion (pkg/engine, pkg/midiin)
// pass 0. System realtime bytes (clock/start/stop/continue, which
// carry no channel or data bytes) are decoded from status alone.
func Decode(status, d1, d2 byte, offset int32) (Event, bool) {
	base := BaseEvent{EventChannel: status & 0x0F, Offset: offset}
	switch status & 0xF0 {
	case 0x80:
		return NoteOffEvent{BaseEvent: base, NoteNumber: d1, Velocity: d2}, true
	case 0x90:
		if d2 == 0 {
			// A note-on with velocity 0 is a note-off in the MIDI
			// convention the renderer contract (§6) consumes.
			return NoteOffEvent{BaseEvent: base, NoteNumber: d1, Velocity: 0}, true
		}
		return NoteOnEvent{BaseEvent: base, NoteNumber: d1, Velocity: d2}, true
	case 0xA0:
		return PolyPressureEvent{BaseEvent: base, NoteNumber: d1, Pressure: d2}, true
	case 0xB0:
		return ControlChangeEvent{BaseEvent: base, Controller: d1, Value: d2}, true
	case 0xC0:
		return ProgramChangeEvent{BaseEvent: base, Program: d1}, true
	case 0xD0:
		return ChannelPressureEvent{BaseEvent: base, Pressure: d1}, true
	case 0xE0:
		raw := int16(d1&0x7f) | int16(d2&0x7f)<<7
		return PitchBendEvent{BaseEvent: base, Value: raw - 8192}, true
	}
	switch status {
	case 0xF8:
		return ClockEvent{BaseEvent: base}, true
	case 0xFA:
		return StartEvent{BaseEvent: base}, true
	case 0xFB:
		return ContinueEvent{BaseEvent: base}, true
	case 0xFC:
		return StopEvent{BaseEvent: base}, true
	}
	return nil, false
}

// ToNoteEvent translates a decoded wire Event into the bus payload
// (§3's NoteEvent), tagging it with origin. System realtime
// events (Clock/Start/Stop/Continue) and channel/poly pressure have no
// NoteEvent equivalent in this system and return ok=false; callers
// drop them, matching pkg/engine's prior inline decode which only
// forwarded note-on, note-off and control-change.
func ToNoteEvent(e Event, origin event.Origin) (ev event.NoteEvent, ok bool) {
	switch m := e.(type) {
	case NoteOnEvent:
		return event.On(m.NoteNumber, ClampVelocity(int(m.Velocity)), m.EventChannel, origin), true
	case NoteOffEvent:
		return event.Off(m.NoteNumber, m.EventChannel, origin), true
	case ControlChangeEvent:
		return event.CC(m.EventChannel, m.Controller, m.Value, origin), true
	case PitchBendEvent:
		return event.Bend(m.EventChannel, m.Value, origin), true
	case ProgramChangeEvent:
		return event.Program(m.EventChannel, m.Program, origin), true
	default:
		return event.NoteEvent{}, false
	}
}