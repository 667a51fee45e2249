// Package event defines the realtime bus payload: a tagged union of note
// events that flows from the input context, through the arpeggiator and
// layer transform, into the voice allocator and out to the renderer
// adapter. See §3 (NoteEvent).
package event

import "fmt"

// Origin identifies the logical source of a NoteEvent. The renderer never
// inspects it; it exists for UI telemetry and double-trigger suppression.
type Origin uint8

const (
	OriginKeyboard Origin = iota
	OriginTouchpad
	OriginMIDIIn
	OriginArp
	OriginLayer
)

func (o Origin) String() string {
	switch o {
	case OriginKeyboard:
		return "keyboard"
	case OriginTouchpad:
		return "touchpad"
	case OriginMIDIIn:
		return "midi-in"
	case OriginArp:
		return "arp"
	case OriginLayer:
		return "layer"
	default:
		return "unknown"
	}
}

// Kind distinguishes the variant of a NoteEvent.
type Kind uint8

const (
	KindOn Kind = iota
	KindOff
	KindCC
	KindBend
	KindProgram
	KindPanic
)

// NoteEvent is the bus payload. It is value-typed: no field holds a
// pointer into shared mutable memory, so it can cross the realtime
// channel boundary without synchronization beyond the channel itself.
type NoteEvent struct {
	Kind       Kind
	Pitch      uint8 // valid for KindOn/KindOff
	Velocity   uint8 // valid for KindOn, in [1,127]
	Channel    uint8
	Controller uint8  // valid for KindCC
	Value      uint8  // valid for KindCC, in [0,127]
	Bend       int16  // valid for KindBend, in [-8192,8191]
	Program    uint8  // valid for KindProgram, in [0,127]
	Origin     Origin
}

// On builds a note-on event. Velocity is clamped to [1,127] by the caller;
// On itself does not clamp so that a caller bug surfaces as a test failure
// rather than being silently hidden.
func On(pitch, velocity, channel uint8, origin Origin) NoteEvent {
	return NoteEvent{Kind: KindOn, Pitch: pitch, Velocity: velocity, Channel: channel, Origin: origin}
}

// Off builds a note-off event.
func Off(pitch, channel uint8, origin Origin) NoteEvent {
	return NoteEvent{Kind: KindOff, Pitch: pitch, Channel: channel, Origin: origin}
}

// CC builds a control-change event.
func CC(channel, controller, value uint8, origin Origin) NoteEvent {
	return NoteEvent{Kind: KindCC, Channel: channel, Controller: controller, Value: value, Origin: origin}
}

// Bend builds a pitch-bend event.
func Bend(channel uint8, value int16, origin Origin) NoteEvent {
	return NoteEvent{Kind: KindBend, Channel: channel, Bend: value, Origin: origin}
}

// Program builds a program-change event.
func Program(channel, program uint8, origin Origin) NoteEvent {
	return NoteEvent{Kind: KindProgram, Channel: channel, Program: program, Origin: origin}
}

// Panic builds a panic event. Panic carries no channel: it silences
// everything.
func Panic() NoteEvent {
	return NoteEvent{Kind: KindPanic}
}

func (e NoteEvent) String() string {
	switch e.Kind {
	case KindOn:
		return fmt.Sprintf("On{pitch:%d,vel:%d,ch:%d,origin:%s}", e.Pitch, e.Velocity, e.Channel, e.Origin)
	case KindOff:
		return fmt.Sprintf("Off{pitch:%d,ch:%d,origin:%s}", e.Pitch, e.Channel, e.Origin)
	case KindCC:
		return fmt.Sprintf("CC{ch:%d,ctrl:%d,val:%d,origin:%s}", e.Channel, e.Controller, e.Value, e.Origin)
	case KindBend:
		return fmt.Sprintf("Bend{ch:%d,val:%d,origin:%s}", e.Channel, e.Bend, e.Origin)
	case KindProgram:
		return fmt.Sprintf("Program{ch:%d,program:%d,origin:%s}", e.Channel, e.Program, e.Origin)
	case KindPanic:
		return "Panic{}"
	default:
		return "Unknown{}"
	}
}

// CCSustain is the MIDI sustain-pedal controller number, mirrored from
// pkg/midi so callers working purely in terms of NoteEvent don't need to
// import the wire-level package just for this one constant.
const CCSustain uint8 = 64
