// Package engine implements the input context's fan-in task: the single
// goroutine that owns the State Core, the Velocity Computer, the Voice
// Allocator, and the Arpeggiator/Layer transforms, and is the sole
// producer onto the realtime bus. See §4 (the module-by-module
// algorithms) and §5 ("Input context").
package engine

import (
	"github.com/fw16synth/fw16synth/pkg/arp"
	"github.com/fw16synth/fw16synth/pkg/bus"
	"github.com/fw16synth/fw16synth/pkg/event"
	"github.com/fw16synth/fw16synth/pkg/framework/state"
	"github.com/fw16synth/fw16synth/pkg/framework/voice"
	"github.com/fw16synth/fw16synth/pkg/input"
	"github.com/fw16synth/fw16synth/pkg/layer"
	"github.com/fw16synth/fw16synth/pkg/mapper"
	"github.com/fw16synth/fw16synth/pkg/midi"
	"github.com/fw16synth/fw16synth/pkg/velocity"
)

// primaryChannel is the MIDI channel every directly-played note and
// control targets. The Layer Mixer duplicates onto its own secondary
// channel; the Arpeggiator plays on channel 0 by construction.
const primaryChannel = 0

// Engine is the fan-in task. It is single-threaded by contract: every
// method below must only be called from the one goroutine that reads
// Device Supervisor events, never concurrently with itself.
type Engine struct {
	table          *mapper.Table
	velocity       *velocity.Computer
	allocator      *voice.Allocator
	arp            *arp.Arp
	layer          *layer.Layer
	layerAllocator *voice.Allocator
	state          *state.Core
	out            *bus.Bus

	axisX, axisY, axisPressure float64
	touchActive                bool
	modifierHeld               bool
}

// New creates an Engine wiring every fan-in component to the shared
// output bus. layerAlloc is a Voice Allocator dedicated to the Layer
// Mixer's secondary channel: per §4.G the duplicate is "independent
// for the Voice Allocator", so it is enforced against its own
// polyphony cap rather than sharing alloc's held-note/voice bookkeeping
// (which is keyed by pitch alone and would otherwise collide with the
// primary channel's identical pitches).
func New(table *mapper.Table, vc *velocity.Computer, alloc *voice.Allocator, ap *arp.Arp, ly *layer.Layer, layerAlloc *voice.Allocator, core *state.Core, out *bus.Bus) *Engine {
	return &Engine{
		table:          table,
		velocity:       vc,
		allocator:      alloc,
		arp:            ap,
		layer:          ly,
		layerAllocator: layerAlloc,
		state:          core,
		out:            out,
	}
}

// HandleInputEvent dispatches one classified InputEvent from the Device
// Supervisor. deviceClass distinguishes a MIDI-class device (§4.B)
// from a keyboard/touchpad one, since a KindMidi event only ever
// arrives from a device the supervisor classified as ClassMIDI.
func (e *Engine) HandleInputEvent(ev input.InputEvent, deviceClass input.Class) {
	switch ev.Kind {
	case input.KindKeyDown:
		e.handleKeyDown(ev)
	case input.KindKeyUp:
		e.handleKeyUp(ev)
	case input.KindAxis:
		e.handleAxis(ev)
	case input.KindTouch:
		e.touchActive = ev.Touch == input.TouchOn
	case input.KindMidi:
		e.handleMidi(ev)
	case input.KindDeviceGone:
		// DeviceGone itself carries no raw keys; the supervisor reports
		// the device's observed raws separately via DeviceEvent.Raws.
	}
}

// ReleaseDeviceKeys is called with the set of raw keys a departed
// device had active, per §4.B's "DeviceGone" contract: every
// pitch that device was the source of gets released as if a KeyUp had
// arrived for it. Control roles are not released, so a sustain key
// held on the departed device leaves sustain on.
func (e *Engine) ReleaseDeviceKeys(raws []input.RawKey) {
	for _, raw := range raws {
		e.releaseRaw(raw)
	}
}

func (e *Engine) handleKeyDown(ev input.InputEvent) {
	e.state.RecordEventTime(uint16(ev.Raw), ev.T)

	if role := e.table.Control(ev.Raw); role != mapper.RoleNone {
		e.applyControl(role)
		return
	}

	pitch, ok := e.table.Pitch(ev.Raw, e.state.Octave, e.state.Transpose)
	if !ok {
		return
	}

	if e.arp.Mode() != arp.ModeOff {
		e.arp.Hold(pitch)
		return
	}

	e.strike(ev.Raw, pitch, ev.T, event.OriginKeyboard)
}

func (e *Engine) handleKeyUp(ev input.InputEvent) {
	if role := e.table.Control(ev.Raw); role == mapper.RoleSustain {
		e.setSustain(false)
		return
	}
	e.releaseRaw(ev.Raw)
}

// releaseRaw releases whatever pitch ev.Raw maps to under the current
// octave/transpose, whether that means removing it from the held
// arpeggiator set or releasing its voice directly.
func (e *Engine) releaseRaw(raw input.RawKey) {
	pitch, ok := e.table.Pitch(raw, e.state.Octave, e.state.Transpose)
	if !ok {
		return
	}

	if e.arp.Mode() != arp.ModeOff {
		e.submitAll(e.arp.Release(pitch))
		return
	}

	res := e.allocator.Off(pitch, primaryChannel, event.OriginKeyboard)
	e.submitResult(res)
}

// strike computes a velocity for a freshly-pressed pitch and drives it
// through the Voice Allocator and Layer Mixer. t is the KeyDown's
// monotonic nanosecond timestamp; the Velocity Computer keeps its own
// most-recent-KeyDown history to diff against, independent of the State
// Core's last_event_times_per_raw bookkeeping.
func (e *Engine) strike(raw input.RawKey, pitch uint8, t int64, origin event.Origin) {
	info := e.velocity.Compute(velocity.Strike{
		Raw:          uint16(raw),
		Now:          float64(t) / 1e9,
		TouchActive:  e.touchActive,
		Pressure:     e.axisPressure,
		Row:          velocity.Row(e.table.RowOf(raw)),
		ModifierHeld: e.modifierHeld,
	})

	res := e.allocator.On(pitch, info.Value, primaryChannel, origin)
	e.submitResult(res)
}

func (e *Engine) handleAxis(ev input.InputEvent) {
	switch ev.Axis {
	case input.AxisX:
		e.axisX = ev.Normalized
	case input.AxisY:
		e.axisY = ev.Normalized
	case input.AxisPressure:
		e.axisPressure = ev.Normalized
	}
}

// handleMidi decodes a raw MIDI-class device's status/data bytes
// through pkg/midi's wire vocabulary and forwards the result as a bus
// event. Events with no NoteEvent equivalent (clock, pressure, ...)
// are dropped by ToNoteEvent.
func (e *Engine) handleMidi(ev input.InputEvent) {
	wire, ok := midi.Decode(ev.Status, ev.D1, ev.D2, 0)
	if !ok {
		return
	}
	note, ok := midi.ToNoteEvent(wire, event.OriginMIDIIn)
	if !ok {
		return
	}
	e.out.Submit(note)
}

// applyControl executes a control-key role that is not resolved to a
// pitch. For RoleSustain it only turns sustain on; the off-transition
// arrives through handleKeyUp's RoleSustain branch.
func (e *Engine) applyControl(role mapper.Role) {
	switch role {
	case mapper.RoleOctaveUp:
		e.state.OctaveUp()
	case mapper.RoleOctaveDown:
		e.state.OctaveDown()
	case mapper.RoleTransposeUp:
		e.state.TransposeUp()
	case mapper.RoleTransposeDown:
		e.state.TransposeDown()
	case mapper.RoleSustain:
		e.setSustain(true)
	case mapper.RolePanic:
		e.panic()
	case mapper.RoleProgramUp:
		e.changeProgram(1)
	case mapper.RoleProgramDown:
		e.changeProgram(-1)
	case mapper.RoleLayerToggle:
		e.toggleLayer()
	case mapper.RoleArpToggle:
		e.toggleArp()
	}
}

func (e *Engine) setSustain(on bool) {
	e.state.SustainPressed = on
	res := e.allocator.SetSustain(on, primaryChannel)
	e.submitResult(res)
}

func (e *Engine) panic() {
	res := e.allocator.Panic()
	e.submitResult(res)
	e.submitAll(e.arp.SetMode(arp.ModeOff))
	e.layer.Disable()
	e.submitLayerResult(e.layerAllocator.Panic())
	e.out.Submit(event.Panic())
}

func (e *Engine) changeProgram(delta int) {
	p := int(e.state.CurrentProgram) + delta
	if p < 0 {
		p = 0
	}
	if p > 127 {
		p = 127
	}
	e.state.CurrentProgram = uint8(p)
	e.out.Submit(event.Program(primaryChannel, e.state.CurrentProgram, event.OriginKeyboard))
}

func (e *Engine) toggleLayer() {
	if e.layer.Toggle() {
		e.state.Layer.On = true
		e.state.Layer.Program = e.layer.Program()
		return
	}
	e.state.Layer.On = false
	e.submitLayerResult(e.layerAllocator.Panic())
}

func (e *Engine) toggleArp() {
	offs := e.arp.Toggle()
	e.submitAll(offs)
	e.state.ArpMode = e.arp.Mode()
}

// Poll advances the arpeggiator's step clock. It must be called
// periodically by the fan-in task's event loop (typically alongside
// the reader-merge select, on a short ticker) so arp steps are emitted
// even while no InputEvent is arriving.
func (e *Engine) Poll() {
	e.submitAll(e.arp.Poll())
}

// submitResult applies an allocator Result's note-offs (in order),
// then its note-on if any, dispatching each through the Layer Mixer.
func (e *Engine) submitResult(res voice.Result) {
	for _, off := range res.NoteOffs {
		e.submitWithLayer(off)
	}
	if res.NoteOn != nil {
		e.submitWithLayer(*res.NoteOn)
	}
}

// submitWithLayer submits ev, then — if the Layer Mixer is enabled and
// ev is an On/Off — routes the duplicate through the layer's own
// Allocator so it occupies and is subject to stealing against its own
// polyphony slot, per §4.G/§4.H.
func (e *Engine) submitWithLayer(ev event.NoteEvent) {
	e.out.Submit(ev)
	if !e.layer.Enabled() {
		return
	}
	switch ev.Kind {
	case event.KindOn:
		e.submitLayerResult(e.layerAllocator.On(ev.Pitch, ev.Velocity, e.layer.Channel(), event.OriginLayer))
	case event.KindOff:
		e.submitLayerResult(e.layerAllocator.Off(ev.Pitch, e.layer.Channel(), event.OriginLayer))
	}
}

// submitLayerResult submits a layer Allocator Result's events directly,
// without re-running them back through submitWithLayer (the events it
// produces are already layer-origin; they must not be duplicated again).
func (e *Engine) submitLayerResult(res voice.Result) {
	for _, off := range res.NoteOffs {
		e.out.Submit(off)
	}
	if res.NoteOn != nil {
		e.out.Submit(*res.NoteOn)
	}
}

func (e *Engine) submitAll(evs []event.NoteEvent) {
	for _, ev := range evs {
		e.out.Submit(ev)
	}
}
