// Package process implements the Renderer Adapter: the thin contract
// the audio callback calls each buffer to drain pending note events and
// fill the output with rendered frames. See §4.I.
package process

import (
	"time"

	"github.com/fw16synth/fw16synth/pkg/bus"
	"github.com/fw16synth/fw16synth/pkg/event"
	"github.com/fw16synth/fw16synth/pkg/framework/debug"
	"github.com/fw16synth/fw16synth/pkg/renderer"
)

// maxEventsPerRender bounds how many bus events a single Render call
// will drain, per §4.I ("bounded, say <= 256 events per call").
const maxEventsPerRender = 256

// Adapter is the audio context's only object. It owns a handle to the
// renderer contract and the consumer end of the realtime bus, and
// nothing else: it never allocates inside Render.
type Adapter struct {
	synth    renderer.Synth
	consumer *bus.Bus
	latency  *debug.Profiler
}

// NewAdapter creates an Adapter that drives synth from events consumed
// off bus. latency receives one sample per Render call, visible to the
// Health Probe as the render-latency ring.
func NewAdapter(synth renderer.Synth, consumer *bus.Bus, latency *debug.Profiler) *Adapter {
	return &Adapter{synth: synth, consumer: consumer, latency: latency}
}

// Render drains up to maxEventsPerRender pending bus events, applies
// each to the renderer contract in the order they were submitted, then
// asks the renderer to fill out with interleaved stereo samples.
func (a *Adapter) Render(out []float32) {
	stop := a.latency.Start("render")
	defer stop()

	for i := 0; i < maxEventsPerRender; i++ {
		ev, ok := a.consumer.Consume()
		if !ok {
			break
		}
		a.apply(ev)
	}

	a.synth.Render(out)
}

func (a *Adapter) apply(ev event.NoteEvent) {
	switch ev.Kind {
	case event.KindOn:
		a.synth.NoteOn(ev.Channel, ev.Pitch, ev.Velocity)
	case event.KindOff:
		a.synth.NoteOff(ev.Channel, ev.Pitch)
	case event.KindCC:
		a.synth.CC(ev.Channel, ev.Controller, ev.Value)
	case event.KindBend:
		a.synth.PitchBend(ev.Channel, ev.Bend)
	case event.KindProgram:
		a.synth.ProgramChange(ev.Channel, ev.Program)
	case event.KindPanic:
		a.panicAll()
	}
}

// panicAll silences every channel the renderer might have sounding.
// The adapter does not track which pitches are active (the Voice
// Allocator does, in the input context); it relies on CCAllSoundOff
// on every channel instead of individually-targeted note-offs.
func (a *Adapter) panicAll() {
	for ch := uint8(0); ch < 16; ch++ {
		a.synth.CC(ch, 120, 0) // All Sound Off
	}
}

// LatencySample returns the average and p95 render-call latency
// recorded so far, for the Health Probe.
func (a *Adapter) LatencySample() (avg, p95 time.Duration) {
	m, ok := a.latency.GetMeasurement("render")
	if !ok {
		return 0, 0
	}
	return m.Average(), m.Percentile(95)
}
