package process

import (
	"testing"

	"github.com/fw16synth/fw16synth/pkg/bus"
	"github.com/fw16synth/fw16synth/pkg/event"
	"github.com/fw16synth/fw16synth/pkg/framework/debug"
	"github.com/fw16synth/fw16synth/pkg/renderer"
)

func TestRenderForwardsDrainedEvents(t *testing.T) {
	b := bus.New(16)
	rec := renderer.NewRecorder()
	a := NewAdapter(rec, b, debug.NewProfiler(16))

	b.Submit(event.On(60, 100, 0, event.OriginKeyboard))
	b.Submit(event.Off(60, 0, event.OriginKeyboard))

	a.Render(make([]float32, 4))

	if len(rec.Calls) != 2 {
		t.Fatalf("Render() forwarded %d calls, want 2", len(rec.Calls))
	}
	if rec.Calls[0].Method != "note_on" || rec.Calls[1].Method != "note_off" {
		t.Errorf("calls = %+v", rec.Calls)
	}
}

func TestRenderForwardsProgramChange(t *testing.T) {
	b := bus.New(16)
	rec := renderer.NewRecorder()
	a := NewAdapter(rec, b, debug.NewProfiler(16))

	b.Submit(event.Program(0, 42, event.OriginKeyboard))
	a.Render(make([]float32, 4))

	if len(rec.Calls) != 1 || rec.Calls[0].Method != "program_change" || rec.Calls[0].Program != 42 {
		t.Errorf("calls = %+v, want a single program_change(42)", rec.Calls)
	}
}

func TestRenderFillsOutputBuffer(t *testing.T) {
	b := bus.New(16)
	rec := renderer.NewRecorder()
	rec.FillValue = 0.5
	a := NewAdapter(rec, b, debug.NewProfiler(16))

	out := make([]float32, 4)
	a.Render(out)

	for i, v := range out {
		if v != 0.5 {
			t.Errorf("out[%d] = %v, want 0.5", i, v)
		}
	}
	if rec.RenderCall != 1 {
		t.Errorf("Render called synth.Render %d times, want 1", rec.RenderCall)
	}
}

func TestRenderStopsAfterEventCap(t *testing.T) {
	b := bus.New(512)
	rec := renderer.NewRecorder()
	a := NewAdapter(rec, b, debug.NewProfiler(16))

	for i := 0; i < maxEventsPerRender+50; i++ {
		b.Submit(event.On(60, 100, 0, event.OriginKeyboard))
	}

	a.Render(make([]float32, 4))

	if len(rec.Calls) != maxEventsPerRender {
		t.Errorf("Render() forwarded %d calls, want %d", len(rec.Calls), maxEventsPerRender)
	}
}

func TestPanicSendsAllSoundOffOnEveryChannel(t *testing.T) {
	b := bus.New(16)
	rec := renderer.NewRecorder()
	a := NewAdapter(rec, b, debug.NewProfiler(16))

	b.Submit(event.Panic())
	a.Render(make([]float32, 4))

	if len(rec.Calls) != 16 {
		t.Fatalf("Panic forwarded %d CC calls, want 16", len(rec.Calls))
	}
	for ch, c := range rec.Calls {
		if c.Method != "cc" || c.Controller != 120 || int(c.Channel) != ch {
			t.Errorf("call[%d] = %+v", ch, c)
		}
	}
}

func TestLatencySampleReportsAfterRenderCalls(t *testing.T) {
	b := bus.New(16)
	rec := renderer.NewRecorder()
	a := NewAdapter(rec, b, debug.NewProfiler(16))

	a.Render(make([]float32, 4))
	a.Render(make([]float32, 4))

	avg, _ := a.LatencySample()
	if avg < 0 {
		t.Errorf("LatencySample() avg = %v, want >= 0", avg)
	}
}
