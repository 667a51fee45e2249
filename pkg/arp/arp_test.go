package arp

import (
	"testing"

	"github.com/fw16synth/fw16synth/pkg/event"
)

func newTestArp(mode Mode) *Arp {
	clock := &SampleClock{}
	a := New(clock, 120, 48000, 1)
	a.SetMode(mode)
	return a
}

func TestHoldDeduplicatesAndSorts(t *testing.T) {
	a := newTestArp(ModeUp)
	a.Hold(64)
	a.Hold(60)
	a.Hold(64)
	if len(a.held) != 2 || a.held[0] != 60 || a.held[1] != 64 {
		t.Errorf("held = %v, want [60 64]", a.held)
	}
}

func TestUpModeAscendsAndWraps(t *testing.T) {
	a := newTestArp(ModeUp)
	a.Hold(60)
	a.Hold(64)
	a.Hold(67)

	var got []uint8
	for i := 0; i < 4; i++ {
		p, _ := a.advance()
		got = append(got, p)
	}
	want := []uint8{60, 64, 67, 60}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("UP sequence = %v, want %v", got, want)
			break
		}
	}
}

func TestDownModeDescendsAndWraps(t *testing.T) {
	a := newTestArp(ModeDown)
	a.Hold(60)
	a.Hold(64)
	a.Hold(67)

	var got []uint8
	for i := 0; i < 4; i++ {
		p, _ := a.advance()
		got = append(got, p)
	}
	want := []uint8{67, 64, 60, 67}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("DOWN sequence = %v, want %v", got, want)
			break
		}
	}
}

func TestUpDownDoesNotRepeatEndpoints(t *testing.T) {
	a := newTestArp(ModeUpDown)
	a.Hold(60)
	a.Hold(64)
	a.Hold(67)

	var got []uint8
	for i := 0; i < 8; i++ {
		p, _ := a.advance()
		got = append(got, p)
	}
	for i := 1; i < len(got); i++ {
		if got[i] == got[i-1] {
			t.Fatalf("consecutive repeat at %d in sequence %v", i, got)
		}
	}
}

func TestReleaseEmptyHeldReleasesSoundingNote(t *testing.T) {
	a := newTestArp(ModeUp)
	a.Hold(60)
	a.step() // sounds 60

	evs := a.Release(60)
	if len(evs) != 1 || evs[0].Kind != event.KindOff || evs[0].Pitch != 60 {
		t.Errorf("Release on empty set = %+v, want a single Off(60)", evs)
	}
}

func TestPollEmitsStepsAfterElapsedFrames(t *testing.T) {
	clock := &SampleClock{}
	a := New(clock, 120, 48000, 1) // 120bpm, 16th note subdivision -> 8 ticks/sec
	a.SetMode(ModeUp)
	a.Hold(60)
	a.Hold(64)

	perTick := a.framesPerTick()
	clock.Advance(perTick)

	evs := a.Poll()
	if len(evs) == 0 {
		t.Fatal("expected at least one event after a full tick elapsed")
	}
	last := evs[len(evs)-1]
	if last.Kind != event.KindOn {
		t.Errorf("last event should be an On, got %v", last.Kind)
	}
}

func TestFirstHeldPitchStepsImmediately(t *testing.T) {
	clock := &SampleClock{}
	a := New(clock, 120, 48000, 1)
	a.SetMode(ModeUp)
	a.Hold(60)

	// No frames have elapsed at all; the first note should still sound
	// rather than waiting out a full tick.
	evs := a.Poll()
	if len(evs) != 1 || evs[0].Kind != event.KindOn || evs[0].Pitch != 60 {
		t.Errorf("Poll() immediately after the first Hold = %+v, want a single On(60)", evs)
	}
}

func TestPollEmitsNothingBetweenTicksAfterTheFirstStep(t *testing.T) {
	clock := &SampleClock{}
	a := New(clock, 120, 48000, 1)
	a.SetMode(ModeUp)
	a.Hold(60)
	a.Poll() // consumes the immediate first step

	clock.Advance(1) // far less than one tick

	if evs := a.Poll(); evs != nil {
		t.Errorf("Poll() before the next tick elapsed = %v, want nil", evs)
	}
}
