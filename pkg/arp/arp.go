// Package arp implements the Arpeggiator: when enabled, it consumes the
// set of currently held pitches and synthesizes a timed stream of
// note-on/note-off events, clocked by the audio context's buffer
// boundaries rather than wall time. See §4.F.
package arp

import (
	"math/rand"
	"sort"

	"github.com/fw16synth/fw16synth/pkg/event"
)

// Mode selects the arpeggiator's note ordering.
type Mode uint8

const (
	ModeOff Mode = iota
	ModeUp
	ModeDown
	ModeUpDown
	ModeRandom
)

func (m Mode) String() string {
	switch m {
	case ModeUp:
		return "up"
	case ModeDown:
		return "down"
	case ModeUpDown:
		return "up-down"
	case ModeRandom:
		return "random"
	default:
		return "off"
	}
}

// Next cycles through the mode sequence OFF -> UP -> DOWN -> UP_DOWN ->
// RANDOM -> OFF.
func (m Mode) Next() Mode {
	return (m + 1) % 5
}

// defaultSubdivision is ticks per quarter note (a 16th note clock).
const defaultSubdivision = 4

// Arp owns the held-note set and step state. It is mutated exclusively
// by the input fan-in task; the audio context only advances the shared
// SampleClock.
type Arp struct {
	mode Mode
	held []uint8 // ascending, deduplicated

	clock      *SampleClock
	lastFrames uint64
	bpm        float64
	sampleRate float64

	sounding *uint8
	upIndex  int
	rng      *rand.Rand
	lastPick *uint8

	pending bool // an immediate step is due on the next Poll, skipping the normal tick wait
}

// New creates an Arp bound to clock, ticking at bpm with a 16th-note
// subdivision against sampleRate frames per second.
func New(clock *SampleClock, bpm, sampleRate float64, seed int64) *Arp {
	return &Arp{
		clock:      clock,
		bpm:        bpm,
		sampleRate: sampleRate,
		rng:        rand.New(rand.NewSource(seed)),
	}
}

// Mode returns the current mode.
func (a *Arp) Mode() Mode { return a.mode }

// SetMode changes the active mode. Switching to ModeOff releases the
// currently sounding note, if any; switching to a playing mode with
// pitches already held arms an immediate first step so the pattern
// starts on downbeat rather than waiting out a full tick.
func (a *Arp) SetMode(m Mode) []event.NoteEvent {
	a.mode = m
	if m == ModeOff {
		return a.releaseSounding()
	}
	if len(a.held) > 0 {
		a.pending = true
		a.lastFrames = a.clock.Frames()
	}
	return nil
}

// Toggle advances to the next mode in sequence.
func (a *Arp) Toggle() []event.NoteEvent {
	return a.SetMode(a.mode.Next())
}

// Hold adds pitch to the held set. Called on a primary-channel KeyDown
// while the arp is enabled. The first pitch held while nothing else is
// sounding arms an immediate step, so the pattern's first note plays at
// once instead of waiting out the first full tick.
func (a *Arp) Hold(pitch uint8) {
	for _, p := range a.held {
		if p == pitch {
			return
		}
	}
	wasEmpty := len(a.held) == 0
	a.held = append(a.held, pitch)
	sort.Slice(a.held, func(i, j int) bool { return a.held[i] < a.held[j] })

	if wasEmpty && a.mode != ModeOff && a.sounding == nil {
		a.pending = true
		a.lastFrames = a.clock.Frames()
	}
}

// Release removes pitch from the held set. If the set is now empty,
// the sounding note, whichever pitch it is, is released immediately.
func (a *Arp) Release(pitch uint8) []event.NoteEvent {
	for i, p := range a.held {
		if p == pitch {
			a.held = append(a.held[:i], a.held[i+1:]...)
			break
		}
	}
	if len(a.held) == 0 {
		return a.releaseSounding()
	}
	return nil
}

func (a *Arp) releaseSounding() []event.NoteEvent {
	if a.sounding == nil {
		return nil
	}
	off := event.Off(*a.sounding, 0, event.OriginArp)
	a.sounding = nil
	return []event.NoteEvent{off}
}

// framesPerTick computes the sample-accurate step period for the
// current tempo and subdivision.
func (a *Arp) framesPerTick() uint64 {
	ticksPerSecond := (a.bpm / 60.0) * defaultSubdivision
	if ticksPerSecond <= 0 {
		return ^uint64(0) // effectively never ticks
	}
	return uint64(a.sampleRate / ticksPerSecond)
}

// Poll is called by the input fan-in task to advance the arp clock by
// however many frames the audio context has rendered since the last
// call, emitting one Off/On pair per elapsed step. A step armed by
// SetMode/Hold fires immediately, ahead of the normal tick-elapsed
// check, so the pattern's first note does not wait out a full tick.
func (a *Arp) Poll() []event.NoteEvent {
	if a.mode == ModeOff {
		a.lastFrames = a.clock.Frames()
		a.pending = false
		return nil
	}

	var out []event.NoteEvent
	if a.pending {
		a.pending = false
		out = append(out, a.step()...)
	}

	now := a.clock.Frames()
	elapsed := now - a.lastFrames
	perTick := a.framesPerTick()
	if perTick == 0 {
		return out
	}
	ticks := elapsed / perTick
	a.lastFrames += ticks * perTick

	for i := uint64(0); i < ticks; i++ {
		out = append(out, a.step()...)
	}
	return out
}

func (a *Arp) step() []event.NoteEvent {
	if len(a.held) == 0 {
		return a.releaseSounding()
	}

	next, ok := a.advance()
	if !ok {
		return a.releaseSounding()
	}

	var out []event.NoteEvent
	if a.sounding != nil {
		out = append(out, event.Off(*a.sounding, 0, event.OriginArp))
	}
	on := event.On(next, 100, 0, event.OriginArp)
	out = append(out, on)

	pitch := next
	a.sounding = &pitch
	return out
}

func (a *Arp) advance() (uint8, bool) {
	switch a.mode {
	case ModeUp:
		if a.upIndex >= len(a.held) {
			a.upIndex = 0
		}
		p := a.held[a.upIndex]
		a.upIndex++
		return p, true

	case ModeDown:
		if a.upIndex >= len(a.held) {
			a.upIndex = 0
		}
		idx := len(a.held) - 1 - a.upIndex
		a.upIndex++
		return a.held[idx], true

	case ModeUpDown:
		return a.advanceUpDown()

	case ModeRandom:
		return a.advanceRandom()
	}
	return 0, false
}

// advanceUpDown walks a ping-pong cycle over the held set without
// repeating either endpoint on the turnaround: for n=4 the cycle of
// indices is 0,1,2,3,2,1,0,1,2,3,2,1,...
func (a *Arp) advanceUpDown() (uint8, bool) {
	n := len(a.held)
	if n == 1 {
		return a.held[0], true
	}

	period := 2 * (n - 1)
	pos := a.upIndex % period
	var idx int
	if pos < n {
		idx = pos
	} else {
		idx = period - pos
	}
	a.upIndex++
	return a.held[idx], true
}

func (a *Arp) advanceRandom() (uint8, bool) {
	n := len(a.held)
	pick := a.held[a.rng.Intn(n)]
	if n > 1 {
		for a.lastPick != nil && pick == *a.lastPick {
			pick = a.held[a.rng.Intn(n)]
		}
	}
	p := pick
	a.lastPick = &p
	return pick, true
}
