// Package voice implements the Voice Allocator: it maps logical notes
// to synthesizer voices, enforces the polyphony cap with a defined
// stealing policy, and tracks sustain-pedal deferred releases. See
// §4.H.
package voice

import (
	"github.com/google/uuid"

	"github.com/fw16synth/fw16synth/pkg/event"
)

// HeldNote is the input-context record of a physically (or logically,
// for sustain) active pitch. At most one HeldNote exists per pitch.
type HeldNote struct {
	Pitch            uint8
	VelocityAtStrike uint8
	StrikeTime       int64
	Origin           event.Origin
	Sustained        bool
	VoiceID          uuid.UUID
}

// Voice is the allocator's own bookkeeping record for a sounding note.
// It is not the DSP voice itself — Id is just a stable handle the
// renderer adapter and allocator share while the note is alive.
type Voice struct {
	ID         uuid.UUID
	Pitch      uint8
	Velocity   uint8
	Channel    uint8
	StartTime  int64
	ReleasedAt *int64
}

// Allocator owns HeldNotes and Voices exclusively; it is mutated only
// by the input fan-in task.
type Allocator struct {
	maxPolyphony int
	sustain      bool

	voices    map[uuid.UUID]*Voice
	heldNotes map[uint8]*HeldNote

	now func() int64
}

// New creates an Allocator capped at maxPolyphony simultaneous voices.
// now supplies the allocator's notion of the current time (injectable
// for deterministic tests); pass a monotonic clock in production.
func New(maxPolyphony int, now func() int64) *Allocator {
	return &Allocator{
		maxPolyphony: maxPolyphony,
		voices:       make(map[uuid.UUID]*Voice, maxPolyphony),
		heldNotes:    make(map[uint8]*HeldNote, maxPolyphony),
		now:          now,
	}
}

// Result is the set of renderer-facing effects a single allocator
// operation produces, in the order they must be applied.
type Result struct {
	NoteOffs []event.NoteEvent // stolen/evicted/released voices
	NoteOn   *event.NoteEvent  // the newly allocated voice, if any
}

// MaxPolyphony returns the configured voice cap.
func (a *Allocator) MaxPolyphony() int { return a.maxPolyphony }

// ActiveVoiceCount returns the number of voices not yet released.
// Released voices keep their slot (and stay steal candidates) until
// they are stolen or cleared by Panic, but are not counted here.
func (a *Allocator) ActiveVoiceCount() int {
	n := 0
	for _, v := range a.voices {
		if v.ReleasedAt == nil {
			n++
		}
	}
	return n
}

// On implements §4.H's On(p,v,ch,origin) algorithm.
func (a *Allocator) On(pitch, velocity, channel uint8, origin event.Origin) Result {
	var res Result

	if existing, ok := a.heldNotes[pitch]; ok {
		if v, ok := a.voices[existing.VoiceID]; ok {
			res.NoteOffs = append(res.NoteOffs, event.Off(v.Pitch, v.Channel, origin))
			delete(a.voices, existing.VoiceID)
		}
		delete(a.heldNotes, pitch)
	}

	if len(a.voices) >= a.maxPolyphony {
		if victim := a.pickVictim(); victim != nil {
			res.NoteOffs = append(res.NoteOffs, event.Off(victim.Pitch, victim.Channel, origin))
			delete(a.voices, victim.ID)
			a.forgetHeldNoteFor(victim.ID)
		}
	}

	id := uuid.New()
	now := a.now()
	a.voices[id] = &Voice{ID: id, Pitch: pitch, Velocity: velocity, Channel: channel, StartTime: now}
	a.heldNotes[pitch] = &HeldNote{
		Pitch:            pitch,
		VelocityAtStrike: velocity,
		StrikeTime:       now,
		Origin:           origin,
		VoiceID:          id,
	}

	on := event.On(pitch, velocity, channel, origin)
	res.NoteOn = &on
	return res
}

// Off implements §4.H's Off(p,ch,origin) algorithm.
func (a *Allocator) Off(pitch, channel uint8, origin event.Origin) Result {
	hn, ok := a.heldNotes[pitch]
	if !ok {
		return Result{}
	}

	if a.sustain {
		hn.Sustained = true
		return Result{}
	}

	delete(a.heldNotes, pitch)
	if v, ok := a.voices[hn.VoiceID]; ok {
		now := a.now()
		v.ReleasedAt = &now
	}
	return Result{NoteOffs: []event.NoteEvent{event.Off(pitch, channel, origin)}}
}

// SetSustain implements the CC(sustain_pedal) transition rule: on
// transition to off, every sustained HeldNote is released.
func (a *Allocator) SetSustain(on bool, channel uint8) Result {
	wasOn := a.sustain
	a.sustain = on
	if wasOn && !on {
		return a.releaseSustainedHeldNotes(channel)
	}
	return Result{}
}

func (a *Allocator) releaseSustainedHeldNotes(channel uint8) Result {
	var res Result
	for pitch, hn := range a.heldNotes {
		if !hn.Sustained {
			continue
		}
		delete(a.heldNotes, pitch)
		if v, ok := a.voices[hn.VoiceID]; ok {
			now := a.now()
			v.ReleasedAt = &now
		}
		res.NoteOffs = append(res.NoteOffs, event.Off(pitch, channel, hn.Origin))
	}
	return res
}

// Panic implements §4.H's Panic: release every voice, clear every
// HeldNote, and forward a note-off for each.
func (a *Allocator) Panic() Result {
	var res Result
	for _, v := range a.voices {
		res.NoteOffs = append(res.NoteOffs, event.Off(v.Pitch, v.Channel, event.OriginKeyboard))
	}
	a.voices = make(map[uuid.UUID]*Voice, a.maxPolyphony)
	a.heldNotes = make(map[uint8]*HeldNote, a.maxPolyphony)
	return res
}

// pickVictim selects the voice to evict per §4.H step 2: first
// released-and-sustained voices, then the lowest-amplitude proxy
// (oldest ReleasedAt, then oldest StartTime).
//
// A sustained HeldNote never gets a ReleasedAt (Off defers the release
// entirely, it never touches the Voice), so this category is
// identified by hn.Sustained alone, and ranked by StartTime since
// there is no release timestamp to rank it by.
func (a *Allocator) pickVictim() *Voice {
	var sustainedReleased []*Voice
	for _, hn := range a.heldNotes {
		if !hn.Sustained {
			continue
		}
		if v, ok := a.voices[hn.VoiceID]; ok {
			sustainedReleased = append(sustainedReleased, v)
		}
	}
	if pick := oldestStart(sustainedReleased); pick != nil {
		return pick
	}

	var released []*Voice
	var active []*Voice
	for _, v := range a.voices {
		if v.ReleasedAt != nil {
			released = append(released, v)
		} else {
			active = append(active, v)
		}
	}
	if pick := oldestReleased(released); pick != nil {
		return pick
	}
	return oldestStart(active)
}

// oldestReleased picks the voice with the smallest ReleasedAt, breaking
// ties on equal ReleasedAt by the lowest pitch so the result does not
// depend on map iteration order.
func oldestReleased(voices []*Voice) *Voice {
	var best *Voice
	for _, v := range voices {
		if best == nil || *v.ReleasedAt < *best.ReleasedAt ||
			(*v.ReleasedAt == *best.ReleasedAt && v.Pitch < best.Pitch) {
			best = v
		}
	}
	return best
}

// oldestStart picks the voice with the smallest StartTime, breaking ties
// on equal StartTime by the lowest pitch so the result does not depend
// on map iteration order.
func oldestStart(voices []*Voice) *Voice {
	var best *Voice
	for _, v := range voices {
		if best == nil || v.StartTime < best.StartTime ||
			(v.StartTime == best.StartTime && v.Pitch < best.Pitch) {
			best = v
		}
	}
	return best
}

// forgetHeldNoteFor removes whichever HeldNote still points at voiceID,
// if any (a stolen voice's HeldNote may already be gone if it had been
// sustain-released).
func (a *Allocator) forgetHeldNoteFor(voiceID uuid.UUID) {
	for pitch, hn := range a.heldNotes {
		if hn.VoiceID == voiceID {
			delete(a.heldNotes, pitch)
			return
		}
	}
}
