package voice

import (
	"testing"

	"github.com/fw16synth/fw16synth/pkg/event"
)

func newTestAllocator(maxPolyphony int) *Allocator {
	t := int64(0)
	return New(maxPolyphony, func() int64 {
		t++
		return t
	})
}

func TestOnAllocatesVoice(t *testing.T) {
	a := newTestAllocator(4)
	res := a.On(60, 100, 0, event.OriginKeyboard)
	if res.NoteOn == nil || res.NoteOn.Pitch != 60 {
		t.Fatalf("On() = %+v, want a NoteOn for pitch 60", res)
	}
	if len(res.NoteOffs) != 0 {
		t.Errorf("On() on an empty allocator produced note-offs: %+v", res.NoteOffs)
	}
	if a.ActiveVoiceCount() != 1 {
		t.Errorf("ActiveVoiceCount() = %d, want 1", a.ActiveVoiceCount())
	}
}

func TestOnSamePitchStealsExistingVoice(t *testing.T) {
	a := newTestAllocator(4)
	a.On(60, 100, 0, event.OriginKeyboard)
	res := a.On(60, 110, 0, event.OriginKeyboard)

	if len(res.NoteOffs) != 1 || res.NoteOffs[0].Pitch != 60 {
		t.Errorf("re-striking pitch 60 should release the prior voice, got %+v", res.NoteOffs)
	}
	if a.ActiveVoiceCount() != 1 {
		t.Errorf("ActiveVoiceCount() = %d, want 1", a.ActiveVoiceCount())
	}
}

func TestOffReleasesHeldNote(t *testing.T) {
	a := newTestAllocator(4)
	a.On(60, 100, 0, event.OriginKeyboard)
	res := a.Off(60, 0, event.OriginKeyboard)

	if len(res.NoteOffs) != 1 || res.NoteOffs[0].Pitch != 60 {
		t.Fatalf("Off() = %+v, want a single Off(60)", res.NoteOffs)
	}
	if a.ActiveVoiceCount() != 0 {
		t.Errorf("ActiveVoiceCount() = %d, want 0", a.ActiveVoiceCount())
	}
}

func TestOffOnUnheldPitchIsNoOp(t *testing.T) {
	a := newTestAllocator(4)
	res := a.Off(60, 0, event.OriginKeyboard)
	if len(res.NoteOffs) != 0 {
		t.Errorf("Off() on an unheld pitch = %+v, want no events", res.NoteOffs)
	}
}

func TestOffWithSustainDefersRelease(t *testing.T) {
	a := newTestAllocator(4)
	a.On(60, 100, 0, event.OriginKeyboard)
	a.SetSustain(true, 0)

	res := a.Off(60, 0, event.OriginKeyboard)
	if len(res.NoteOffs) != 0 {
		t.Errorf("Off() under sustain = %+v, want no events yet", res.NoteOffs)
	}
	if a.ActiveVoiceCount() != 1 {
		t.Errorf("voice should remain allocated while sustained")
	}
}

func TestSustainOffReleasesDeferredNotes(t *testing.T) {
	a := newTestAllocator(4)
	a.On(60, 100, 0, event.OriginKeyboard)
	a.On(64, 100, 0, event.OriginKeyboard)
	a.SetSustain(true, 0)
	a.Off(60, 0, event.OriginKeyboard)
	a.Off(64, 0, event.OriginKeyboard)

	res := a.SetSustain(false, 0)
	if len(res.NoteOffs) != 2 {
		t.Fatalf("releasing sustain = %+v, want 2 note-offs", res.NoteOffs)
	}
	if a.ActiveVoiceCount() != 0 {
		t.Errorf("ActiveVoiceCount() = %d, want 0 after sustain release", a.ActiveVoiceCount())
	}
}

func TestSustainOnWithNoHeldNotesIsNoOp(t *testing.T) {
	a := newTestAllocator(4)
	res := a.SetSustain(true, 0)
	if len(res.NoteOffs) != 0 {
		t.Errorf("SetSustain(true) = %+v, want no events", res.NoteOffs)
	}
}

func TestStealingEvictsOldestReleasedSustainedVoiceFirst(t *testing.T) {
	a := newTestAllocator(2)
	a.On(64, 100, 0, event.OriginKeyboard) // oldest start, stays merely active
	a.On(60, 100, 0, event.OriginKeyboard) // newest start
	a.SetSustain(true, 0)
	a.Off(60, 0, event.OriginKeyboard) // sustained + released, despite being the newer voice

	res := a.On(67, 100, 0, event.OriginKeyboard)
	if len(res.NoteOffs) != 1 || res.NoteOffs[0].Pitch != 60 {
		t.Errorf("stealing should evict the sustained+released voice first even though it started later, got %+v", res.NoteOffs)
	}
}

func TestStealingEvictsOldestStartTimeWhenAllActive(t *testing.T) {
	a := newTestAllocator(2)
	a.On(60, 100, 0, event.OriginKeyboard) // oldest
	a.On(64, 100, 0, event.OriginKeyboard)

	res := a.On(67, 100, 0, event.OriginKeyboard)
	if len(res.NoteOffs) != 1 || res.NoteOffs[0].Pitch != 60 {
		t.Errorf("stealing with no released voices should evict the oldest start time, got %+v", res.NoteOffs)
	}
	if a.ActiveVoiceCount() != 2 {
		t.Errorf("ActiveVoiceCount() = %d, want 2", a.ActiveVoiceCount())
	}
}

func TestStealingTiesOnStartTimeBreakByLowestPitch(t *testing.T) {
	now := int64(0)
	a := New(2, func() int64 { return now }) // frozen clock: every voice starts at the same instant
	a.On(64, 100, 0, event.OriginKeyboard)
	a.On(60, 100, 0, event.OriginKeyboard)

	res := a.On(67, 100, 0, event.OriginKeyboard)
	if len(res.NoteOffs) != 1 || res.NoteOffs[0].Pitch != 60 {
		t.Errorf("a start-time tie should break toward the lowest pitch, got %+v", res.NoteOffs)
	}
}

func TestPanicClearsEverything(t *testing.T) {
	a := newTestAllocator(4)
	a.On(60, 100, 0, event.OriginKeyboard)
	a.On(64, 100, 0, event.OriginKeyboard)
	a.SetSustain(true, 0)
	a.Off(60, 0, event.OriginKeyboard)

	res := a.Panic()
	if len(res.NoteOffs) != 2 {
		t.Fatalf("Panic() = %+v, want 2 note-offs", res.NoteOffs)
	}
	if a.ActiveVoiceCount() != 0 {
		t.Errorf("ActiveVoiceCount() = %d, want 0 after Panic", a.ActiveVoiceCount())
	}
	if len(a.heldNotes) != 0 {
		t.Errorf("heldNotes should be empty after Panic")
	}
}

func TestMaxPolyphonyNeverExceeded(t *testing.T) {
	a := newTestAllocator(3)
	for pitch := uint8(60); pitch < 70; pitch++ {
		a.On(pitch, 100, 0, event.OriginKeyboard)
		if a.ActiveVoiceCount() > 3 {
			t.Fatalf("ActiveVoiceCount() = %d, exceeds max polyphony 3", a.ActiveVoiceCount())
		}
	}
	if a.ActiveVoiceCount() != 3 {
		t.Errorf("ActiveVoiceCount() = %d, want 3", a.ActiveVoiceCount())
	}
}
