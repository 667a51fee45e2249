// Package mapper implements the Key→Note Mapper: a pure, stateless
// translation from a scan-code to a pitch under the current octave and
// transpose, plus the parallel control-key table. See §4.C.
package mapper

import "github.com/fw16synth/fw16synth/pkg/input"

// Role identifies a control binding independent of note mapping.
type Role uint8

const (
	RoleNone Role = iota
	RoleOctaveUp
	RoleOctaveDown
	RoleTransposeUp
	RoleTransposeDown
	RoleSustain
	RolePanic
	RoleProgramUp
	RoleProgramDown
	RoleLayerToggle
	RoleArpToggle
	RoleModifier
)

// Row identifies which keyboard row a raw key belongs to, used by the
// Velocity Computer's position source. Rows mirror the three overlapping
// octave bands the default layout lays out; they do not follow from the
// offset value alone since the bands overlap in pitch.
type Row uint8

const (
	RowNone Row = iota
	RowBottom
	RowHome
	RowTop
)

// NoteBinding is one entry of a raw→offset table: the semitone offset
// from the current octave's root, plus the row used for the Velocity
// Computer's position source.
type NoteBinding struct {
	Offset int
	Row    Row
}

// Table is the raw→offset and raw→control mapping the mapper applies.
// It is immutable once built: every lookup is a pure function of (raw,
// octave, transpose) plus this table.
type Table struct {
	notes    map[input.RawKey]NoteBinding
	controls map[input.RawKey]Role
}

// NewTable builds a Table from explicit note and control bindings, as
// loaded from a configuration file.
func NewTable(notes map[input.RawKey]NoteBinding, controls map[input.RawKey]Role) *Table {
	t := &Table{
		notes:    make(map[input.RawKey]NoteBinding, len(notes)),
		controls: make(map[input.RawKey]Role, len(controls)),
	}
	for k, v := range notes {
		t.notes[k] = v
	}
	for k, v := range controls {
		t.controls[k] = v
	}
	return t
}

// Pitch returns the MIDI pitch raw maps to under the given octave and
// transpose, clamped to [0,127]. ok is false when raw carries no note
// mapping (it is either a control key or unbound).
func (t *Table) Pitch(raw input.RawKey, octave, transpose int) (pitch uint8, ok bool) {
	b, bound := t.notes[raw]
	if !bound {
		return 0, false
	}
	note := octave*12 + b.Offset + transpose
	if note < 0 {
		note = 0
	}
	if note > 127 {
		note = 127
	}
	return uint8(note), true
}

// Control returns the control role bound to raw, or RoleNone.
func (t *Table) Control(raw input.RawKey) Role {
	return t.controls[raw]
}

// RowOf returns the keyboard row raw is assigned to in this table, or
// RowNone if raw carries no note mapping.
func (t *Table) RowOf(raw input.RawKey) Row {
	return t.notes[raw].Row
}
