package mapper

import (
	"fmt"

	"github.com/fw16synth/fw16synth/pkg/config"
	"github.com/fw16synth/fw16synth/pkg/input"
)

// roleNames maps the control role name strings a mapping file uses onto
// Role, the inverse of the table cmd/fw16synth would otherwise need to
// duplicate.
var roleNames = map[string]Role{
	"octave_up":      RoleOctaveUp,
	"octave_down":    RoleOctaveDown,
	"transpose_up":   RoleTransposeUp,
	"transpose_down": RoleTransposeDown,
	"sustain":        RoleSustain,
	"panic":          RolePanic,
	"program_up":     RoleProgramUp,
	"program_down":   RoleProgramDown,
	"layer_toggle":   RoleLayerToggle,
	"arp_toggle":     RoleArpToggle,
	"modifier":       RoleModifier,
}

var rowNames = map[string]Row{
	"":       RowNone,
	"bottom": RowBottom,
	"home":   RowHome,
	"top":    RowTop,
}

// FromConfig builds a Table from a loaded config.MappingFile. An empty
// MappingFile (no notes and no controls — config.LoadMappingFile's
// result for an empty path) returns DefaultTable instead, so callers
// can always call FromConfig without a branch for "no override given".
func FromConfig(mf config.MappingFile) (*Table, error) {
	if len(mf.Notes) == 0 && len(mf.Controls) == 0 {
		return DefaultTable(), nil
	}

	notes := make(map[input.RawKey]NoteBinding, len(mf.Notes))
	for _, n := range mf.Notes {
		row, ok := rowNames[n.Row]
		if !ok {
			return nil, fmt.Errorf("mapper: raw %d: unknown row %q", n.Raw, n.Row)
		}
		notes[input.RawKey(n.Raw)] = NoteBinding{Offset: n.Offset, Row: row}
	}

	controls := make(map[input.RawKey]Role, len(mf.Controls))
	for _, c := range mf.Controls {
		role, ok := roleNames[c.Role]
		if !ok {
			return nil, fmt.Errorf("mapper: raw %d: unknown control role %q", c.Raw, c.Role)
		}
		controls[input.RawKey(c.Raw)] = role
	}

	return NewTable(notes, controls), nil
}
