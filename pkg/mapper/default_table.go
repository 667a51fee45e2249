package mapper

import (
	"github.com/holoplot/go-evdev"

	"github.com/fw16synth/fw16synth/pkg/input"
)

func raw(code evdev.EvCode) input.RawKey { return input.RawKey(code) }

// DefaultTable is the built-in three-octave QWERTY layout used when no
// configuration file overrides it: bottom row = bass, home row = middle,
// top row (QWERTY + number row sharps) = treble.
func DefaultTable() *Table {
	notes := map[input.RawKey]NoteBinding{
		// Number row - sharps above the top row's octave
		raw(evdev.KEY_2): {1, RowTop}, raw(evdev.KEY_3): {3, RowTop}, raw(evdev.KEY_5): {6, RowTop},
		raw(evdev.KEY_6): {8, RowTop}, raw(evdev.KEY_7): {10, RowTop}, raw(evdev.KEY_9): {13, RowTop}, raw(evdev.KEY_0): {15, RowTop},

		// QWERTY row - treble octave
		raw(evdev.KEY_Q): {0, RowTop}, raw(evdev.KEY_W): {2, RowTop}, raw(evdev.KEY_E): {4, RowTop}, raw(evdev.KEY_R): {5, RowTop},
		raw(evdev.KEY_T): {7, RowTop}, raw(evdev.KEY_Y): {9, RowTop}, raw(evdev.KEY_U): {11, RowTop}, raw(evdev.KEY_I): {12, RowTop},
		raw(evdev.KEY_O): {14, RowTop}, raw(evdev.KEY_P): {16, RowTop}, raw(evdev.KEY_LEFTBRACE): {17, RowTop},
		raw(evdev.KEY_RIGHTBRACE): {19, RowTop},

		// Home row - middle octave
		raw(evdev.KEY_A): {-12, RowHome}, raw(evdev.KEY_S): {-10, RowHome}, raw(evdev.KEY_D): {-8, RowHome}, raw(evdev.KEY_F): {-7, RowHome},
		raw(evdev.KEY_G): {-5, RowHome}, raw(evdev.KEY_H): {-3, RowHome}, raw(evdev.KEY_J): {-1, RowHome}, raw(evdev.KEY_K): {0, RowHome},
		raw(evdev.KEY_L): {2, RowHome}, raw(evdev.KEY_SEMICOLON): {4, RowHome}, raw(evdev.KEY_APOSTROPHE): {5, RowHome},

		// Bottom row - bass octave
		raw(evdev.KEY_Z): {-24, RowBottom}, raw(evdev.KEY_X): {-22, RowBottom}, raw(evdev.KEY_C): {-20, RowBottom}, raw(evdev.KEY_V): {-19, RowBottom},
		raw(evdev.KEY_B): {-17, RowBottom}, raw(evdev.KEY_N): {-15, RowBottom}, raw(evdev.KEY_M): {-13, RowBottom},
		raw(evdev.KEY_COMMA): {-12, RowBottom}, raw(evdev.KEY_DOT): {-10, RowBottom}, raw(evdev.KEY_SLASH): {-8, RowBottom},
	}

	// Layer/arp toggles use keys outside the note table: the original
	// layout double-books L and A for this, but the mapper contract
	// requires every raw key to resolve to a note xor a control, never
	// both.
	controls := map[input.RawKey]Role{
		raw(evdev.KEY_EQUAL):     RoleOctaveUp,
		raw(evdev.KEY_MINUS):     RoleOctaveDown,
		raw(evdev.KEY_SPACE):     RoleSustain,
		raw(evdev.KEY_ESC):       RolePanic,
		raw(evdev.KEY_PAGEUP):    RoleProgramUp,
		raw(evdev.KEY_PAGEDOWN):  RoleProgramDown,
		raw(evdev.KEY_GRAVE):     RoleArpToggle,
		raw(evdev.KEY_BACKSLASH): RoleLayerToggle,
	}

	return NewTable(notes, controls)
}
