package mapper

import (
	"testing"

	"github.com/holoplot/go-evdev"

	"github.com/fw16synth/fw16synth/pkg/input"
)

func TestDefaultTablePitch(t *testing.T) {
	table := DefaultTable()

	tests := []struct {
		name      string
		raw       evdev.EvCode
		octave    int
		transpose int
		want      uint8
		ok        bool
	}{
		{"middle-C-home-row-K", evdev.KEY_K, 5, 0, 60, true},
		{"unbound-key", evdev.KEY_F13, 5, 0, 0, false},
		{"clamped-low", evdev.KEY_Z, 0, -12, 0, true},
		{"clamped-high", evdev.KEY_RIGHTBRACE, 8, 12, 127, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := table.Pitch(input.RawKey(tt.raw), tt.octave, tt.transpose)
			if ok != tt.ok {
				t.Fatalf("Pitch() ok = %v, want %v", ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("Pitch() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDefaultTableControls(t *testing.T) {
	table := DefaultTable()
	if got := table.Control(input.RawKey(evdev.KEY_SPACE)); got != RoleSustain {
		t.Errorf("Control(SPACE) = %v, want RoleSustain", got)
	}
	if got := table.Control(input.RawKey(evdev.KEY_ESC)); got != RolePanic {
		t.Errorf("Control(ESC) = %v, want RolePanic", got)
	}
	if got := table.Control(input.RawKey(evdev.KEY_Q)); got != RoleNone {
		t.Errorf("Control(Q) = %v, want RoleNone (Q is a note key)", got)
	}
}

func TestDefaultTableRows(t *testing.T) {
	table := DefaultTable()
	if table.RowOf(input.RawKey(evdev.KEY_Z)) != RowBottom {
		t.Error("Z should be in the bottom row")
	}
	if table.RowOf(input.RawKey(evdev.KEY_K)) != RowHome {
		t.Error("K should be in the home row")
	}
	if table.RowOf(input.RawKey(evdev.KEY_Q)) != RowTop {
		t.Error("Q should be in the top row")
	}
}
