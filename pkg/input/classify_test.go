package input

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		caps Capabilities
		want Class
	}{
		{"keyboard", Capabilities{HasLetterKeys: true, HasSpaceKey: true}, ClassKeyboard},
		{"touchpad", Capabilities{HasAbsX: true, HasAbsY: true, HasTouchButton: true}, ClassTouchpad},
		{"midi", Capabilities{HasMIDI: true}, ClassMIDI},
		{"ignored", Capabilities{}, ClassIgnored},
		// keyboard takes priority over touchpad/midi signals on the same device
		{"keyboard-wins", Capabilities{HasLetterKeys: true, HasSpaceKey: true, HasMIDI: true}, ClassKeyboard},
		// partial touchpad signal (no touch button) does not classify as touchpad
		{"partial-touchpad", Capabilities{HasAbsX: true, HasAbsY: true}, ClassIgnored},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.caps); got != tt.want {
				t.Errorf("Classify(%+v) = %v, want %v", tt.caps, got, tt.want)
			}
		})
	}
}
