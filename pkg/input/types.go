// Package input models the raw devices the system reads from: the Device
// Reader (one per physical device file) and the Device Supervisor that
// discovers, classifies and owns them. See §4.A/§4.B.
package input

import "fmt"

// RawKey is an opaque, device-specific scan-code identifier. It is mapped
// statically by pkg/mapper to a pitch offset or a control role.
type RawKey uint16

// Axis identifies which analog channel an Axis input event reports.
type Axis uint8

const (
	AxisX Axis = iota
	AxisY
	AxisPressure
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisPressure:
		return "pressure"
	default:
		return "unknown"
	}
}

// TouchState reports whether a touchpad contact is active.
type TouchState uint8

const (
	TouchOff TouchState = iota
	TouchOn
)

// EventKind distinguishes the variant of an InputEvent.
type EventKind uint8

const (
	KindKeyDown EventKind = iota
	KindKeyUp
	KindAxis
	KindTouch
	KindMidi
	KindDeviceGone
)

// InputEvent is the value produced by a Device Reader. Timestamp T is a
// monotonic nanosecond count captured as close to the kernel event as
// possible (the kernel-reported timestamp when the device exposes one,
// otherwise time.Now().UnixNano() taken immediately after the read).
type InputEvent struct {
	Kind EventKind
	T    int64

	// KeyDown / KeyUp
	Raw RawKey

	// Axis
	Axis       Axis
	Normalized float64 // in [0,1]

	// Touch
	Touch TouchState

	// Midi
	Status, D1, D2 byte

	// DeviceGone
	DeviceID string
}

func KeyDown(raw RawKey, t int64) InputEvent {
	return InputEvent{Kind: KindKeyDown, Raw: raw, T: t}
}

func KeyUp(raw RawKey, t int64) InputEvent {
	return InputEvent{Kind: KindKeyUp, Raw: raw, T: t}
}

func AxisEvent(axis Axis, normalized float64, t int64) InputEvent {
	if normalized < 0 {
		normalized = 0
	}
	if normalized > 1 {
		normalized = 1
	}
	return InputEvent{Kind: KindAxis, Axis: axis, Normalized: normalized, T: t}
}

func TouchEvent(state TouchState, t int64) InputEvent {
	return InputEvent{Kind: KindTouch, Touch: state, T: t}
}

func MidiEvent(status, d1, d2 byte, t int64) InputEvent {
	return InputEvent{Kind: KindMidi, Status: status, D1: d1, D2: d2, T: t}
}

func DeviceGone(id string, t int64) InputEvent {
	return InputEvent{Kind: KindDeviceGone, DeviceID: id, T: t}
}

func (e InputEvent) String() string {
	switch e.Kind {
	case KindKeyDown:
		return fmt.Sprintf("KeyDown{raw:%d,t:%d}", e.Raw, e.T)
	case KindKeyUp:
		return fmt.Sprintf("KeyUp{raw:%d,t:%d}", e.Raw, e.T)
	case KindAxis:
		return fmt.Sprintf("Axis{%s:%.3f,t:%d}", e.Axis, e.Normalized, e.T)
	case KindTouch:
		return fmt.Sprintf("Touch{state:%d,t:%d}", e.Touch, e.T)
	case KindMidi:
		return fmt.Sprintf("Midi{status:%#x,d1:%d,d2:%d,t:%d}", e.Status, e.D1, e.D2, e.T)
	case KindDeviceGone:
		return fmt.Sprintf("DeviceGone{id:%s,t:%d}", e.DeviceID, e.T)
	default:
		return "Unknown{}"
	}
}
