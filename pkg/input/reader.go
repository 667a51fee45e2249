package input

import (
	"errors"
	"time"

	"github.com/holoplot/go-evdev"
	"golang.org/x/sys/unix"

	"github.com/fw16synth/fw16synth/pkg/fwerr"
	"github.com/fw16synth/fw16synth/pkg/framework/debug"
)

// maxBlock bounds how long a single ReadOne call may wait for the next
// kernel event, per §4.A.
const maxBlock = 5 * time.Millisecond

// Reader reads one physical device file until Stop or a terminal error.
// It is confined to its own goroutine in the input context (§5); it
// must not allocate on the steady-state path beyond its pre-sized batch
// buffer.
type Reader struct {
	path    string
	class   Class
	dev     *evdev.InputDevice
	grab    bool
	absInfo map[evdev.EvCode]evdev.AbsInfo

	stopCh chan struct{}
	log    *debug.Logger
}

// Open opens and classifies the device at path. It does not grab it —
// grabbing is a separate step so the Device Supervisor can retry with
// backoff without re-opening the file.
func Open(path string, grab bool, log *debug.Logger) (*Reader, Class, error) {
	dev, err := evdev.Open(path)
	if err != nil {
		return nil, ClassIgnored, fwerr.New(fwerr.DeviceLoss, path, err)
	}

	caps := inspectCapabilities(dev)
	class := Classify(caps)

	r := &Reader{
		path:   path,
		class:  class,
		dev:    dev,
		grab:   grab,
		stopCh: make(chan struct{}),
		log:    log,
	}

	if class == ClassTouchpad {
		if infos, err := dev.AbsInfos(); err == nil {
			r.absInfo = infos
		} else if log != nil {
			log.Warn("failed to read abs infos for %s: %v", path, err)
		}
	}

	return r, class, nil
}

// Grab exclusively grabs the device so keypresses do not leak to the
// surrounding window system (§4.A). It is retried by the Device
// Supervisor with exponential backoff on failure.
func (r *Reader) Grab() error {
	if !r.grab {
		return nil
	}
	if err := r.dev.Grab(); err != nil {
		return fwerr.New(fwerr.Permission, r.path, err)
	}
	return nil
}

// Release un-grabs and closes the underlying device file. It is safe to
// call more than once.
func (r *Reader) Release() {
	if r.dev == nil {
		return
	}
	if r.grab {
		_ = r.dev.Release()
	}
	_ = r.dev.Close()
	r.dev = nil
}

// Stop signals ReadOne to return a DeviceGone event and exit on its next
// iteration.
func (r *Reader) Stop() {
	select {
	case <-r.stopCh:
	default:
		close(r.stopCh)
	}
}

// Path returns the device file path this reader owns.
func (r *Reader) Path() string { return r.path }

// Class returns the device's classification.
func (r *Reader) Class() Class { return r.class }

// ReadOne produces the next InputEvent, or a terminal DeviceGone event.
// It blocks for at most maxBlock waiting for kernel readiness; on timeout
// it returns ok=false so the caller can check for Stop and loop again
// without the reader allocating a new timer per call.
func (r *Reader) ReadOne() (ev InputEvent, ok bool, terminal bool) {
	select {
	case <-r.stopCh:
		return DeviceGone(r.path, monotonicNow()), true, true
	default:
	}

	ready, err := r.poll()
	if err != nil {
		return r.terminalEvent(err)
	}
	if !ready {
		return InputEvent{}, false, false
	}

	raw, err := r.dev.ReadOne()
	if err != nil {
		if errors.Is(err, unix.EAGAIN) {
			return InputEvent{}, false, false
		}
		return r.terminalEvent(err)
	}

	t := kernelTimestamp(raw)
	converted, matched := r.convert(raw, t)
	return converted, matched, false
}

func (r *Reader) terminalEvent(err error) (InputEvent, bool, bool) {
	if r.log != nil {
		r.log.Warn("device %s lost: %v", r.path, err)
	}
	return DeviceGone(r.path, monotonicNow()), true, true
}

// poll waits up to maxBlock for the device fd to become readable.
func (r *Reader) poll() (bool, error) {
	fd := int(r.dev.File().Fd())
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, int(maxBlock.Milliseconds()))
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return false, nil
		}
		return false, err
	}
	return n > 0, nil
}

// convert maps a raw evdev event into our InputEvent vocabulary. EV_SYN
// frames and unmapped codes are dropped in place (matched=false) without
// allocating.
func (r *Reader) convert(raw *evdev.InputEvent, t int64) (InputEvent, bool) {
	switch raw.Type {
	case evdev.EV_KEY:
		if raw.Code == evdev.BTN_TOUCH {
			if raw.Value != 0 {
				return TouchEvent(TouchOn, t), true
			}
			return TouchEvent(TouchOff, t), true
		}
		switch raw.Value {
		case 1: // press
			return KeyDown(RawKey(raw.Code), t), true
		case 0: // release
			return KeyUp(RawKey(raw.Code), t), true
		case 2: // autorepeat, not a new press
			return InputEvent{}, false
		}
	case evdev.EV_ABS:
		switch raw.Code {
		case evdev.ABS_X, evdev.ABS_MT_POSITION_X:
			return AxisEvent(AxisX, r.normalize(raw.Code, raw.Value), t), true
		case evdev.ABS_Y, evdev.ABS_MT_POSITION_Y:
			return AxisEvent(AxisY, r.normalize(raw.Code, raw.Value), t), true
		case evdev.ABS_PRESSURE, evdev.ABS_MT_PRESSURE:
			return AxisEvent(AxisPressure, r.normalize(raw.Code, raw.Value), t), true
		}
	}
	return InputEvent{}, false
}

// normalize maps a raw axis sample into [0,1] using the calibration
// captured at Open (the touchpad calibration, adapted from
// touchpad_input.py:TouchpadController.calibrate).
func (r *Reader) normalize(code evdev.EvCode, value int32) float64 {
	info, ok := r.absInfo[code]
	if !ok || info.Maximum == info.Minimum {
		return 0.5
	}
	v := (float64(value) - float64(info.Minimum)) / float64(info.Maximum-info.Minimum)
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return v
}

func kernelTimestamp(raw *evdev.InputEvent) int64 {
	return raw.Time.Sec*1e9 + raw.Time.Usec*1e3
}

func monotonicNow() int64 {
	return time.Now().UnixNano()
}

// inspectCapabilities queries the device's advertised EV_KEY/EV_ABS bits
// to build the Capabilities the classifier needs, per §4.B ("by
// capability inspection, not by name").
func inspectCapabilities(dev *evdev.InputDevice) Capabilities {
	var c Capabilities
	if dev.CapableType(evdev.EV_KEY) {
		c.HasLetterKeys = dev.CapableEvent(evdev.EV_KEY, evdev.KEY_A) &&
			dev.CapableEvent(evdev.EV_KEY, evdev.KEY_Z)
		c.HasSpaceKey = dev.CapableEvent(evdev.EV_KEY, evdev.KEY_SPACE)
		c.HasTouchButton = dev.CapableEvent(evdev.EV_KEY, evdev.BTN_TOUCH)
	}
	if dev.CapableType(evdev.EV_ABS) {
		c.HasAbsX = dev.CapableEvent(evdev.EV_ABS, evdev.ABS_X) ||
			dev.CapableEvent(evdev.EV_ABS, evdev.ABS_MT_POSITION_X)
		c.HasAbsY = dev.CapableEvent(evdev.EV_ABS, evdev.ABS_Y) ||
			dev.CapableEvent(evdev.EV_ABS, evdev.ABS_MT_POSITION_Y)
	}
	// A MIDI protocol interface shows up as a distinct kernel subsystem,
	// not a distinguishing evdev bit, so HasMIDI is never set here; the
	// Device Supervisor does not set it either.
	return c
}
