// Package midiin implements the optional external MIDI input source
// named in §6's CLI surface: when configured, a hardware MIDI
// controller's note and control-change messages are submitted to the
// realtime bus alongside the keyboard/touchpad pipeline, tagged with
// OriginMIDIIn. It is grounded on the hot-plug MIDI watcher pattern
// used elsewhere in the retrieved pack, simplified to a single
// explicitly-selected port rather than continuous rescanning.
package midiin

import (
	"fmt"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/fw16synth/fw16synth/pkg/event"
	wiremidi "github.com/fw16synth/fw16synth/pkg/midi"
)

// Source owns one open MIDI input port for the lifetime of the
// process. It is a supervisory-context component: the callback gomidi
// invokes runs on its own goroutine and only ever submits to the bus.
type Source struct {
	drv    *rtmididrv.Driver
	port   drivers.In
	stopFn func()
	submit func(event.NoteEvent)
}

// Open finds the first input port whose name contains nameSubstring
// (case-insensitive) and starts listening on it, forwarding note and
// control-change messages to submit. An empty nameSubstring matches
// the first available port.
func Open(nameSubstring string, submit func(event.NoteEvent)) (*Source, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("midiin: rtmididrv: %w", err)
	}

	ins, err := drv.Ins()
	if err != nil {
		drv.Close()
		return nil, fmt.Errorf("midiin: list input ports: %w", err)
	}

	var found drivers.In
	for _, in := range ins {
		if nameSubstring == "" || strings.Contains(strings.ToLower(in.String()), strings.ToLower(nameSubstring)) {
			found = in
			break
		}
	}
	if found == nil {
		drv.Close()
		return nil, fmt.Errorf("midiin: no input port matching %q", nameSubstring)
	}

	if err := found.Open(); err != nil {
		drv.Close()
		return nil, fmt.Errorf("midiin: open %q: %w", found.String(), err)
	}

	s := &Source{drv: drv, port: found, submit: submit}

	stop, err := midi.ListenTo(found, s.handle, midi.HandleError(func(err error) {}))
	if err != nil {
		found.Close()
		drv.Close()
		return nil, fmt.Errorf("midiin: listen on %q: %w", found.String(), err)
	}
	s.stopFn = stop

	return s, nil
}

// handle decodes msg's raw wire bytes through pkg/midi's Decode, the
// same vocabulary pkg/engine uses for KindMidi input events, so an
// external controller and a KindMidi input event produce
// identically-shaped NoteEvents.
func (s *Source) handle(msg midi.Message, _ int32) {
	var status, d1, d2 byte
	switch len(msg) {
	case 3:
		status, d1, d2 = msg[0], msg[1], msg[2]
	case 2:
		status, d1 = msg[0], msg[1]
	case 1:
		status = msg[0]
	default:
		return
	}

	wire, ok := wiremidi.Decode(status, d1, d2, 0)
	if !ok {
		return
	}
	note, ok := wiremidi.ToNoteEvent(wire, event.OriginMIDIIn)
	if !ok {
		return
	}
	s.submit(note)
}

// PortName returns the name of the connected port, for logging.
func (s *Source) PortName() string {
	if s.port == nil {
		return ""
	}
	return s.port.String()
}

// Close stops listening and releases the underlying driver.
func (s *Source) Close() {
	if s.stopFn != nil {
		s.stopFn()
	}
	if s.port != nil {
		s.port.Close()
	}
	if s.drv != nil {
		s.drv.Close()
	}
}
