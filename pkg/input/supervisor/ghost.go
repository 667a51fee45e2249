package supervisor

import "github.com/fw16synth/fw16synth/pkg/input"

// ghostWindowNanos is the key-matrix ghosting window from §4.B: a
// down/up pair on the same scan-code observed within this interval is
// suppressed as contact bounce rather than a deliberate keystroke.
const ghostWindowNanos = int64(1 * 1e6) // 1ms

// ghostFilter tracks the last transition per raw scan-code for a single
// device and drops rapid alternating down/up noise, keeping only the
// first down and the last up of a burst.
type ghostFilter struct {
	lastDownAt map[input.RawKey]int64
	pending    map[input.RawKey]input.InputEvent
}

func newGhostFilter() *ghostFilter {
	return &ghostFilter{
		lastDownAt: make(map[input.RawKey]int64),
		pending:    make(map[input.RawKey]input.InputEvent),
	}
}

// filter returns the event to forward, if any. A suppressed event yields
// ok=false. Only KeyDown/KeyUp are subject to filtering; everything else
// passes through unmodified.
func (g *ghostFilter) filter(ev input.InputEvent) (input.InputEvent, bool) {
	switch ev.Kind {
	case input.KindKeyDown:
		if last, seen := g.lastDownAt[ev.Raw]; seen && ev.T-last < ghostWindowNanos {
			// Bounce within the window: this down belongs to the same
			// burst as the pending one already forwarded.
			return input.InputEvent{}, false
		}
		g.lastDownAt[ev.Raw] = ev.T
		return ev, true
	case input.KindKeyUp:
		if last, seen := g.lastDownAt[ev.Raw]; seen && ev.T-last < ghostWindowNanos {
			// Inside the bounce window: hold this up back as the
			// candidate "last up" rather than forwarding it yet.
			g.pending[ev.Raw] = ev
			return input.InputEvent{}, false
		}
		if pending, ok := g.pending[ev.Raw]; ok {
			// The burst has settled; flush the held-back up using
			// this event's timestamp as the true release time.
			delete(g.pending, ev.Raw)
			pending.T = ev.T
			return pending, true
		}
		return ev, true
	default:
		return ev, true
	}
}
